// Package money implements the pure, deterministic account domain model:
// balances, the operations ledger, and the refund/transfer/exchange
// semantics that produce a new Account plus the Operation it recorded.
// Nothing in this package performs I/O; every function is a plain value
// transformation, which is what lets the actor (internal/actor) apply it
// and then decide, on its own, whether and how to persist the result.
package money

import (
	"sort"
	"strings"
	"time"
)

// OperationType enumerates the kinds of ledger entries an account can hold.
type OperationType string

const (
	Deposit         OperationType = "deposit"
	Withdraw        OperationType = "withdraw"
	TransferIn      OperationType = "transfer_in"
	TransferOut     OperationType = "transfer_out"
	CardTransaction OperationType = "card_transaction"
	Refund          OperationType = "refund"
	Exchange        OperationType = "exchange"
)

// OperationStatus tracks the one legal transition: done -> refunded.
type OperationStatus string

const (
	StatusDone     OperationStatus = "done"
	StatusDenied   OperationStatus = "denied"
	StatusRefunded OperationStatus = "refunded"
)

// Well-known Operation.Data keys. Any caller-supplied field not in this
// set is preserved verbatim alongside them.
const (
	DataAmount               = "amount"
	DataCurrency              = "currency"
	DataRecipientAccountID    = "recipient_account_id"
	DataSenderAccountID       = "sender_account_id"
	DataCardID                = "card_id"
	DataOperationToRefundID   = "operation_to_refund_id"
	DataMessage               = "message"
	DataNewCurrency           = "new_currency"
	DataNewAmount             = "new_amount"
	DataExchangeRate          = "exchange_rate"
)

// Operation is an immutable ledger record describing one attempted
// account mutation. Its identity, type, and recorded amount never
// change after registration; Status may move from done to refunded
// exactly once.
type Operation struct {
	ID       int
	DateTime time.Time
	Type     OperationType
	Status   OperationStatus
	Data     map[string]interface{}
}

func (o Operation) clone() Operation {
	data := make(map[string]interface{}, len(o.Data))
	for k, v := range o.Data {
		data[k] = v
	}
	o.Data = data
	return o
}

// Account is the pure value type: balances by currency, the operations
// ledger, and the invariants described in spec §3.
type Account struct {
	ID              int
	DefaultCurrency string
	Limit           int
	Balances        map[string]int
	Operations      map[int]Operation
	NextOperationID int
}

// Options configures a freshly created Account (rehydration bypasses
// this and adopts a stored Account verbatim instead).
type Options struct {
	DefaultCurrency string
	Limit           int
	InitialBalances map[string]int
}

// New constructs a fresh Account honoring the given options. Used by the
// actor only on first start for an id, when storage has no prior record.
func New(id int, opts Options) Account {
	balances := make(map[string]int, len(opts.InitialBalances))
	for cur, amt := range opts.InitialBalances {
		balances[normalizeCurrency(cur)] = amt
	}
	return Account{
		ID:              id,
		DefaultCurrency: normalizeCurrency(opts.DefaultCurrency),
		Limit:           opts.Limit,
		Balances:        balances,
		Operations:      make(map[int]Operation),
		NextOperationID: 1,
	}
}

// clone returns a deep-enough copy so that callers applying a mutation
// never observe it through the prior Account value (functional update).
func (a Account) clone() Account {
	balances := make(map[string]int, len(a.Balances))
	for k, v := range a.Balances {
		balances[k] = v
	}
	ops := make(map[int]Operation, len(a.Operations))
	for k, v := range a.Operations {
		ops[k] = v.clone()
	}
	a.Balances = balances
	a.Operations = ops
	return a
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// floor returns the minimum balance permitted in currency c.
func (a Account) floor(currency string) int {
	if currency == a.DefaultCurrency {
		return a.Limit
	}
	return 0
}

func (a Account) balance(currency string) int {
	return a.Balances[currency]
}

func mergeData(fields ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// register appends op to acc's ledger, assigning it the next id and
// defaulting its DateTime/Status, returning the updated account and the
// operation as actually recorded (with id/defaults filled in).
func (a Account) register(opType OperationType, status OperationStatus, when time.Time, data map[string]interface{}) (Account, Operation) {
	a = a.clone()
	if when.IsZero() {
		when = time.Now()
	}
	op := Operation{
		ID:       a.NextOperationID,
		DateTime: when,
		Type:     opType,
		Status:   status,
		Data:     data,
	}
	a.Operations[op.ID] = op
	a.NextOperationID++
	return a, op
}

func (a Account) credit(currency string, amount int) Account {
	a = a.clone()
	a.Balances[currency] += amount
	return a
}

func (a Account) debit(currency string, amount int) Account {
	a = a.clone()
	a.Balances[currency] -= amount
	return a
}

// ---- Queries (pure, no mutation) ----

func Balance(a Account, currency string) int {
	return a.balance(normalizeCurrency(currency))
}

func Balances(a Account) map[string]int {
	out := make(map[string]int, len(a.Balances))
	for k, v := range a.Balances {
		out[k] = v
	}
	return out
}

func OperationByID(a Account, id int) (Operation, bool) {
	op, ok := a.Operations[id]
	if !ok {
		return Operation{}, false
	}
	return op.clone(), true
}

// OperationsOnDate returns every operation whose DateTime falls on the
// same calendar day as date (UTC), most recent first.
func OperationsOnDate(a Account, date time.Time) []Operation {
	y, m, d := date.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	return operationsInHalfOpenRange(a, start, end)
}

// OperationsInRange returns every operation with dateIni <= DateTime <= dateFin,
// most recent first. Both endpoints are inclusive.
func OperationsInRange(a Account, dateIni, dateFin time.Time) []Operation {
	return operationsInHalfOpenRange(a, dateIni, dateFin.Add(time.Nanosecond))
}

func operationsInHalfOpenRange(a Account, start, end time.Time) []Operation {
	var out []Operation
	for _, op := range a.Operations {
		if !op.DateTime.Before(start) && op.DateTime.Before(end) {
			out = append(out, op.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateTime.After(out[j].DateTime)
	})
	return out
}

package actor

import (
	"context"
	"sync"
	"time"

	"bank-api/internal/domain/money"
)

// reqKind discriminates the mailbox message a Handle method constructs.
// Every case is handled inline by actorState.dispatch on the actor's own
// goroutine, except transferOut/transferOutSplit, which do their local
// debit+persist in-loop and then hand the recipient leg off to a
// short-lived helper goroutine so the actor's own mailbox keeps draining
// while a cross-account call is in flight (spec §9's deadlock mitigation:
// two accounts transferring to each other at the same time must not each
// block waiting on the other).
type reqKind int

const (
	reqDeposit reqKind = iota
	reqWithdraw
	reqCardTransaction
	reqTransferOut
	reqTransferOutSplit
	reqTransferIn
	reqRefund
	reqExchange
	reqBalance
	reqBalances
	reqOperation
	reqOperationsOnDate
	reqOperationsInRange
)

type request struct {
	kind reqKind

	amount      int
	currency    string
	newCurrency string
	cardID      string
	recipientID int
	senderID    int
	recipients  []money.SplitRecipient
	operationID int
	when        time.Time
	date        time.Time
	rangeStart  time.Time
	rangeEnd    time.Time
	extra       map[string]interface{}

	reply chan outcome
}

type outcome struct {
	reply Reply
	err   error
}

// Reply is the unified response shape for every actor operation. Only
// the fields relevant to the call made are populated; the rest are zero.
type Reply struct {
	Kind                 money.Kind
	Reason               string
	Operation            money.Operation
	Operations           []money.Operation
	RecipientOperation   money.Operation
	RecipientOperations  []money.Operation
	Balance              int
	Balances             map[string]int
}

func newCall(kind reqKind) request {
	return request{kind: kind, when: time.Now()}
}

// Deposit credits currency unconditionally.
func (h *Handle) Deposit(ctx context.Context, amount int, currency string, extra map[string]interface{}) (Reply, error) {
	req := newCall(reqDeposit)
	req.amount, req.currency, req.extra = amount, currency, extra
	return h.call(ctx, req)
}

// Withdraw debits currency, subject to the floor invariant.
func (h *Handle) Withdraw(ctx context.Context, amount int, currency string, extra map[string]interface{}) (Reply, error) {
	req := newCall(reqWithdraw)
	req.amount, req.currency, req.extra = amount, currency, extra
	return h.call(ctx, req)
}

// CardTransaction debits like Withdraw but tags the ledger entry with a
// card id and makes it eligible for Refund.
func (h *Handle) CardTransaction(ctx context.Context, amount int, currency, cardID string, extra map[string]interface{}) (Reply, error) {
	req := newCall(reqCardTransaction)
	req.amount, req.currency, req.cardID, req.extra = amount, currency, cardID, extra
	return h.call(ctx, req)
}

// Refund reverses a prior done card_transaction.
func (h *Handle) Refund(ctx context.Context, operationToRefundID int) (Reply, error) {
	req := newCall(reqRefund)
	req.operationID = operationToRefundID
	return h.call(ctx, req)
}

// Exchange converts between two of the account's own currency balances.
func (h *Handle) Exchange(ctx context.Context, amount int, currentCurrency, newCurrency string) (Reply, error) {
	req := newCall(reqExchange)
	req.amount, req.currency, req.newCurrency = amount, currentCurrency, newCurrency
	return h.call(ctx, req)
}

// TransferOut debits this account and credits recipientID's account.
// Local debit+persist happens before this call returns-it-self has
// already happened on the actor's goroutine; the recipient credit is
// awaited here by the caller, but not by the actor's own mailbox loop.
func (h *Handle) TransferOut(ctx context.Context, amount int, currency string, recipientID int, extra map[string]interface{}) (Reply, error) {
	req := newCall(reqTransferOut)
	req.amount, req.currency, req.recipientID, req.extra = amount, currency, recipientID, extra
	return h.call(ctx, req)
}

// TransferOutSplit debits this account once for the total and credits
// each recipient their share, in recipient order.
func (h *Handle) TransferOutSplit(ctx context.Context, total int, currency string, recipients []money.SplitRecipient, extra map[string]interface{}) (Reply, error) {
	req := newCall(reqTransferOutSplit)
	req.amount, req.currency, req.recipients, req.extra = total, currency, recipients, extra
	return h.call(ctx, req)
}

// TransferIn credits this account on behalf of senderID. Called only by
// another actor's transfer-out helper goroutine, never by an HTTP handler
// directly.
func (h *Handle) TransferIn(ctx context.Context, amount int, currency string, senderID int, extra map[string]interface{}) (Reply, error) {
	req := newCall(reqTransferIn)
	req.amount, req.currency, req.senderID, req.extra = amount, currency, senderID, extra
	return h.call(ctx, req)
}

func (h *Handle) Balance(ctx context.Context, currency string) (Reply, error) {
	req := newCall(reqBalance)
	req.currency = currency
	return h.call(ctx, req)
}

func (h *Handle) Balances(ctx context.Context) (Reply, error) {
	return h.call(ctx, newCall(reqBalances))
}

func (h *Handle) Operation(ctx context.Context, operationID int) (Reply, error) {
	req := newCall(reqOperation)
	req.operationID = operationID
	return h.call(ctx, req)
}

func (h *Handle) OperationsOnDate(ctx context.Context, date time.Time) (Reply, error) {
	req := newCall(reqOperationsOnDate)
	req.date = date
	return h.call(ctx, req)
}

func (h *Handle) OperationsInRange(ctx context.Context, start, end time.Time) (Reply, error) {
	req := newCall(reqOperationsInRange)
	req.rangeStart, req.rangeEnd = start, end
	return h.call(ctx, req)
}

// dispatch runs on the actor's own goroutine and owns st.account for the
// duration of the call.
func (st *actorState) dispatch(req request) {
	switch req.kind {
	case reqDeposit:
		st.applySimple(req, money.Deposit(st.account, req.amount, req.currency, req.when, req.extra))

	case reqWithdraw:
		st.applySimple(req, money.Withdraw(st.account, req.amount, req.currency, req.when, req.extra))

	case reqCardTransaction:
		st.applySimple(req, money.CardTransaction(st.account, req.amount, req.currency, req.cardID, req.when, req.extra))

	case reqTransferIn:
		st.applySimple(req, money.TransferIn(st.account, req.amount, req.currency, req.senderID, req.when, req.extra))

	case reqRefund:
		st.applySimple(req, money.Refund(st.account, req.operationID, req.when))

	case reqExchange:
		st.applySimple(req, money.ExchangeBalances(st.account, req.amount, req.currency, req.newCurrency, st.deps.Converter, req.when))

	case reqBalance:
		req.reply <- outcome{reply: Reply{Balance: money.Balance(st.account, req.currency)}}

	case reqBalances:
		req.reply <- outcome{reply: Reply{Balances: money.Balances(st.account)}}

	case reqOperation:
		op, found := money.OperationByID(st.account, req.operationID)
		if !found {
			req.reply <- outcome{reply: Reply{Kind: money.KindError, Reason: "operation does not exist"}}
			return
		}
		req.reply <- outcome{reply: Reply{Kind: money.KindOk, Operation: op}}

	case reqOperationsOnDate:
		req.reply <- outcome{reply: Reply{Operations: money.OperationsOnDate(st.account, req.date)}}

	case reqOperationsInRange:
		req.reply <- outcome{reply: Reply{Operations: money.OperationsInRange(st.account, req.rangeStart, req.rangeEnd)}}

	case reqTransferOut:
		st.dispatchTransferOut(req)

	case reqTransferOutSplit:
		st.dispatchTransferOutSplit(req)
	}
}

// applySimple handles every operation whose outcome is entirely local:
// apply the pure transform, persist on anything but KindError, reply.
func (st *actorState) applySimple(req request, res money.Result) {
	if res.Kind == money.KindError {
		req.reply <- outcome{reply: Reply{Kind: res.Kind, Reason: res.Reason}}
		return
	}

	prior := st.account
	st.account = res.Account
	if err := st.persist(res.Operations); err != nil {
		st.account = prior
		req.reply <- outcome{err: err}
		return
	}

	reply := Reply{Kind: res.Kind, Reason: res.Reason, Operations: res.Operations}
	if len(res.Operations) == 1 {
		reply.Operation = res.Operations[0]
	}
	req.reply <- outcome{reply: reply}
}

// dispatchTransferOut performs the local debit in-loop, then delegates
// the recipient credit to a helper goroutine so this actor's mailbox
// keeps draining while the cross-account call is outstanding.
func (st *actorState) dispatchTransferOut(req request) {
	res := money.TransferOutSingle(st.account, req.amount, req.currency, req.recipientID, req.when, req.extra)
	if res.Kind != money.KindOk {
		st.applySimple(req, res)
		return
	}

	prior := st.account
	st.account = res.Account
	if err := st.persist(res.Operations); err != nil {
		st.account = prior
		req.reply <- outcome{err: err}
		return
	}

	localOp := res.Operations[0]
	senderID, deps, recipientID, amount, currency, extra := st.id, st.deps, req.recipientID, req.amount, req.currency, req.extra
	go func() {
		recipientOp, err := creditRecipient(context.Background(), deps, senderID, recipientID, amount, currency, extra)
		if err != nil {
			req.reply <- outcome{err: err}
			return
		}
		req.reply <- outcome{reply: Reply{
			Kind:               money.KindOk,
			Operation:          localOp,
			Operations:         []money.Operation{localOp},
			RecipientOperation: recipientOp,
		}}
	}()
}

// dispatchTransferOutSplit mirrors dispatchTransferOut but fans the
// recipient legs out concurrently from the helper goroutine, preserving
// recipient order in the reply.
func (st *actorState) dispatchTransferOutSplit(req request) {
	res := money.TransferOutSplit(st.account, req.amount, req.currency, req.recipients, req.when, req.extra)
	if res.Kind != money.KindOk {
		st.applySimple(req, res)
		return
	}

	prior := st.account
	st.account = res.Account
	if err := st.persist(res.Operations); err != nil {
		st.account = prior
		req.reply <- outcome{err: err}
		return
	}

	localOps := res.Operations
	senderID, deps, recipients, currency := st.id, st.deps, req.recipients, req.currency
	go func() {
		recipientOps := make([]money.Operation, len(localOps))
		errs := make([]error, len(localOps))
		var wg sync.WaitGroup
		for i, r := range recipients {
			i, r, localOp := i, r, localOps[i]
			amount, _ := localOp.Data[money.DataAmount].(int)
			wg.Add(1)
			go func() {
				defer wg.Done()
				recipientOps[i], errs[i] = creditRecipient(context.Background(), deps, senderID, r.RecipientAccountID, amount, currency, r.Extra)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				req.reply <- outcome{err: err}
				return
			}
		}
		req.reply <- outcome{reply: Reply{
			Kind:                money.KindOk,
			Operations:          localOps,
			RecipientOperations: recipientOps,
		}}
	}()
}

// creditRecipient resolves recipientID's actor through the locator and
// issues a bounded TransferIn call against it.
func creditRecipient(ctx context.Context, deps Deps, senderID, recipientID, amount int, currency string, extra map[string]interface{}) (money.Operation, error) {
	ctx, cancel := context.WithTimeout(ctx, deps.IdleTimeout)
	defer cancel()

	recipient, err := deps.Locator.Lookup(ctx, recipientID)
	if err != nil {
		return money.Operation{}, err
	}
	reply, err := recipient.TransferIn(ctx, amount, currency, senderID, extra)
	if err != nil {
		return money.Operation{}, err
	}
	return reply.Operation, nil
}

package money

import (
	"fmt"
	"math"
	"time"
)

// SplitRecipient is one entry of a split transfer_out request.
type SplitRecipient struct {
	Percentage         float64
	RecipientAccountID int
	Extra              map[string]interface{}
}

// Converter computes a cross-currency conversion; the rates table
// (internal/domain/rates) implements this. Kept as an interface so this
// package stays free of any dependency on how rates are sourced.
type Converter interface {
	Convert(amount int, from, to string) (newAmount int, rate float64, err error)
}

// roundHalfAwayFromZero matches the source engine's rounding: round(x)
// is floor(x+0.5) for non-negative x, and the mirror image for negative x.
// Banker's rounding is deliberately not used here.
func roundHalfAwayFromZero(x float64) int {
	if x >= 0 {
		return int(math.Floor(x + 0.5))
	}
	return -int(math.Floor(-x + 0.5))
}

// Deposit always succeeds: it credits currency and records deposit/done.
func Deposit(a Account, amount int, currency string, when time.Time, extra map[string]interface{}) Result {
	currency = normalizeCurrency(currency)
	data := mergeData(extra, map[string]interface{}{DataAmount: amount, DataCurrency: currency})
	a = a.credit(currency, amount)
	a, op := a.register(Deposit, StatusDone, when, data)
	return ok(a, op)
}

// Withdraw debits currency if the floor invariant holds afterward,
// otherwise denies and still records the attempt.
func Withdraw(a Account, amount int, currency string, when time.Time, extra map[string]interface{}) Result {
	return debitOperation(a, Withdraw, amount, currency, when, extra)
}

// CardTransaction behaves exactly like Withdraw but is recorded with a
// distinct type, and only a card_transaction/done entry is refundable.
func CardTransaction(a Account, amount int, currency, cardID string, when time.Time, extra map[string]interface{}) Result {
	extra = mergeData(extra, map[string]interface{}{DataCardID: cardID})
	return debitOperation(a, CardTransaction, amount, currency, when, extra)
}

func debitOperation(a Account, opType OperationType, amount int, currency string, when time.Time, extra map[string]interface{}) Result {
	currency = normalizeCurrency(currency)
	newBalance := a.balance(currency) - amount
	if newBalance < a.floor(currency) {
		data := mergeData(extra, map[string]interface{}{
			DataAmount:   amount,
			DataCurrency: currency,
			DataMessage:  fmt.Sprintf("insufficient %s funds", currency),
		})
		a, op := a.register(opType, StatusDenied, when, data)
		return denied(a, data[DataMessage].(string), op)
	}
	data := mergeData(extra, map[string]interface{}{DataAmount: amount, DataCurrency: currency})
	a = a.debit(currency, amount)
	a, op := a.register(opType, StatusDone, when, data)
	return ok(a, op)
}

// TransferOutSingle debits the sender for a transfer to one recipient.
// The caller (the actor) is responsible for crediting the recipient via
// TransferIn on the recipient's own actor.
func TransferOutSingle(a Account, amount int, currency string, recipientAccountID int, when time.Time, extra map[string]interface{}) Result {
	extra = mergeData(extra, map[string]interface{}{DataRecipientAccountID: recipientAccountID})
	return debitOperation(a, TransferOut, amount, currency, when, extra)
}

// TransferOutSplit debits the sender for the total amount once, then
// records one transfer_out/done sub-operation per recipient with
// round(total*percentage) substituted as that recipient's amount.
// Recipients are not re-normalized and the rounding residual (if
// percentages don't exactly partition 1) is retained by the sender.
func TransferOutSplit(a Account, total int, currency string, recipients []SplitRecipient, when time.Time, extra map[string]interface{}) Result {
	currency = normalizeCurrency(currency)
	newBalance := a.balance(currency) - total
	if newBalance < a.floor(currency) {
		data := mergeData(extra, map[string]interface{}{
			DataAmount:   total,
			DataCurrency: currency,
			DataMessage:  fmt.Sprintf("insufficient %s funds", currency),
		})
		a, op := a.register(TransferOut, StatusDenied, when, data)
		return denied(a, data[DataMessage].(string), op)
	}

	a = a.debit(currency, total)
	ops := make([]Operation, 0, len(recipients))
	for _, r := range recipients {
		amount := roundHalfAwayFromZero(float64(total) * r.Percentage)
		data := mergeData(extra, r.Extra, map[string]interface{}{
			DataAmount:             amount,
			DataCurrency:           currency,
			DataRecipientAccountID: r.RecipientAccountID,
		})
		var op Operation
		a, op = a.register(TransferOut, StatusDone, when, data)
		ops = append(ops, op)
	}
	return ok(a, ops...)
}

// TransferIn credits the recipient side of a transfer. It never denies:
// crediting a balance can't violate the floor invariant.
func TransferIn(a Account, amount int, currency string, senderAccountID int, when time.Time, extra map[string]interface{}) Result {
	currency = normalizeCurrency(currency)
	data := mergeData(extra, map[string]interface{}{
		DataAmount:        amount,
		DataCurrency:      currency,
		DataSenderAccountID: senderAccountID,
	})
	a = a.credit(currency, amount)
	a, op := a.register(TransferIn, StatusDone, when, data)
	return ok(a, op)
}

// Refund reverses a refundable operation (a done card_transaction): it
// credits back the original amount/currency and flips that operation's
// status to refunded.
func Refund(a Account, operationToRefundID int, when time.Time) Result {
	target, exists := a.Operations[operationToRefundID]
	if !exists {
		return errResult(a, "operation does not exist")
	}
	if target.Type != CardTransaction || target.Status != StatusDone {
		return errResult(a, "unrefundable operation")
	}

	amount, _ := target.Data[DataAmount].(int)
	currency, _ := target.Data[DataCurrency].(string)

	a = a.clone()
	refunded := target.clone()
	refunded.Status = StatusRefunded
	a.Operations[refunded.ID] = refunded

	a = a.credit(currency, amount)
	data := map[string]interface{}{
		DataOperationToRefundID: operationToRefundID,
		DataAmount:              amount,
		DataCurrency:            currency,
	}
	a, op := a.register(Refund, StatusDone, when, data)
	return ok(a, op)
}

// ExchangeBalances debits currentCurrency and credits newCurrency using
// the rate supplied by conv, denying without mutating state if the debit
// would violate the floor invariant.
func ExchangeBalances(a Account, currentAmount int, currentCurrency, newCurrency string, conv Converter, when time.Time) Result {
	currentCurrency = normalizeCurrency(currentCurrency)
	newCurrency = normalizeCurrency(newCurrency)

	newBalance := a.balance(currentCurrency) - currentAmount
	if newBalance < a.floor(currentCurrency) {
		data := map[string]interface{}{
			DataAmount:      currentAmount,
			DataCurrency:    currentCurrency,
			DataNewCurrency: newCurrency,
			DataMessage:     fmt.Sprintf("insufficient %s funds", currentCurrency),
		}
		a, op := a.register(Exchange, StatusDenied, when, data)
		return denied(a, data[DataMessage].(string), op)
	}

	newAmount, rate, err := conv.Convert(currentAmount, currentCurrency, newCurrency)
	if err != nil {
		return errResult(a, err.Error())
	}

	a = a.debit(currentCurrency, currentAmount)
	a = a.credit(newCurrency, newAmount)
	data := map[string]interface{}{
		DataAmount:        currentAmount,
		DataCurrency:      currentCurrency,
		DataNewCurrency:   newCurrency,
		DataNewAmount:     newAmount,
		DataExchangeRate:  rate,
	}
	a, op := a.register(Exchange, StatusDone, when, data)
	return ok(a, op)
}

package money_test

import (
	"errors"
	"testing"
	"time"

	"bank-api/internal/domain/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshAccount(limit int, balances map[string]int) money.Account {
	return money.New(1, money.Options{
		DefaultCurrency: "BRL",
		Limit:           limit,
		InitialBalances: balances,
	})
}

func TestWithdrawDeniedOnFreshAccount(t *testing.T) {
	acc := freshAccount(-500, nil)
	res := money.Withdraw(acc, 5000, "BRL", time.Now(), nil)

	require.Equal(t, money.KindDenied, res.Kind)
	assert.Equal(t, 0, money.Balance(res.Account, "BRL"))
	op := res.Operation()
	assert.Equal(t, money.Withdraw, op.Type)
	assert.Equal(t, money.StatusDenied, op.Status)
	assert.Equal(t, 5000, op.Data[money.DataAmount])
	assert.Len(t, res.Account.Operations, 1)
}

func TestWithdrawSuccess(t *testing.T) {
	acc := freshAccount(0, map[string]int{"BRL": 5000})
	res := money.Withdraw(acc, 3000, "BRL", time.Now(), nil)

	require.Equal(t, money.KindOk, res.Kind)
	assert.Equal(t, 2000, money.Balance(res.Account, "BRL"))
	op := res.Operation()
	assert.Equal(t, money.StatusDone, op.Status)
	assert.Equal(t, 3000, op.Data[money.DataAmount])
	assert.Len(t, res.Account.Operations, 1)
}

func TestWithdrawBoundary(t *testing.T) {
	acc := freshAccount(-500, map[string]int{"BRL": 0})
	// balance - limit == 500: exactly at the floor succeeds.
	res := money.Withdraw(acc, 500, "BRL", time.Now(), nil)
	require.Equal(t, money.KindOk, res.Kind)
	assert.Equal(t, -500, money.Balance(res.Account, "BRL"))

	// one more denies.
	res2 := money.Withdraw(res.Account, 1, "BRL", time.Now(), nil)
	require.Equal(t, money.KindDenied, res2.Kind)
	assert.Equal(t, -500, money.Balance(res2.Account, "BRL"))
}

func TestWithdrawNonDefaultCurrencyFloorsAtZero(t *testing.T) {
	acc := freshAccount(-500, map[string]int{"USD": 1000})
	res := money.Withdraw(acc, 1000, "USD", time.Now(), nil)
	require.Equal(t, money.KindOk, res.Kind)
	assert.Equal(t, 0, money.Balance(res.Account, "USD"))

	res2 := money.Withdraw(res.Account, 1, "USD", time.Now(), nil)
	require.Equal(t, money.KindDenied, res2.Kind)
}

func TestCardTransactionThenRefund(t *testing.T) {
	acc := freshAccount(0, map[string]int{"BRL": 5000})
	res := money.CardTransaction(acc, 3000, "BRL", "1", time.Now(), nil)
	require.Equal(t, money.KindOk, res.Kind)
	cardOp := res.Operation()
	assert.Equal(t, 1, cardOp.ID)

	refundRes := money.Refund(res.Account, cardOp.ID, time.Now())
	require.Equal(t, money.KindOk, refundRes.Kind)
	assert.Equal(t, 5000, money.Balance(refundRes.Account, "BRL"))

	refundedTarget, ok := money.OperationByID(refundRes.Account, cardOp.ID)
	require.True(t, ok)
	assert.Equal(t, money.StatusRefunded, refundedTarget.Status)

	refundOp, ok := money.OperationByID(refundRes.Account, cardOp.ID+1)
	require.True(t, ok)
	assert.Equal(t, money.Refund, refundOp.Type)
	assert.Equal(t, 3000, refundOp.Data[money.DataAmount])
	assert.Equal(t, cardOp.ID, refundOp.Data[money.DataOperationToRefundID])
}

func TestRefundOfMissingOperation(t *testing.T) {
	acc := freshAccount(0, nil)
	res := money.Refund(acc, 999, time.Now())
	require.Equal(t, money.KindError, res.Kind)
	assert.Equal(t, "operation does not exist", res.Reason)
}

func TestRefundOfNonCardOperationIsError(t *testing.T) {
	acc := freshAccount(0, map[string]int{"BRL": 5000})
	res := money.Withdraw(acc, 1000, "BRL", time.Now(), nil)
	require.Equal(t, money.KindOk, res.Kind)

	refundRes := money.Refund(res.Account, res.Operation().ID, time.Now())
	require.Equal(t, money.KindError, refundRes.Kind)
	assert.Equal(t, "unrefundable operation", refundRes.Reason)
}

func TestRefundOfDeniedCardTransactionIsError(t *testing.T) {
	acc := freshAccount(-500, nil)
	res := money.CardTransaction(acc, 1000, "BRL", "1", time.Now(), nil)
	require.Equal(t, money.KindDenied, res.Kind)

	refundRes := money.Refund(res.Account, res.Operation().ID, time.Now())
	require.Equal(t, money.KindError, refundRes.Kind)
}

func TestTransferOutSplit(t *testing.T) {
	acc := freshAccount(0, map[string]int{"BRL": 10000})
	recipients := []money.SplitRecipient{
		{Percentage: 0.7, RecipientAccountID: 2, Extra: map[string]interface{}{"other_data": "x"}},
		{Percentage: 0.2, RecipientAccountID: 3, Extra: map[string]interface{}{"meta_data": "y"}},
		{Percentage: 0.1, RecipientAccountID: 4},
	}
	res := money.TransferOutSplit(acc, 1000, "BRL", recipients, time.Now(), nil)
	require.Equal(t, money.KindOk, res.Kind)
	assert.Equal(t, 9000, money.Balance(res.Account, "BRL"))
	require.Len(t, res.Operations, 3)
	assert.Equal(t, 700, res.Operations[0].Data[money.DataAmount])
	assert.Equal(t, 200, res.Operations[1].Data[money.DataAmount])
	assert.Equal(t, 100, res.Operations[2].Data[money.DataAmount])
	assert.Equal(t, "x", res.Operations[0].Data["other_data"])
	assert.Equal(t, "y", res.Operations[1].Data["meta_data"])
}

func TestTransferOutSplitDeniedRecordsOneOperation(t *testing.T) {
	acc := freshAccount(0, map[string]int{"BRL": 100})
	recipients := []money.SplitRecipient{
		{Percentage: 0.5, RecipientAccountID: 2},
		{Percentage: 0.5, RecipientAccountID: 3},
	}
	res := money.TransferOutSplit(acc, 1000, "BRL", recipients, time.Now(), nil)
	require.Equal(t, money.KindDenied, res.Kind)
	assert.Len(t, res.Account.Operations, 1)
	assert.Equal(t, 1000, res.Operations[0].Data[money.DataAmount])
}

type fakeConverter struct {
	rates map[string]float64
}

func (f fakeConverter) Convert(amount int, from, to string) (int, float64, error) {
	fromRate, ok := f.rates[from]
	if !ok {
		return 0, 0, errors.New("unknown currency")
	}
	toRate, ok := f.rates[to]
	if !ok {
		return 0, 0, errors.New("unknown currency")
	}
	rate := toRate / fromRate
	return int(float64(amount)*rate + 0.5), rate, nil
}

func TestExchangeBalances(t *testing.T) {
	acc := freshAccount(0, map[string]int{"USD": 1000})
	conv := fakeConverter{rates: map[string]float64{"USD": 1, "BRL": 5.45}}

	res := money.ExchangeBalances(acc, 100, "USD", "BRL", conv, time.Now())
	require.Equal(t, money.KindOk, res.Kind)
	assert.Equal(t, 900, money.Balance(res.Account, "USD"))
	assert.Equal(t, 545, money.Balance(res.Account, "BRL"))
	op := res.Operation()
	assert.Equal(t, money.Exchange, op.Type)
}

func TestOperationsInRangeInclusiveAndDescending(t *testing.T) {
	acc := freshAccount(0, nil)
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)

	res1 := money.Deposit(acc, 100, "BRL", t1, nil)
	res2 := money.Deposit(res1.Account, 100, "BRL", t2, nil)
	res3 := money.Deposit(res2.Account, 100, "BRL", t3, nil)

	ops := money.OperationsInRange(res3.Account, t1, t3)
	require.Len(t, ops, 3)
	assert.Equal(t, t3, ops[0].DateTime)
	assert.Equal(t, t2, ops[1].DateTime)
	assert.Equal(t, t1, ops[2].DateTime)
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	acc := freshAccount(0, map[string]int{"BRL": 1000})
	depRes := money.Deposit(acc, 500, "BRL", time.Now(), nil)
	wdRes := money.Withdraw(depRes.Account, 500, "BRL", time.Now(), nil)
	require.Equal(t, money.KindOk, wdRes.Kind)
	assert.Equal(t, 1000, money.Balance(wdRes.Account, "BRL"))
}

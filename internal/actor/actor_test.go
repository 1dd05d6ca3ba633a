package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"bank-api/internal/domain/money"
	"bank-api/internal/storage"

	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) Put(_ context.Context, folder, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[folder+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (m *memBackend) Get(_ context.Context, folder, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[folder+"/"+key]
	return v, ok, nil
}

func testDeps(backend storage.Backend) Deps {
	return Deps{
		Storage:       storage.NewPool(2, backend),
		AccountFolder: "accounts",
		IdleTimeout:   time.Hour,
		DefaultOptions: money.Options{
			DefaultCurrency: "BRL",
			Limit:           -500,
		},
	}
}

func TestDepositAndWithdrawThroughActor(t *testing.T) {
	h := Spawn(1, testDeps(newMemBackend()))
	ctx := context.Background()

	reply, err := h.Deposit(ctx, 1000, "BRL", nil)
	require.NoError(t, err)
	require.Equal(t, money.KindOk, reply.Kind)

	reply, err = h.Withdraw(ctx, 300, "BRL", nil)
	require.NoError(t, err)
	require.Equal(t, money.KindOk, reply.Kind)

	balReply, err := h.Balance(ctx, "BRL")
	require.NoError(t, err)
	require.Equal(t, 700, balReply.Balance)
}

func TestWithdrawDeniedStillRecordsOperation(t *testing.T) {
	h := Spawn(2, testDeps(newMemBackend()))
	ctx := context.Background()

	reply, err := h.Withdraw(ctx, 1000, "BRL", nil)
	require.NoError(t, err)
	require.Equal(t, money.KindDenied, reply.Kind)

	balances, err := h.Balances(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, balances.Balances["BRL"])

	opReply, err := h.Operation(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, money.StatusDenied, opReply.Operation.Status)
}

func TestRehydrationAdoptsPersistedAccount(t *testing.T) {
	backend := newMemBackend()
	deps := testDeps(backend)

	h1 := Spawn(3, deps)
	_, err := h1.Deposit(context.Background(), 5000, "USD", nil)
	require.NoError(t, err)

	// A second actor constructed against the same backend for the same id
	// must adopt the persisted balance rather than starting fresh.
	h2 := Spawn(3, testDeps(backend))
	balReply, err := h2.Balance(context.Background(), "USD")
	require.NoError(t, err)
	require.Equal(t, 5000, balReply.Balance)
}

func TestIdleActorClosesStoppedAndDeregisters(t *testing.T) {
	deps := testDeps(newMemBackend())
	deps.IdleTimeout = 20 * time.Millisecond

	fd := &fakeDeregisterer{ok: true}
	deps.Registry = fd

	h := Spawn(4, deps)

	select {
	case <-h.stopped:
	case <-time.After(time.Second):
		t.Fatal("actor did not idle out")
	}
	require.True(t, fd.called)

	_, err := h.Deposit(context.Background(), 10, "BRL", nil)
	require.ErrorIs(t, err, ErrActorStopped)
}

type fakeDeregisterer struct {
	mu     sync.Mutex
	ok     bool
	called bool
}

func (f *fakeDeregisterer) Deregister(int, *Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	return f.ok
}

func TestCardTransactionThenRefundThroughActor(t *testing.T) {
	h := Spawn(5, testDeps(newMemBackend()))
	ctx := context.Background()

	_, err := h.Deposit(ctx, 1000, "BRL", nil)
	require.NoError(t, err)

	reply, err := h.CardTransaction(ctx, 400, "BRL", "card-1", nil)
	require.NoError(t, err)
	require.Equal(t, money.KindOk, reply.Kind)
	cardOpID := reply.Operation.ID

	balReply, _ := h.Balance(ctx, "BRL")
	require.Equal(t, 600, balReply.Balance)

	refundReply, err := h.Refund(ctx, cardOpID)
	require.NoError(t, err)
	require.Equal(t, money.KindOk, refundReply.Kind)

	balReply, _ = h.Balance(ctx, "BRL")
	require.Equal(t, 1000, balReply.Balance)
}

package actor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bank-api/internal/actor"
	"bank-api/internal/domain/money"
	"bank-api/internal/registry"
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

func newTestRegistry(backend storage.Backend) *registry.Registry {
	pool := storage.NewPool(4, backend)
	return registry.New(func(accountID int) actor.Deps {
		return actor.Deps{
			Storage:       pool,
			AccountFolder: "accounts",
			IdleTimeout:   time.Hour,
			DefaultOptions: money.Options{
				DefaultCurrency: "BRL",
				Limit:           -500,
			},
		}
	})
}

func TestTransferOutSingleCreditsRecipient(t *testing.T) {
	reg := newTestRegistry(newMemBackend())
	ctx := context.Background()

	sender, err := reg.Lookup(ctx, 10)
	require.NoError(t, err)
	_, err = sender.Deposit(ctx, 1000, "BRL", nil)
	require.NoError(t, err)

	reply, err := sender.TransferOut(ctx, 300, "BRL", 20, nil)
	require.NoError(t, err)
	require.Equal(t, money.KindOk, reply.Kind)
	require.Equal(t, money.TransferIn, reply.RecipientOperation.Type)

	senderBal, _ := sender.Balance(ctx, "BRL")
	require.Equal(t, 700, senderBal.Balance)

	recipient, err := reg.Lookup(ctx, 20)
	require.NoError(t, err)
	recipientBal, _ := recipient.Balance(ctx, "BRL")
	require.Equal(t, 300, recipientBal.Balance)
}

func TestMutualSimultaneousTransfersDoNotDeadlock(t *testing.T) {
	reg := newTestRegistry(newMemBackend())
	ctx := context.Background()

	a, err := reg.Lookup(ctx, 100)
	require.NoError(t, err)
	b, err := reg.Lookup(ctx, 200)
	require.NoError(t, err)

	_, err = a.Deposit(ctx, 1000, "BRL", nil)
	require.NoError(t, err)
	_, err = b.Deposit(ctx, 1000, "BRL", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	var aErr, bErr error
	go func() {
		defer wg.Done()
		_, aErr = a.TransferOut(ctx, 100, "BRL", 200, nil)
	}()
	go func() {
		defer wg.Done()
		_, bErr = b.TransferOut(ctx, 100, "BRL", 100, nil)
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutual transfer deadlocked")
	}
	require.NoError(t, aErr)
	require.NoError(t, bErr)

	aBal, _ := a.Balance(ctx, "BRL")
	bBal, _ := b.Balance(ctx, "BRL")
	require.Equal(t, 1000, aBal.Balance)
	require.Equal(t, 1000, bBal.Balance)
}

func TestTransferOutSplitCreditsAllRecipientsInOrder(t *testing.T) {
	reg := newTestRegistry(newMemBackend())
	ctx := context.Background()

	sender, err := reg.Lookup(ctx, 1)
	require.NoError(t, err)
	_, err = sender.Deposit(ctx, 10000, "BRL", nil)
	require.NoError(t, err)

	recipients := []money.SplitRecipient{
		{Percentage: 0.7, RecipientAccountID: 2},
		{Percentage: 0.2, RecipientAccountID: 3},
		{Percentage: 0.1, RecipientAccountID: 4},
	}
	reply, err := sender.TransferOutSplit(ctx, 1000, "BRL", recipients, nil)
	require.NoError(t, err)
	require.Equal(t, money.KindOk, reply.Kind)
	require.Len(t, reply.RecipientOperations, 3)

	for i, id := range []int{2, 3, 4} {
		h, err := reg.Lookup(ctx, id)
		require.NoError(t, err)
		balReply, err := h.Balance(ctx, "BRL")
		require.NoError(t, err)
		require.Equal(t, reply.Operations[i].Data[money.DataAmount], balReply.Balance)
	}
}

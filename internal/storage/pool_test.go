package storage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bank-api/internal/storage"

	"github.com/stretchr/testify/assert"
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
	time.Sleep(time.Millisecond) // exercise FIFO ordering under latency
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

func TestStoreSyncThenGetRoundTrips(t *testing.T) {
	pool := storage.NewPool(3, newMemBackend())

	require.NoError(t, pool.StoreSync("accounts", "1", 42))

	var out int
	found, err := pool.Get("accounts", "1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 42, out)
}

func TestGetAbsentKeyNotFound(t *testing.T) {
	pool := storage.NewPool(3, newMemBackend())

	var out int
	found, err := pool.Get("accounts", "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConcurrentSameKeyStoresKeepOneWrittenValue(t *testing.T) {
	pool := storage.NewPool(4, newMemBackend())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, pool.StoreSync("accounts", "same-key", i))
		}(i)
	}
	wg.Wait()

	var out int
	found, err := pool.Get("accounts", "same-key", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.GreaterOrEqual(t, out, 0)
	assert.Less(t, out, n)
}

func TestStoreAsyncEventuallyVisible(t *testing.T) {
	pool := storage.NewPool(2, newMemBackend())

	pool.StoreAsync("exchange", "bucket", "snapshot-value")

	require.Eventually(t, func() bool {
		var out string
		found, err := pool.Get("exchange", "bucket", &out)
		return err == nil && found && out == "snapshot-value"
	}, time.Second, 5*time.Millisecond)
}

package rates_test

import (
	"context"
	"testing"
	"time"

	"bank-api/internal/domain/rates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	table := rates.New(map[string]float64{"USD": 1, "BRL": 5.45}, "USD")

	amount, rate, err := table.Convert(100, "USD", "BRL")
	require.NoError(t, err)
	assert.Equal(t, 545, amount)
	assert.InDelta(t, 5.45, rate, 0.0001)
}

func TestConvertUnknownCurrency(t *testing.T) {
	table := rates.New(map[string]float64{"USD": 1}, "USD")
	_, _, err := table.Convert(100, "USD", "XYZ")
	assert.Error(t, err)
}

func TestConvertRoundTripApproximatelyPreservesAmount(t *testing.T) {
	table := rates.New(map[string]float64{"USD": 1, "BRL": 5.45}, "USD")
	amount, _, err := table.Convert(1000, "USD", "BRL")
	require.NoError(t, err)
	back, _, err := table.Convert(amount, "BRL", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 1000, back, 2)
}

type fakeSink struct {
	calls int
}

func (f *fakeSink) StoreAsync(folder, key string, value interface{}) {
	f.calls++
}

func TestRefresherUpdatesTableAndPublishesSnapshot(t *testing.T) {
	table := rates.New(map[string]float64{"USD": 1}, "USD")
	sink := &fakeSink{}
	fetch := func(ctx context.Context) (rates.Snapshot, error) {
		return rates.Snapshot{"USD": 1, "EUR": 0.9}, nil
	}
	refresher := rates.NewRefresher(table, 10*time.Millisecond, "exchange", fetch, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	refresher.Run(ctx)

	snap := table.Snapshot()
	assert.Equal(t, 0.9, snap["EUR"])
	assert.GreaterOrEqual(t, sink.calls, 1)
}

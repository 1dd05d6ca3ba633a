// Package rates implements the process-wide exchange-rate table: a
// read-mostly map of currency code to a rate expressed against a pivot
// currency, refreshed on a ticker. Reads never block on the refresher;
// the table swaps in a fresh immutable snapshot on every tick.
package rates

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bank-api/internal/metrics"
	"bank-api/internal/pkg/logging"
)

// Snapshot is an immutable currency -> rate table at one point in time.
type Snapshot map[string]float64

// Table is the process-wide, concurrent-safe rates table. The zero
// value is not usable; construct with New.
type Table struct {
	mu       sync.RWMutex
	snapshot Snapshot
	pivot    string
}

// New seeds a Table from a static table keyed by currency code.
func New(seed map[string]float64, pivot string) *Table {
	snap := make(Snapshot, len(seed))
	for code, rate := range seed {
		snap[normalize(code)] = rate
	}
	return &Table{snapshot: snap, pivot: normalize(pivot)}
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Convert implements money.Converter: new_amount = round(amount*rate)
// where rate = rate[to] / rate[from].
func (t *Table) Convert(amount int, from, to string) (int, float64, error) {
	from, to = normalize(from), normalize(to)

	t.mu.RLock()
	fromRate, fromOK := t.snapshot[from]
	toRate, toOK := t.snapshot[to]
	t.mu.RUnlock()

	if !fromOK {
		return 0, 0, fmt.Errorf("rates: unknown currency %q", from)
	}
	if !toOK {
		return 0, 0, fmt.Errorf("rates: unknown currency %q", to)
	}

	rate := toRate / fromRate
	newAmount := roundHalfAwayFromZero(float64(amount) * rate)
	return newAmount, rate, nil
}

func roundHalfAwayFromZero(x float64) int {
	if x >= 0 {
		return int(x + 0.5)
	}
	return -int(-x + 0.5)
}

// Snapshot returns a copy of the currently visible rate table.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(Snapshot, len(t.snapshot))
	for k, v := range t.snapshot {
		out[k] = v
	}
	return out
}

// Set replaces the table's contents atomically. The single writer is
// the refresher goroutine started by Run.
func (t *Table) Set(next Snapshot) {
	normalized := make(Snapshot, len(next))
	for k, v := range next {
		normalized[normalize(k)] = v
	}
	t.mu.Lock()
	t.snapshot = normalized
	t.mu.Unlock()
}

// Sink receives a snapshot on every refresh tick, keyed by the
// YYYYMMDDHH bucket it was taken at. The storage pool's StoreAsync
// (store_async) implements this — refresh publication is a
// collector-style sink, never on the account write-through path.
type Sink interface {
	StoreAsync(folder, key string, value interface{})
}

// Refresher drives the periodic refresh described in spec §4.5: on
// every tick it recomputes the table (via fetch) and republishes it to
// the storage pool under the "exchange" folder, keyed by time bucket.
type Refresher struct {
	table    *Table
	interval time.Duration
	folder   string
	fetch    func(ctx context.Context) (Snapshot, error)
	sink     Sink
}

// NewRefresher wires a Table to a periodic fetch function and a sink
// for persisting the refreshed snapshot.
func NewRefresher(table *Table, interval time.Duration, folder string, fetch func(ctx context.Context) (Snapshot, error), sink Sink) *Refresher {
	return &Refresher{table: table, interval: interval, folder: folder, fetch: fetch, sink: sink}
}

// Run starts the refresh ticker and blocks until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			r.refreshOnce(ctx, tick)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context, at time.Time) {
	snap, err := r.fetch(ctx)
	if err != nil {
		logging.Warn("rates refresh failed", map[string]interface{}{"error": err.Error()})
		metrics.RecordRatesRefresh("error")
		return
	}
	r.table.Set(snap)

	key := at.UTC().Format("2006010215")
	if r.sink != nil {
		r.sink.StoreAsync(r.folder, key, snap)
	}
	metrics.RecordRatesRefresh("ok")
	logging.Info("rates refreshed", map[string]interface{}{"bucket": key, "currencies": len(snap)})
}

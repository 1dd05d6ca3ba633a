// Package storage implements the sharded worker pool described in
// spec.md §4.4: a fixed number of worker goroutines, each owning a
// private request channel, selected by a stable hash of the key. All
// requests for a given key land on the same worker and are processed
// in the order they arrive at the pool, which is what gives a
// (folder, key) its per-key FIFO ordering guarantee.
package storage

import (
	"context"
	"fmt"
	"hash/fnv"

	"bank-api/internal/pkg/logging"
)

type opKind int

const (
	opStore opKind = iota
	opGet
)

type request struct {
	kind    opKind
	folder  string
	key     string
	payload []byte
	respond chan response // nil for a fire-and-forget async store
}

type response struct {
	payload []byte
	found   bool
	err     error
}

// Pool is the fixed-size, key-sharded worker pool. Construct with NewPool.
type Pool struct {
	workers []chan request
	backend Backend
}

// NewPool starts n worker goroutines backed by backend. n must be >= 1.
func NewPool(n int, backend Backend) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		workers: make([]chan request, n),
		backend: backend,
	}
	for i := range p.workers {
		ch := make(chan request, 256)
		p.workers[i] = ch
		go p.runWorker(ch)
	}
	return p
}

// slot computes the stable hash that selects a key's worker.
func (p *Pool) slot(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(p.workers)
}

func (p *Pool) runWorker(ch chan request) {
	ctx := context.Background()
	for req := range ch {
		switch req.kind {
		case opStore:
			err := p.backend.Put(ctx, req.folder, req.key, req.payload)
			if req.respond != nil {
				req.respond <- response{err: err}
			} else if err != nil {
				logging.Error("storage: async store failed", err, map[string]interface{}{
					"folder": req.folder,
					"key":    req.key,
				})
			}
		case opGet:
			payload, found, err := p.backend.Get(ctx, req.folder, req.key)
			req.respond <- response{payload: payload, found: found, err: err}
		}
	}
}

// StoreSync blocks until value is durably written under (folder, key).
// This is the only write path the account actor is allowed to use for
// authoritative state.
func (p *Pool) StoreSync(folder, key string, value interface{}) error {
	payload, err := Encode(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s/%s: %w", folder, key, err)
	}
	respond := make(chan response, 1)
	p.workers[p.slot(key)] <- request{kind: opStore, folder: folder, key: key, payload: payload, respond: respond}
	res := <-respond
	return res.err
}

// StoreAsync enqueues the write and returns immediately; delivery is
// best-effort beyond per-key FIFO. Reserved for collector-style sinks
// (the rates refresher's snapshot publication) — never for authoritative
// account state.
func (p *Pool) StoreAsync(folder, key string, value interface{}) {
	payload, err := Encode(value)
	if err != nil {
		logging.Error("storage: async encode failed", err, map[string]interface{}{"folder": folder, "key": key})
		return
	}
	p.workers[p.slot(key)] <- request{kind: opStore, folder: folder, key: key, payload: payload}
}

// Get blocks and returns the latest value visible to key's slot,
// decoding it into out (a pointer to the concrete type originally
// passed to StoreSync/StoreAsync). Returns found=false if absent.
func (p *Pool) Get(folder, key string, out interface{}) (found bool, err error) {
	respond := make(chan response, 1)
	p.workers[p.slot(key)] <- request{kind: opGet, folder: folder, key: key, respond: respond}
	res := <-respond
	if res.err != nil {
		return false, fmt.Errorf("storage: get %s/%s: %w", folder, key, res.err)
	}
	if !res.found {
		return false, nil
	}
	if err := Decode(res.payload, out); err != nil {
		return false, fmt.Errorf("storage: decode %s/%s: %w", folder, key, err)
	}
	return true, nil
}

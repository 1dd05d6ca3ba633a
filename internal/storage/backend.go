package storage

import "context"

// Backend is the durable layer a pool worker writes through to. The
// pool owns sharding and per-key ordering; a Backend only needs to put
// and get raw bytes by (folder, key) — it is intentionally ignorant of
// Account/Operation/rates shapes.
//
// An optional replication hook (spec §9) would live here: a Backend
// implementation that fans Put out to a secondary node after the local
// write succeeds. Not implemented — the spec's intended deployment is
// single-node and this repository ships only the file and Postgres
// backends.
type Backend interface {
	Put(ctx context.Context, folder, key string, value []byte) error
	Get(ctx context.Context, folder, key string) ([]byte, bool, error)
}

// Package registry maps account ids to their live actor, spawning one
// on first use and retiring the mapping when the actor idles out. It is
// the only piece of the system that knows how to construct an actor,
// which is what lets internal/actor depend on registry only through the
// actor.Locator/actor.Deregisterer interfaces instead of importing it.
package registry

import (
	"context"
	"sync"

	"bank-api/internal/actor"
	"bank-api/internal/domain/money"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	actors  map[int]*actor.Handle
	newDeps func(accountID int) actor.Deps
}

// New builds a Registry. newDeps is invoked once per spawn to produce
// that actor's Deps (storage pool, converter, idle timeout, etc.) — the
// Locator and Registry fields within it are filled in by Registry itself
// so every actor resolves cross-account calls back through this map.
func New(newDeps func(accountID int) actor.Deps) *Registry {
	return &Registry{
		actors:  make(map[int]*actor.Handle),
		newDeps: newDeps,
	}
}

// Lookup returns the live actor for accountID, spawning one if none is
// currently registered. Concurrent callers for the same id that race
// here are serialized by r.mu, so exactly one spawn happens and every
// caller observes the same handle.
func (r *Registry) Lookup(_ context.Context, accountID int) (*actor.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.actors[accountID]; ok {
		return h, nil
	}

	deps := r.newDeps(accountID)
	deps.Locator = r
	deps.Registry = r
	h := actor.Spawn(accountID, deps)
	r.actors[accountID] = h
	return h, nil
}

// Deregister removes accountID's mapping, but only if self is still the
// handle on file — called by an idling actor right before it stops, so
// a Lookup that raced in just ahead of the idle timeout is never handed
// a handle that's about to disappear out from under it.
func (r *Registry) Deregister(accountID int, self *actor.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.actors[accountID] != self {
		return false
	}
	delete(r.actors, accountID)
	return true
}

// Count returns the current number of live actors, for metrics.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}

// ServeProcess resolves accountID's actor, retrying once against a fresh
// lookup if the handle in hand just stopped (actor.ErrActorStopped) —
// the one case the locator can't absorb internally, since the stale
// handle was already returned to the caller before the race happened.
func ServeProcess(ctx context.Context, r *Registry, accountID int, do func(*actor.Handle) (actor.Reply, error)) (actor.Reply, error) {
	h, err := r.Lookup(ctx, accountID)
	if err != nil {
		return actor.Reply{}, err
	}
	reply, err := do(h)
	if err == actor.ErrActorStopped {
		h, err = r.Lookup(ctx, accountID)
		if err != nil {
			return actor.Reply{}, err
		}
		return do(h)
	}
	return reply, err
}

// DefaultOptionsFor builds the Options used to seed a brand-new account
// the first time it's addressed, per the registry's configured defaults.
func DefaultOptionsFor(defaultCurrency string, limit int) money.Options {
	return money.Options{DefaultCurrency: defaultCurrency, Limit: limit}
}

// Package actor implements the per-account actor described in spec.md
// §4.2: one goroutine per account id, owning exactly one Account value,
// serving requests strictly in arrival order, write-through persisting
// every accepted mutation, and self-terminating after an idle interval.
//
// The actor's serve loop follows the same shape as the teacher's event
// broker (a single goroutine parked in a `for { select {...} }`), just
// applied to per-account mailboxes instead of pub/sub fan-out.
package actor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bank-api/internal/domain/money"
	"bank-api/internal/metrics"
	"bank-api/internal/pkg/logging"
	"bank-api/internal/storage"
)

// ErrActorStopped is returned by a Handle whose actor has already
// terminated (idle timeout). Callers MUST treat this as "look the
// account up again" — the registry will spawn a fresh actor.
var ErrActorStopped = errors.New("actor: stopped")

// Locator resolves another account's live actor, spawning one if
// necessary. The registry implements this; the actor package only
// depends on the interface to avoid an import cycle (registry needs to
// construct actors, actors need to reach other accounts' actors).
type Locator interface {
	Lookup(ctx context.Context, accountID int) (*Handle, error)
}

// Deregisterer removes an actor's registration, but only if it is still
// the one registered — a compare-and-delete keeping idle-timeout
// shutdown race-free against a concurrent Lookup.
type Deregisterer interface {
	Deregister(accountID int, self *Handle) bool
}

// Deps bundles everything an actor needs beyond its own account id.
type Deps struct {
	Storage        *storage.Pool
	Converter      money.Converter
	Locator        Locator
	Registry       Deregisterer
	AccountFolder  string
	IdleTimeout    time.Duration
	DefaultOptions money.Options
	// OnApplied is called, from the actor's own goroutine, once per
	// persisted mutation (Ok or Denied — anything that changed the
	// ledger). Used to feed the SSE broker / Kafka publisher without
	// the actor importing either.
	OnApplied func(accountID int, ops []money.Operation)
}

// Handle is the external, safe-to-share reference to a live actor.
type Handle struct {
	id      int
	inbox   chan request
	stopped chan struct{}
}

func (h *Handle) AccountID() int { return h.id }

// send delivers req to the actor, rendezvousing on an unbuffered
// channel so no message can be silently dropped by an actor that is
// mid-shutdown: either the actor receives it (and will process it
// before considering itself idle again), or the actor has already
// closed `stopped`, in which case the caller gets ErrActorStopped and
// is expected to re-resolve the account through the registry.
func (h *Handle) send(ctx context.Context, req request) error {
	select {
	case h.inbox <- req:
		return nil
	case <-h.stopped:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call sends req and waits for its outcome, subject to ctx.
func (h *Handle) call(ctx context.Context, req request) (Reply, error) {
	reply := make(chan outcome, 1)
	req.reply = reply
	if err := h.send(ctx, req); err != nil {
		return Reply{}, err
	}
	select {
	case out := <-reply:
		return out.reply, out.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// actorState is the goroutine-private state; nothing outside this
// package's run loop ever touches it directly.
type actorState struct {
	id      int
	deps    Deps
	account money.Account
	handle  *Handle
}

// Spawn starts a new actor for id and returns its handle. Rehydration
// runs synchronously before Spawn returns: the caller (the registry)
// never hands out a handle for an actor that hasn't yet adopted its
// persisted state (or, absent one, written its fresh initial state
// through).
func Spawn(id int, deps Deps) *Handle {
	h := &Handle{
		id:      id,
		inbox:   make(chan request),
		stopped: make(chan struct{}),
	}
	st := &actorState{id: id, deps: deps, handle: h}
	st.rehydrate()

	go st.run()
	return h
}

func (st *actorState) rehydrate() {
	var stored money.Account
	found, err := st.deps.Storage.Get(st.deps.AccountFolder, strconv.Itoa(st.id), &stored)
	if err != nil {
		logging.Error("actor: rehydration read failed, starting fresh in-memory", err, map[string]interface{}{"account_id": st.id})
		st.account = money.New(st.id, st.deps.DefaultOptions)
		return
	}
	if found {
		st.account = stored
		logging.Debug("actor: rehydrated from storage", map[string]interface{}{"account_id": st.id})
		return
	}

	st.account = money.New(st.id, st.deps.DefaultOptions)
	if err := st.deps.Storage.StoreSync(st.deps.AccountFolder, strconv.Itoa(st.id), st.account); err != nil {
		logging.Error("actor: initial write-through failed", err, map[string]interface{}{"account_id": st.id})
	}
}

func (st *actorState) run() {
	idle := time.NewTimer(st.deps.IdleTimeout)
	defer idle.Stop()

	logging.Debug("actor: started", map[string]interface{}{"account_id": st.id})

	for {
		select {
		case req := <-st.handle.inbox:
			if !idle.Stop() {
				<-idle.C
			}
			st.dispatch(req)
			idle.Reset(st.deps.IdleTimeout)

		case <-idle.C:
			if st.deps.Registry != nil && !st.deps.Registry.Deregister(st.id, st.handle) {
				// Lost the race to a concurrent lookup that is about to
				// use this same handle; stay alive and keep serving.
				idle.Reset(st.deps.IdleTimeout)
				continue
			}
			close(st.handle.stopped)
			logging.Debug("actor: idle timeout, terminated", map[string]interface{}{"account_id": st.id})
			return
		}
	}
}

// persist writes st.account through to storage and, only on success,
// notifies OnApplied. Callers must already have applied the mutation to
// st.account before calling persist.
func (st *actorState) persist(ops []money.Operation) error {
	if err := st.deps.Storage.StoreSync(st.deps.AccountFolder, strconv.Itoa(st.id), st.account); err != nil {
		return fmt.Errorf("actor: write-through failed for account %d: %w", st.id, err)
	}
	for _, op := range ops {
		metrics.RecordBankingOperation(string(op.Type), string(op.Status))
	}
	if defaultBalance, ok := st.account.Balances[st.account.DefaultCurrency]; ok {
		metrics.RecordAccountBalance(float64(defaultBalance))
	}
	if st.deps.OnApplied != nil && len(ops) > 0 {
		st.deps.OnApplied(st.id, ops)
	}
	return nil
}

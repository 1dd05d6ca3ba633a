package handlers

import (
	"bank-api/internal/domain/rates"
	"bank-api/internal/infrastructure/messaging"
	"bank-api/internal/registry"
)

// Dependencies bundles everything a handler needs beyond the request
// itself. Built once in internal/pkg/components and closed over by every Make*Handler,
// the same shape the teacher's HandlerDependencies container used,
// collapsed from an interface to a concrete struct now that there's only
// ever one real implementation (no more database.Repository stand-in to
// swap out in tests — tests construct a Dependencies with a fake registry
// backend directly).
//
// Publisher is not consulted on the request path: every persisted
// mutation is published through the actor's OnApplied hook (wired once
// in internal/pkg/components), not per-handler. It's kept here for the
// health handler; the container's Shutdown closes the same publisher
// through its own EventPublisher field.
type Dependencies struct {
	Registry  *registry.Registry
	Publisher messaging.EventPublisher
	Rates     *rates.Table
}

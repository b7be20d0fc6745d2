package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/feed"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/lifecycle"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store is the raw store; writers use a publishing wrapper around it
	Store kv.Store

	Connectors connectors.Registry
	Jobs       jobs.Ledger
	Documents  documents.Ledger

	// Broker carries job changes to the controller
	Broker feed.Broker

	Compute    batch.Compute
	Controller *lifecycle.Controller

	// Resync is nil when disabled by configuration
	Resync *lifecycle.Resync
}

// completionBinder is implemented by compute backends that push completions
type completionBinder interface {
	SetCompletionHandler(h batch.CompletionHandler)
}

// completionRelay hands completions to a handler bound after the compute
// backend was created, since the controller needs the backend first.
type completionRelay struct {
	mu      sync.RWMutex
	handler batch.CompletionHandler
}

var _ batch.CompletionHandler = (*completionRelay)(nil)

func (r *completionRelay) SetCompletionHandler(h batch.CompletionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// HandleCompletion fails until a handler is bound so that the backend
// redelivers the completion.
func (r *completionRelay) HandleCompletion(ctx context.Context, c batch.Completion) error {
	r.mu.RLock()
	h := r.handler
	r.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("no completion handler bound for batch job %s", c.Handle)
	}
	return h.HandleCompletion(ctx, c)
}

package feed

import (
	"context"
	"log/slog"
	"slices"

	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

// publishingStore announces every successful Put on the watched tables.
// A failed publish is logged and the write still succeeds; the resync
// coordinator republishes jobs whose event was lost.
type publishingStore struct {
	kv.Store
	publisher Publisher
	tables    []string
}

var _ kv.Store = (*publishingStore)(nil)

// NewPublishingStore wraps store so that writes to tables are published
func NewPublishingStore(store kv.Store, publisher Publisher, tables ...string) kv.Store {
	return &publishingStore{Store: store, publisher: publisher, tables: tables}
}

func (s *publishingStore) Put(ctx context.Context, item kv.Item, cond kv.Condition) (*kv.Item, error) {
	stored, err := s.Store.Put(ctx, item, cond)
	if err != nil {
		return nil, err
	}
	if slices.Contains(s.tables, stored.Table) {
		event := EventFromItem(stored)
		if err := s.publisher.Publish(ctx, event); err != nil {
			slog.ErrorContext(ctx, "Failed to publish change event",
				"table", event.Table, "key", event.Key, "status", event.Status, "error", err)
		}
	}
	return stored, nil
}

// Package feed carries change notifications for stored items from the
// writers to the lifecycle controller. Delivery is at-least-once; consumers
// must tolerate duplicates and reordering.
package feed

import (
	"context"
	"errors"

	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

//go:generate mockgen -destination=mocks/mock_feed.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/feed Publisher,Subscriber

// ErrClosed is returned when publishing to a closed broker
var ErrClosed = errors.New("feed closed")

// Event describes the state of an item right after it was written
type Event struct {
	Table   string `json:"table"`
	Scope   string `json:"scope"`
	Key     string `json:"key"`
	Owner   string `json:"owner"`
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// EventFromItem builds the event announcing item
func EventFromItem(item *kv.Item) Event {
	return Event{
		Table:   item.Table,
		Scope:   item.Scope,
		Key:     item.Key,
		Owner:   item.Owner,
		Status:  item.Status,
		Version: item.Version,
	}
}

// Handler processes one event. A non-nil error leaves the event pending so
// that it is delivered again.
type Handler func(ctx context.Context, event Event) error

// Publisher emits events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber delivers events to a handler until ctx is cancelled
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
}

// Broker is both ends of a feed
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

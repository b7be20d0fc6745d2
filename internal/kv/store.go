// Package kv provides the optimistic-locking key-value store shared by the
// connector registry, the job ledger and the document checksum ledger.
package kv

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/kv Store

var (
	// ErrNotFound is returned when the requested item does not exist
	ErrNotFound = errors.New("item not found")
	// ErrConditionFailed is returned when a write precondition does not hold
	ErrConditionFailed = errors.New("condition check failed")
)

// Table names used by the server.
const (
	TableConnectors = "connectors"
	TableJobs       = "jobs"
	TableDocuments  = "documents"
)

// Item is a single stored record. Scope partitions items per tenant and Owner
// is the secondary index key used to query items belonging to a parent
// resource (for example the jobs of a connector).
type Item struct {
	Table     string
	Scope     string
	Key       string
	Owner     string
	Status    string
	Version   int64
	Data      []byte
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the item's retention window has passed.
func (i *Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// Condition describes the preconditions a write must satisfy. All set fields
// are checked together with the write in a single storage operation.
type Condition struct {
	// MustExist requires an item to already be stored under the key
	MustExist bool
	// MustNotExist requires the key to be free
	MustNotExist bool
	// Version, when non-zero, requires the stored version to match
	Version int64
	// StatusNot, when set, requires the stored status to differ
	StatusNot string
}

// Query selects items of a table, optionally narrowed to a scope and owner.
type Query struct {
	Table  string
	Scope  string
	Owner  string
	Limit  int
	Cursor string
}

// Page is one page of a List result. Cursor is empty on the last page.
type Page struct {
	Items  []Item
	Cursor string
}

// Write is one element of a WriteBatch: an unconditional put of Item, or a
// delete of the item's key when Delete is set.
type Write struct {
	Item   Item
	Delete bool
}

// Store is the storage capability consumed by the registries.
type Store interface {
	// Get returns the item stored under table/scope/key
	Get(ctx context.Context, table, scope, key string) (*Item, error)
	// Put writes the item when cond holds and returns the stored item
	Put(ctx context.Context, item Item, cond Condition) (*Item, error)
	// Delete removes the item when cond holds
	Delete(ctx context.Context, table, scope, key string, cond Condition) error
	// WriteBatch applies unconditional writes in a single storage call.
	// Deleting an absent item is not an error.
	WriteBatch(ctx context.Context, writes []Write) error
	// List returns items in insertion order
	List(ctx context.Context, q Query) (*Page, error)
	// Sweep removes items whose expiry has passed and returns how many were removed
	Sweep(ctx context.Context, now time.Time) (int, error)
	// Ping checks the store is reachable
	Ping(ctx context.Context) error
	// Close releases the store's resources
	Close() error
}

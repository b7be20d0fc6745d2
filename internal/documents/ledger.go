// Package documents keeps the per-connector ledger of document checksums,
// the fingerprint of what was last synced to the external index.
package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/documents Ledger

// MaxBatchSize is the number of entries written in one storage call
const MaxBatchSize = 10

// Error codes reported for failed items
const (
	ErrorCodeInvalid  = "InvalidRequest"
	ErrorCodeInternal = "InternalError"
)

// Checksum is a ledger entry
type Checksum struct {
	DocumentID string    `json:"document_id"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FailedItem describes an entry that could not be written
type FailedItem struct {
	DocumentID   string `json:"document_id"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// Result is the outcome of a batch operation. A partially failed batch is
// still a successful call.
type Result struct {
	Failed []FailedItem `json:"failed_documents"`
}

// Ledger defines the operations on document checksums
type Ledger interface {
	// BatchPut records the checksums of the given documents
	BatchPut(ctx context.Context, scope service.Scope, connectorID string, items []Checksum) (*Result, error)
	// BatchDelete removes the entries of the given documents
	BatchDelete(ctx context.Context, scope service.Scope, connectorID string, documentIDs []string) (*Result, error)
	// List returns one page of the entries of a connector
	List(ctx context.Context, scope service.Scope, connectorID string, opts ...service.Option) ([]*Checksum, string, error)
}

// Option configures the ledger
type Option func(*ledger)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *ledger) {
		l.now = now
	}
}

type ledger struct {
	store      kv.Store
	connectors connectors.Registry
	now        func() time.Time
}

var _ Ledger = (*ledger)(nil)

// New returns a Ledger persisting checksums in store
func New(store kv.Store, registry connectors.Registry, opts ...Option) Ledger {
	l := &ledger{
		store:      store,
		connectors: registry,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func documentKey(connectorID, documentID string) string {
	return connectorID + "#" + documentID
}

func (l *ledger) BatchPut(
	ctx context.Context, scope service.Scope, connectorID string, items []Checksum,
) (*Result, error) {
	if _, err := l.connectors.Get(ctx, scope, connectorID); err != nil {
		return nil, err
	}

	result := &Result{Failed: []FailedItem{}}
	now := l.now()
	writes := make([]kv.Write, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, c := range items {
		if c.DocumentID == "" || c.Checksum == "" {
			result.Failed = append(result.Failed, FailedItem{
				DocumentID:   c.DocumentID,
				ErrorCode:    ErrorCodeInvalid,
				ErrorMessage: "document_id and checksum are required",
			})
			continue
		}
		c.CreatedAt = now
		c.UpdatedAt = now
		data, err := json.Marshal(c)
		if err != nil {
			return nil, service.Internal(err, "failed to encode checksum")
		}
		writes = append(writes, kv.Write{Item: kv.Item{
			Table: kv.TableDocuments,
			Scope: scope.String(),
			Key:   documentKey(connectorID, c.DocumentID),
			Owner: connectorID,
			Data:  data,
		}})
		ids = append(ids, c.DocumentID)
	}

	l.writeChunks(ctx, writes, ids, result)
	slog.InfoContext(ctx, "Stored document checksums",
		"connector_id", connectorID, "count", len(items), "failed", len(result.Failed))
	return result, nil
}

func (l *ledger) BatchDelete(
	ctx context.Context, scope service.Scope, connectorID string, documentIDs []string,
) (*Result, error) {
	if _, err := l.connectors.Get(ctx, scope, connectorID); err != nil {
		return nil, err
	}

	result := &Result{Failed: []FailedItem{}}
	writes := make([]kv.Write, 0, len(documentIDs))
	ids := make([]string, 0, len(documentIDs))
	for _, id := range documentIDs {
		if id == "" {
			result.Failed = append(result.Failed, FailedItem{
				ErrorCode:    ErrorCodeInvalid,
				ErrorMessage: "document_id is required",
			})
			continue
		}
		writes = append(writes, kv.Write{
			Item: kv.Item{
				Table: kv.TableDocuments,
				Scope: scope.String(),
				Key:   documentKey(connectorID, id),
			},
			Delete: true,
		})
		ids = append(ids, id)
	}

	l.writeChunks(ctx, writes, ids, result)
	slog.InfoContext(ctx, "Deleted document checksums",
		"connector_id", connectorID, "count", len(documentIDs), "failed", len(result.Failed))
	return result, nil
}

// writeChunks issues one storage call per MaxBatchSize writes. A failed call
// marks every entry of its chunk as failed.
func (l *ledger) writeChunks(ctx context.Context, writes []kv.Write, ids []string, result *Result) {
	for start := 0; start < len(writes); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(writes))
		if err := l.store.WriteBatch(ctx, writes[start:end]); err != nil {
			slog.ErrorContext(ctx, "Failed to write checksum batch", "error", err, "size", end-start)
			for _, id := range ids[start:end] {
				result.Failed = append(result.Failed, FailedItem{
					DocumentID:   id,
					ErrorCode:    ErrorCodeInternal,
					ErrorMessage: "Failed to write document checksum",
				})
			}
		}
	}
}

func (l *ledger) List(
	ctx context.Context, scope service.Scope, connectorID string, opts ...service.Option,
) ([]*Checksum, string, error) {
	listOpts, err := service.NewListOptions(opts...)
	if err != nil {
		return nil, "", err
	}
	if _, err := l.connectors.Get(ctx, scope, connectorID); err != nil {
		return nil, "", err
	}

	page, err := l.store.List(ctx, kv.Query{
		Table:  kv.TableDocuments,
		Scope:  scope.String(),
		Owner:  connectorID,
		Limit:  listOpts.Limit,
		Cursor: listOpts.Cursor,
	})
	if err != nil {
		return nil, "", service.FromStore(err, "documents of "+connectorID)
	}

	result := make([]*Checksum, 0, len(page.Items))
	for _, item := range page.Items {
		var c Checksum
		if err := json.Unmarshal(item.Data, &c); err != nil {
			return nil, "", service.Internal(err, fmt.Sprintf("failed to decode checksum %s", item.Key))
		}
		result = append(result, &c)
	}
	return result, page.Cursor, nil
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/httpclient"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/sync Ledger

// Ledger is the view of one connector's checksum ledger used by a sync run
type Ledger interface {
	// Checksums returns the checksum of every recorded document by id
	Checksums(ctx context.Context) (map[string]string, error)
	// PutChecksums records checksums and returns the entries that failed
	PutChecksums(ctx context.Context, items []documents.Checksum) ([]documents.FailedItem, error)
	// DeleteChecksums removes entries and returns the ones that failed
	DeleteChecksums(ctx context.Context, ids []string) ([]documents.FailedItem, error)
	// Checkpoint returns the saved checkpoint, or "" when there is none
	Checkpoint(ctx context.Context) (string, error)
	// SaveCheckpoint stores the checkpoint for the next run
	SaveCheckpoint(ctx context.Context, data string) error
}

// LocalLedger reads and writes the ledger in process
type LocalLedger struct {
	documents   documents.Ledger
	connectors  connectors.Registry
	scope       service.Scope
	connectorID string
}

var _ Ledger = (*LocalLedger)(nil)

// NewLocalLedger returns a ledger bound to one connector
func NewLocalLedger(
	docs documents.Ledger, registry connectors.Registry, scope service.Scope, connectorID string,
) *LocalLedger {
	return &LocalLedger{documents: docs, connectors: registry, scope: scope, connectorID: connectorID}
}

// Checksums pages through every entry of the connector
func (l *LocalLedger) Checksums(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string)
	cursor := ""
	for {
		opts := []service.Option{service.WithLimit(service.MaxPageSize)}
		if cursor != "" {
			opts = append(opts, service.WithCursor(cursor))
		}
		page, next, err := l.documents.List(ctx, l.scope, l.connectorID, opts...)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			result[c.DocumentID] = c.Checksum
		}
		if next == "" {
			return result, nil
		}
		cursor = next
	}
}

// PutChecksums records checksums
func (l *LocalLedger) PutChecksums(ctx context.Context, items []documents.Checksum) ([]documents.FailedItem, error) {
	res, err := l.documents.BatchPut(ctx, l.scope, l.connectorID, items)
	if err != nil {
		return nil, err
	}
	return res.Failed, nil
}

// DeleteChecksums removes entries
func (l *LocalLedger) DeleteChecksums(ctx context.Context, ids []string) ([]documents.FailedItem, error) {
	res, err := l.documents.BatchDelete(ctx, l.scope, l.connectorID, ids)
	if err != nil {
		return nil, err
	}
	return res.Failed, nil
}

// Checkpoint returns the connector checkpoint
func (l *LocalLedger) Checkpoint(ctx context.Context) (string, error) {
	cp, err := l.connectors.GetCheckpoint(ctx, l.scope, l.connectorID)
	if errors.Is(err, service.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cp.Data, nil
}

// SaveCheckpoint stores the connector checkpoint
func (l *LocalLedger) SaveCheckpoint(ctx context.Context, data string) error {
	_, err := l.connectors.PutCheckpoint(ctx, l.scope, l.connectorID, data)
	return err
}

// HTTPLedger reaches the ledger through the connector API
type HTTPLedger struct {
	client      httpclient.Client
	baseURL     string
	connectorID string
}

var _ Ledger = (*HTTPLedger)(nil)

// NewHTTPLedger returns a ledger client for one connector. baseURL is the
// root of the connector API.
func NewHTTPLedger(client httpclient.Client, baseURL, connectorID string) *HTTPLedger {
	return &HTTPLedger{client: client, baseURL: strings.TrimRight(baseURL, "/"), connectorID: connectorID}
}

func (l *HTTPLedger) connectorURL(suffix string) string {
	return l.baseURL + "/api/v1/custom-connectors/" + url.PathEscape(l.connectorID) + suffix
}

type listDocumentsResponse struct {
	Documents []documents.Checksum `json:"documents"`
	NextToken string               `json:"next_token,omitempty"`
}

type putDocumentsRequest struct {
	Documents []documents.Checksum `json:"documents"`
}

type deleteDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

type checkpointBody struct {
	CheckpointData string `json:"checkpoint_data"`
}

type checkpointResponse struct {
	Checkpoint checkpointBody `json:"checkpoint"`
}

// Checksums pages through every entry of the connector
func (l *HTTPLedger) Checksums(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string)
	token := ""
	for {
		query := url.Values{"max_results": {fmt.Sprint(service.MaxPageSize)}}
		if token != "" {
			query.Set("next_token", token)
		}
		var resp listDocumentsResponse
		if err := l.client.Do(ctx, http.MethodGet, l.connectorURL("/documents?"+query.Encode()), nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list document checksums: %w", err)
		}
		for _, c := range resp.Documents {
			result[c.DocumentID] = c.Checksum
		}
		if resp.NextToken == "" {
			return result, nil
		}
		token = resp.NextToken
	}
}

// PutChecksums records checksums in chunks of documents.MaxBatchSize
func (l *HTTPLedger) PutChecksums(ctx context.Context, items []documents.Checksum) ([]documents.FailedItem, error) {
	var failed []documents.FailedItem
	for start := 0; start < len(items); start += documents.MaxBatchSize {
		end := min(start+documents.MaxBatchSize, len(items))
		var resp documents.Result
		req := putDocumentsRequest{Documents: items[start:end]}
		if err := l.client.Do(ctx, http.MethodPost, l.connectorURL("/documents"), req, &resp); err != nil {
			return failed, fmt.Errorf("failed to put document checksums: %w", err)
		}
		failed = append(failed, resp.Failed...)
	}
	return failed, nil
}

// DeleteChecksums removes entries in chunks of documents.MaxBatchSize
func (l *HTTPLedger) DeleteChecksums(ctx context.Context, ids []string) ([]documents.FailedItem, error) {
	var failed []documents.FailedItem
	for start := 0; start < len(ids); start += documents.MaxBatchSize {
		end := min(start+documents.MaxBatchSize, len(ids))
		var resp documents.Result
		req := deleteDocumentsRequest{DocumentIDs: ids[start:end]}
		if err := l.client.Do(ctx, http.MethodDelete, l.connectorURL("/documents"), req, &resp); err != nil {
			return failed, fmt.Errorf("failed to delete document checksums: %w", err)
		}
		failed = append(failed, resp.Failed...)
	}
	return failed, nil
}

// Checkpoint returns the connector checkpoint
func (l *HTTPLedger) Checkpoint(ctx context.Context) (string, error) {
	var resp checkpointResponse
	err := l.client.Do(ctx, http.MethodGet, l.connectorURL("/checkpoint"), nil, &resp)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return resp.Checkpoint.CheckpointData, nil
}

// SaveCheckpoint stores the connector checkpoint
func (l *HTTPLedger) SaveCheckpoint(ctx context.Context, data string) error {
	if err := l.client.Do(ctx, http.MethodPut, l.connectorURL("/checkpoint"), checkpointBody{CheckpointData: data}, nil); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

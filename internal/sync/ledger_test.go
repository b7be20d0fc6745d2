package sync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/httpclient"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
	"github.com/stacklok/connector-lifecycle-server/internal/sync"
)

func ptr[T any](v T) *T {
	return &v
}

// newLocalLedger returns an in-process ledger for a fresh connector
func newLocalLedger(t *testing.T) (*sync.LocalLedger, string) {
	t.Helper()
	scope := service.Scope{Region: "us-west-2", Account: "123456789012"}
	store := kv.NewMemoryStore()
	registry := connectors.New(store)
	connector, err := registry.Create(context.Background(), scope, &connectors.CreateRequest{
		Name: "docs",
		ContainerProperties: connectors.ContainerPropertiesInput{
			ExecutionRoleARN: ptr("arn:aws:iam::123456789012:role/exec"),
			ImageURI:         ptr("registry.example.com/docs:1"),
			JobRoleARN:       ptr("arn:aws:iam::123456789012:role/job"),
		},
	})
	require.NoError(t, err)
	return sync.NewLocalLedger(documents.New(store, registry), registry, scope, connector.ID), connector.ID
}

func TestLocalLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger, _ := newLocalLedger(t)

	items := make([]documents.Checksum, 0, 120)
	for i := range 120 {
		items = append(items, documents.Checksum{DocumentID: fmt.Sprintf("doc-%03d", i), Checksum: fmt.Sprint(i)})
	}
	failed, err := ledger.PutChecksums(ctx, items)
	require.NoError(t, err)
	assert.Empty(t, failed)

	got, err := ledger.Checksums(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 120)
	assert.Equal(t, "42", got["doc-042"])

	failed, err = ledger.DeleteChecksums(ctx, []string{"doc-000", "doc-001"})
	require.NoError(t, err)
	assert.Empty(t, failed)
	got, err = ledger.Checksums(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 118)

	cp, err := ledger.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, cp)
	require.NoError(t, ledger.SaveCheckpoint(ctx, "abc123"))
	cp, err = ledger.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cp)
}

func TestHTTPLedger_Checksums(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/custom-connectors/cc-1/documents", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("max_results"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("next_token") {
		case "":
			_, _ = w.Write([]byte(`{"documents":[{"document_id":"a","checksum":"1"}],"next_token":"page-2"}`))
		case "page-2":
			_, _ = w.Write([]byte(`{"documents":[{"document_id":"b","checksum":"2"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)

	ledger := sync.NewHTTPLedger(httpclient.NewDefaultClient(5*time.Second), server.URL, "cc-1")
	got, err := ledger.Checksums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
}

func TestHTTPLedger_ChunksWrites(t *testing.T) {
	t.Parallel()

	var (
		mu      gosync.Mutex
		puts    []int
		deletes []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Documents []documents.Checksum `json:"documents"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			puts = append(puts, len(body.Documents))
			if len(puts) == 1 {
				_, _ = w.Write([]byte(`{"failed_documents":[{"document_id":"doc-03","error_code":"InternalError"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"failed_documents":[]}`))
		case http.MethodDelete:
			var body struct {
				DocumentIDs []string `json:"document_ids"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			deletes = append(deletes, len(body.DocumentIDs))
			_, _ = w.Write([]byte(`{"failed_documents":[]}`))
		}
	}))
	t.Cleanup(server.Close)

	items := make([]documents.Checksum, 0, 25)
	ids := make([]string, 0, 12)
	for i := range 25 {
		items = append(items, documents.Checksum{DocumentID: fmt.Sprintf("doc-%02d", i), Checksum: "c"})
		if i < 12 {
			ids = append(ids, fmt.Sprintf("doc-%02d", i))
		}
	}

	ledger := sync.NewHTTPLedger(httpclient.NewDefaultClient(5*time.Second), server.URL, "cc-1")
	failed, err := ledger.PutChecksums(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, []documents.FailedItem{{DocumentID: "doc-03", ErrorCode: "InternalError"}}, failed)

	failed, err = ledger.DeleteChecksums(context.Background(), ids)
	require.NoError(t, err)
	assert.Empty(t, failed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{10, 10, 5}, puts)
	assert.Equal(t, []int{10, 2}, deletes)
}

func TestHTTPLedger_Checkpoint(t *testing.T) {
	t.Parallel()

	var (
		mu    gosync.Mutex
		saved string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "/api/v1/custom-connectors/cc-1/checkpoint", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			if saved == "" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"Checkpoint not found","errorType":"ResourceNotFoundException"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"checkpoint": map[string]string{"checkpoint_data": saved}})
		case http.MethodPut:
			var body struct {
				Data string `json:"checkpoint_data"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			saved = body.Data
			_ = json.NewEncoder(w).Encode(map[string]any{"checkpoint_data": saved})
		}
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	ledger := sync.NewHTTPLedger(httpclient.NewDefaultClient(5*time.Second), server.URL, "cc-1")

	cp, err := ledger.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Empty(t, cp)

	require.NoError(t, ledger.SaveCheckpoint(ctx, "abc123"))

	cp, err = ledger.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cp)
}

func TestHTTPLedger_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	ledger := sync.NewHTTPLedger(httpclient.NewDefaultClient(5*time.Second), server.URL, "cc-1")
	_, err := ledger.Checksums(context.Background())
	assert.Error(t, err)
	_, err = ledger.Checkpoint(context.Background())
	assert.Error(t, err)
}

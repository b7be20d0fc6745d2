package sync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/connector-lifecycle-server/internal/httpclient"
	"github.com/stacklok/connector-lifecycle-server/internal/sync"
	"github.com/stacklok/connector-lifecycle-server/internal/sync/mocks"
)

func TestHTTPIndex(t *testing.T) {
	t.Parallel()

	var (
		mu       gosync.Mutex
		requests []string
		put      map[string]any
		deleted  map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/indices/idx-1/datasources/ds-1/syncjobs":
			_, _ = w.Write([]byte(`{"executionId":"exec-1"}`))
		case "/indices/idx-1/datasources/ds-1/syncjobs/exec-1/stop":
			w.WriteHeader(http.StatusNoContent)
		case "/indices/idx-1/documents":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			_, _ = w.Write([]byte(`{"failedDocuments":[{"id":"b","error":{"errorCode":"INVALID_REQUEST","errorMessage":"bad"}}]}`))
		case "/indices/idx-1/documents/delete":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&deleted))
			_, _ = w.Write([]byte(`{"failedDocuments":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()
	index := sync.NewHTTPIndex(httpclient.NewDefaultClient(5*time.Second), server.URL+"/", "idx-1", "ds-1")

	syncID, err := index.StartSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", syncID)

	failed, err := index.BatchPut(ctx, syncID, []sync.IndexDocument{
		{ID: "a", Title: "Guide", ContentType: sync.ContentTypeMarkdown, Content: sync.IndexContent{Blob: []byte("# A")}},
		{ID: "b", Content: sync.IndexContent{S3: &sync.S3Reference{Bucket: "docs", Key: "qbusiness-docs/b.pdf"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []sync.FailedDocument{{ID: "b", ErrorCode: "INVALID_REQUEST", ErrorMessage: "bad"}}, failed)
	mu.Lock()
	putBody := put
	mu.Unlock()
	assert.Equal(t, "exec-1", putBody["dataSourceSyncId"])
	docs := putBody["documents"].([]any)
	require.Len(t, docs, 2)
	assert.Equal(t, "IyBB", docs[0].(map[string]any)["content"].(map[string]any)["blob"])

	failed, err = index.BatchDelete(ctx, syncID, []string{"c", "d"})
	require.NoError(t, err)
	assert.Empty(t, failed)
	mu.Lock()
	deleteBody := deleted
	mu.Unlock()
	assert.Equal(t, []any{
		map[string]any{"documentId": "c"},
		map[string]any{"documentId": "d"},
	}, deleteBody["documents"])

	require.NoError(t, index.StopSync(ctx, syncID))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /indices/idx-1/datasources/ds-1/syncjobs",
		"POST /indices/idx-1/documents",
		"POST /indices/idx-1/documents/delete",
		"POST /indices/idx-1/datasources/ds-1/syncjobs/exec-1/stop",
	}, requests)
}

func TestHTTPIndex_Errors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"throttled"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	index := sync.NewHTTPIndex(httpclient.NewDefaultClient(5*time.Second), server.URL, "idx-1", "ds-1")
	_, err := index.StartSync(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, httpclient.StatusCode(err))

	_, err = index.BatchPut(context.Background(), "exec-1", nil)
	assert.Error(t, err)
}

func TestIndexDocumentAttributes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)
	expectSync(index)
	var sent []sync.IndexDocument
	index.EXPECT().BatchPut(gomock.Any(), "sync-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, docs []sync.IndexDocument) ([]sync.FailedDocument, error) {
			sent = docs
			return nil, nil
		})

	doc := sync.Document{
		ID:            "a",
		Path:          "a.md",
		SourceURI:     "https://example.com/a.md",
		Attributes:    map[string]string{"team": "search", "area": "docs"},
		Content:       []byte("# A"),
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastUpdatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		AccessControl: []sync.AccessControl{{
			MemberRelation: sync.MemberRelationOr,
			Principals:     []sync.Principal{{Group: &sync.PrincipalGroup{Name: "eng", Access: sync.AccessAllow}}},
		}},
	}

	_, err := sync.NewReconciler("cc-1", index).Reconcile(context.Background(), &staticProducer{docs: []sync.Document{doc}})
	require.NoError(t, err)

	require.Len(t, sent, 1)
	got := sent[0]
	names := make([]string, 0, len(got.Attributes))
	for _, a := range got.Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{sync.AttributeSourceURI, sync.AttributeLastUpdatedAt, sync.AttributeCreatedAt, "area", "team"}, names)
	assert.Equal(t, "https://example.com/a.md", *got.Attributes[0].Value.StringValue)
	assert.Equal(t, doc.LastUpdatedAt, *got.Attributes[1].Value.DateValue)
	require.NotNil(t, got.AccessConfiguration)
	assert.Equal(t, sync.MemberRelationAnd, got.AccessConfiguration.MemberRelation)
	assert.Equal(t, doc.AccessControl, got.AccessConfiguration.AccessControls)
	assert.Equal(t, sync.ContentTypeMarkdown, got.ContentType)
}

package sync

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/httpclient"
)

//go:generate mockgen -destination=mocks/mock_index.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/sync Index

// Attribute names set on every indexed document
const (
	AttributeSourceURI     = "_source_uri"
	AttributeLastUpdatedAt = "_last_updated_at"
	AttributeCreatedAt     = "_created_at"
)

// Index is the external document index being kept in sync
type Index interface {
	// StartSync opens a sync job and returns its identifier
	StartSync(ctx context.Context) (string, error)
	// StopSync closes the sync job
	StopSync(ctx context.Context, syncID string) error
	// BatchPut uploads documents and returns the ones the index rejected
	BatchPut(ctx context.Context, syncID string, docs []IndexDocument) ([]FailedDocument, error)
	// BatchDelete removes documents and returns the ones the index rejected
	BatchDelete(ctx context.Context, syncID string, ids []string) ([]FailedDocument, error)
}

// AttributeValue holds exactly one of its fields
type AttributeValue struct {
	StringValue *string    `json:"stringValue,omitempty"`
	DateValue   *time.Time `json:"dateValue,omitempty"`
}

// IndexAttribute is a named document attribute
type IndexAttribute struct {
	Name  string         `json:"name"`
	Value AttributeValue `json:"value"`
}

// S3Reference locates content uploaded to the object store
type S3Reference struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// IndexContent holds the content inline or by reference
type IndexContent struct {
	Blob []byte       `json:"blob,omitempty"`
	S3   *S3Reference `json:"s3,omitempty"`
}

// AccessConfiguration restricts who can see a document
type AccessConfiguration struct {
	AccessControls []AccessControl `json:"accessControls"`
	MemberRelation MemberRelation  `json:"memberRelation"`
}

// IndexDocument is a document in the wire form of the index
type IndexDocument struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title,omitempty"`
	ContentType         ContentType          `json:"contentType,omitempty"`
	Attributes          []IndexAttribute     `json:"attributes,omitempty"`
	AccessConfiguration *AccessConfiguration `json:"accessConfiguration,omitempty"`
	Content             IndexContent         `json:"content"`
}

// FailedDocument is a document the index did not accept
type FailedDocument struct {
	ID           string `json:"id"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// toIndexDocument converts doc. A nil ref sends the content inline.
func toIndexDocument(doc *Document, ref *S3Reference) IndexDocument {
	out := IndexDocument{
		ID:          doc.ID,
		Title:       doc.Title,
		ContentType: doc.ContentType,
	}
	if ref != nil {
		out.Content.S3 = ref
	} else {
		out.Content.Blob = doc.Content
	}

	if doc.SourceURI != "" {
		uri := doc.SourceURI
		out.Attributes = append(out.Attributes, IndexAttribute{
			Name: AttributeSourceURI, Value: AttributeValue{StringValue: &uri},
		})
	}
	if !doc.LastUpdatedAt.IsZero() {
		updated := doc.LastUpdatedAt.UTC()
		out.Attributes = append(out.Attributes, IndexAttribute{
			Name: AttributeLastUpdatedAt, Value: AttributeValue{DateValue: &updated},
		})
	}
	if !doc.CreatedAt.IsZero() {
		created := doc.CreatedAt.UTC()
		out.Attributes = append(out.Attributes, IndexAttribute{
			Name: AttributeCreatedAt, Value: AttributeValue{DateValue: &created},
		})
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Attributes)) {
		value := doc.Attributes[name]
		out.Attributes = append(out.Attributes, IndexAttribute{
			Name: name, Value: AttributeValue{StringValue: &value},
		})
	}

	if len(doc.AccessControl) > 0 {
		out.AccessConfiguration = &AccessConfiguration{
			AccessControls: doc.AccessControl,
			MemberRelation: MemberRelationAnd,
		}
	}
	return out
}

// HTTPIndex talks to an index that exposes the sync operations over JSON
type HTTPIndex struct {
	client   httpclient.Client
	baseURL  string
	indexID  string
	sourceID string
}

var _ Index = (*HTTPIndex)(nil)

// NewHTTPIndex returns an index client for the given index and data source
func NewHTTPIndex(client httpclient.Client, baseURL, indexID, sourceID string) *HTTPIndex {
	return &HTTPIndex{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		indexID:  indexID,
		sourceID: sourceID,
	}
}

func (x *HTTPIndex) indexURL(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "indices", url.PathEscape(x.indexID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return x.baseURL + "/" + strings.Join(escaped, "/")
}

type startSyncResponse struct {
	ExecutionID string `json:"executionId"`
}

// StartSync opens a sync job on the data source
func (x *HTTPIndex) StartSync(ctx context.Context) (string, error) {
	var resp startSyncResponse
	if err := x.client.Do(ctx, http.MethodPost, x.indexURL("datasources", x.sourceID, "syncjobs"), nil, &resp); err != nil {
		return "", fmt.Errorf("failed to start index sync: %w", err)
	}
	if resp.ExecutionID == "" {
		return "", fmt.Errorf("index returned an empty sync job id")
	}
	return resp.ExecutionID, nil
}

// StopSync closes the sync job on the data source
func (x *HTTPIndex) StopSync(ctx context.Context, syncID string) error {
	if err := x.client.Do(ctx, http.MethodPost, x.indexURL("datasources", x.sourceID, "syncjobs", syncID, "stop"), nil, nil); err != nil {
		return fmt.Errorf("failed to stop index sync %s: %w", syncID, err)
	}
	return nil
}

type batchPutRequest struct {
	DataSourceSyncID string          `json:"dataSourceSyncId"`
	Documents        []IndexDocument `json:"documents"`
}

type batchDeleteRequest struct {
	DataSourceSyncID string       `json:"dataSourceSyncId"`
	Documents        []documentID `json:"documents"`
}

type documentID struct {
	ID string `json:"documentId"`
}

type batchResponse struct {
	FailedDocuments []failedDocument `json:"failedDocuments"`
}

type failedDocument struct {
	ID    string `json:"id"`
	Error struct {
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"error"`
}

func (r *batchResponse) failed() []FailedDocument {
	out := make([]FailedDocument, 0, len(r.FailedDocuments))
	for _, f := range r.FailedDocuments {
		out = append(out, FailedDocument{ID: f.ID, ErrorCode: f.Error.ErrorCode, ErrorMessage: f.Error.ErrorMessage})
	}
	return out
}

// BatchPut uploads documents within the sync job
func (x *HTTPIndex) BatchPut(ctx context.Context, syncID string, docs []IndexDocument) ([]FailedDocument, error) {
	var resp batchResponse
	req := batchPutRequest{DataSourceSyncID: syncID, Documents: docs}
	if err := x.client.Do(ctx, http.MethodPost, x.indexURL("documents"), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to put documents: %w", err)
	}
	return resp.failed(), nil
}

// BatchDelete removes documents within the sync job
func (x *HTTPIndex) BatchDelete(ctx context.Context, syncID string, ids []string) ([]FailedDocument, error) {
	req := batchDeleteRequest{DataSourceSyncID: syncID, Documents: make([]documentID, 0, len(ids))}
	for _, id := range ids {
		req.Documents = append(req.Documents, documentID{ID: id})
	}
	var resp batchResponse
	if err := x.client.Do(ctx, http.MethodPost, x.indexURL("documents", "delete"), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to delete documents: %w", err)
	}
	return resp.failed(), nil
}

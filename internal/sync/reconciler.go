package sync

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/otel"
	"github.com/stacklok/connector-lifecycle-server/internal/telemetry"
)

// Limits of the index put and delete operations
const (
	// MaxBatchDocuments is the number of documents in one put or delete request
	MaxBatchDocuments = 10
	// MaxBatchBytes is the raw inline content carried by one put request.
	// The index limits decoded content, so the base64 growth of Blob on the
	// wire is not counted.
	MaxBatchBytes = 10 * 1024 * 1024
	// MaxInlineBytes is the largest document sent inline
	MaxInlineBytes = 10 * 1024 * 1024
	// MaxDocumentBytes is the largest document accepted at all
	MaxDocumentBytes = 50 * 1024 * 1024
)

// Skip reasons reported for documents that were not sent
const (
	SkipTooLarge           = "document exceeds the maximum size"
	SkipNoObjectStore      = "document exceeds the inline size and no object store is configured"
	SkipUploadFailed       = "document could not be uploaded to the object store"
	SkipUnsupportedContent = "unsupported content type"
)

// SkippedDocument is a document that was left out of the run
type SkippedDocument struct {
	ID     string
	Reason string
}

// Report summarizes a sync run
type Report struct {
	// Added counts documents the index accepted
	Added int
	// Deleted counts deletions the index accepted
	Deleted int
	// Unchanged counts documents whose checksum matched the ledger
	Unchanged int
	Skipped   []SkippedDocument
	Failed    []FailedDocument
}

// Reconciler pushes the changes observed by a Producer to an Index
type Reconciler struct {
	connectorID  string
	index        Index
	ledger       Ledger
	objects      ObjectStore
	objectPrefix string
	metrics      *telemetry.SyncMetrics
	tracer       trace.Tracer
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLedger filters documents against the checksum ledger and records what
// was synced. Without a ledger every document is sent on every run.
func WithLedger(ledger Ledger) Option {
	return func(r *Reconciler) {
		r.ledger = ledger
	}
}

// WithObjectStore offloads large documents to store under prefix
func WithObjectStore(store ObjectStore, prefix string) Option {
	return func(r *Reconciler) {
		r.objects = store
		if prefix != "" {
			r.objectPrefix = prefix
		}
	}
}

// WithMetrics records sync metrics
func WithMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(r *Reconciler) {
		r.metrics = metrics
	}
}

// WithTracer traces sync runs
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconciler) {
		r.tracer = tracer
	}
}

// NewReconciler creates a Reconciler syncing the documents of connectorID
func NewReconciler(connectorID string, index Index, opts ...Option) *Reconciler {
	r := &Reconciler{
		connectorID:  connectorID,
		index:        index,
		objectPrefix: DefaultObjectPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs one sync. The index sync job opened at the start is stopped
// on every path out, including failures and cancellation.
func (r *Reconciler) Reconcile(ctx context.Context, producer Producer) (*Report, error) {
	started := time.Now()
	ctx, span := otel.StartSpan(ctx, r.tracer, "sync.Reconcile",
		trace.WithAttributes(otel.AttrConnectorID.String(r.connectorID)))
	defer span.End()

	syncID, err := r.index.StartSync(ctx)
	if err != nil {
		otel.RecordError(span, err)
		r.metrics.RecordSyncDuration(ctx, r.connectorID, time.Since(started), false)
		return nil, err
	}
	slog.InfoContext(ctx, "Started index sync", "connector_id", r.connectorID, "sync_id", syncID)

	report := &Report{}
	err = r.reconcile(ctx, syncID, producer, report)

	if stopErr := r.index.StopSync(context.WithoutCancel(ctx), syncID); stopErr != nil {
		slog.WarnContext(ctx, "Failed to stop index sync", "sync_id", syncID, "error", stopErr)
		if err == nil {
			err = stopErr
		}
	}

	if err == nil {
		err = r.saveCheckpoint(ctx, producer)
	}

	r.record(ctx, report)
	r.metrics.RecordSyncDuration(ctx, r.connectorID, time.Since(started), err == nil)
	span.SetAttributes(
		attribute.Int("sync.added", report.Added),
		attribute.Int("sync.deleted", report.Deleted),
		attribute.Int("sync.skipped", len(report.Skipped)),
		attribute.Int("sync.failed", len(report.Failed)),
	)
	if err != nil {
		otel.RecordError(span, err)
		slog.ErrorContext(ctx, "Sync failed", "connector_id", r.connectorID, "error", err)
		return report, err
	}

	slog.InfoContext(ctx, "Sync completed",
		"connector_id", r.connectorID,
		"added", report.Added,
		"deleted", report.Deleted,
		"unchanged", report.Unchanged,
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
		"duration", time.Since(started))
	return report, nil
}

func (r *Reconciler) reconcile(ctx context.Context, syncID string, producer Producer, report *Report) error {
	known := map[string]string{}
	if r.ledger != nil {
		var err error
		if known, err = r.ledger.Checksums(ctx); err != nil {
			return fmt.Errorf("failed to list document checksums: %w", err)
		}
		slog.DebugContext(ctx, "Loaded document checksums", "count", len(known))
	}

	batch := &putBatch{}
	for doc, err := range producer.DocumentsToAdd(ctx) {
		if err != nil {
			return fmt.Errorf("failed to read documents: %w", err)
		}
		sum, err := Checksum(&doc)
		if err != nil {
			return err
		}
		if known[doc.ID] == sum {
			report.Unchanged++
			continue
		}

		prepared, inline, ok := r.prepare(ctx, &doc, report)
		if !ok {
			continue
		}
		if batch.size+inline > MaxBatchBytes {
			if err := r.flushPuts(ctx, syncID, batch, report); err != nil {
				return err
			}
		}
		batch.add(prepared, sum, inline)
		if len(batch.docs) == MaxBatchDocuments {
			if err := r.flushPuts(ctx, syncID, batch, report); err != nil {
				return err
			}
		}
	}
	if err := r.flushPuts(ctx, syncID, batch, report); err != nil {
		return err
	}

	ids := make([]string, 0, MaxBatchDocuments)
	for id, err := range producer.DocumentsToDelete(ctx) {
		if err != nil {
			return fmt.Errorf("failed to read deleted documents: %w", err)
		}
		ids = append(ids, id)
		if len(ids) == MaxBatchDocuments {
			if err := r.flushDeletes(ctx, syncID, ids, report); err != nil {
				return err
			}
			ids = make([]string, 0, MaxBatchDocuments)
		}
	}
	return r.flushDeletes(ctx, syncID, ids, report)
}

// prepare converts doc for the index. inline is the number of content bytes
// sent in the request body. ok is false when the document was skipped.
func (r *Reconciler) prepare(ctx context.Context, doc *Document, report *Report) (_ IndexDocument, inline int64, ok bool) {
	skip := func(reason string) (IndexDocument, int64, bool) {
		slog.WarnContext(ctx, "Skipping document", "document_id", doc.ID, "size", doc.Size(), "reason", reason)
		report.Skipped = append(report.Skipped, SkippedDocument{ID: doc.ID, Reason: reason})
		return IndexDocument{}, 0, false
	}

	if doc.ContentType == "" {
		ct, known := ContentTypeFromPath(doc.Path)
		if !known {
			return skip(SkipUnsupportedContent)
		}
		doc.ContentType = ct
	}

	size := doc.Size()
	if size > MaxDocumentBytes {
		return skip(SkipTooLarge)
	}
	if size <= MaxInlineBytes {
		return toIndexDocument(doc, nil), size, true
	}

	if r.objects == nil {
		return skip(SkipNoObjectStore)
	}
	key := ObjectKey(r.objectPrefix, doc)
	ref, err := r.objects.Upload(ctx, key, doc.Content, mimeType(doc.Path))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upload document", "document_id", doc.ID, "key", key, "error", err)
		return skip(SkipUploadFailed)
	}
	return toIndexDocument(doc, ref), 0, true
}

func mimeType(p string) string {
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

type putBatch struct {
	docs []IndexDocument
	sums []string
	size int64
}

func (b *putBatch) add(doc IndexDocument, sum string, inline int64) {
	b.docs = append(b.docs, doc)
	b.sums = append(b.sums, sum)
	b.size += inline
}

func (b *putBatch) reset() {
	b.docs = nil
	b.sums = nil
	b.size = 0
}

func (r *Reconciler) flushPuts(ctx context.Context, syncID string, batch *putBatch, report *Report) error {
	if len(batch.docs) == 0 {
		return nil
	}
	failed, err := r.index.BatchPut(ctx, syncID, batch.docs)
	if err != nil {
		return err
	}
	rejected := r.collectFailures(ctx, failed, report)

	checksums := make([]documents.Checksum, 0, len(batch.docs))
	for i, doc := range batch.docs {
		if _, ok := rejected[doc.ID]; ok {
			continue
		}
		checksums = append(checksums, documents.Checksum{DocumentID: doc.ID, Checksum: batch.sums[i]})
	}
	report.Added += len(checksums)
	slog.DebugContext(ctx, "Put document batch", "count", len(batch.docs), "bytes", batch.size, "failed", len(failed))
	batch.reset()

	if r.ledger == nil || len(checksums) == 0 {
		return nil
	}
	ledgerFailed, err := r.ledger.PutChecksums(ctx, checksums)
	if err != nil {
		return fmt.Errorf("failed to record document checksums: %w", err)
	}
	for _, f := range ledgerFailed {
		slog.WarnContext(ctx, "Failed to record document checksum",
			"document_id", f.DocumentID, "error_code", f.ErrorCode, "error", f.ErrorMessage)
	}
	return nil
}

func (r *Reconciler) flushDeletes(ctx context.Context, syncID string, ids []string, report *Report) error {
	if len(ids) == 0 {
		return nil
	}
	failed, err := r.index.BatchDelete(ctx, syncID, ids)
	if err != nil {
		return err
	}
	rejected := r.collectFailures(ctx, failed, report)

	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := rejected[id]; !ok {
			removed = append(removed, id)
		}
	}
	report.Deleted += len(removed)

	if r.ledger == nil || len(removed) == 0 {
		return nil
	}
	ledgerFailed, err := r.ledger.DeleteChecksums(ctx, removed)
	if err != nil {
		return fmt.Errorf("failed to delete document checksums: %w", err)
	}
	for _, f := range ledgerFailed {
		slog.WarnContext(ctx, "Failed to delete document checksum",
			"document_id", f.DocumentID, "error_code", f.ErrorCode, "error", f.ErrorMessage)
	}
	return nil
}

func (*Reconciler) collectFailures(ctx context.Context, failed []FailedDocument, report *Report) map[string]struct{} {
	rejected := make(map[string]struct{}, len(failed))
	for _, f := range failed {
		slog.WarnContext(ctx, "Index rejected document",
			"document_id", f.ID, "error_code", f.ErrorCode, "error", f.ErrorMessage)
		rejected[f.ID] = struct{}{}
	}
	report.Failed = append(report.Failed, failed...)
	return rejected
}

func (r *Reconciler) saveCheckpoint(ctx context.Context, producer Producer) error {
	cp, ok := producer.(Checkpointer)
	if !ok || r.ledger == nil {
		return nil
	}
	data := cp.Checkpoint()
	if data == "" {
		return nil
	}
	if err := r.ledger.SaveCheckpoint(ctx, data); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *Reconciler) record(ctx context.Context, report *Report) {
	r.metrics.RecordDocuments(ctx, r.connectorID, "added", report.Added)
	r.metrics.RecordDocuments(ctx, r.connectorID, "deleted", report.Deleted)
	r.metrics.RecordDocuments(ctx, r.connectorID, "unchanged", report.Unchanged)
	r.metrics.RecordDocuments(ctx, r.connectorID, "skipped", len(report.Skipped))
	r.metrics.RecordDocuments(ctx, r.connectorID, "failed", len(report.Failed))
}

// Package sync reconciles an external document index against the documents a
// connector observes at its source.
//
// # Overview
//
// A sync run is driven by a Reconciler. The Reconciler asks a Producer for the
// documents that currently exist at the source and for the identifiers of the
// documents that were removed, compares the former against the checksum ledger
// kept by the connector API and pushes only what changed to the Index.
//
// # Checksums
//
// Every document is fingerprinted with Checksum. The fingerprint covers the
// identifier, the metadata without timestamps and a digest of the content, so
// touching a file without changing it does not cause a re-upload.
//
// # Batching
//
// Put requests carry at most MaxBatchDocuments documents and MaxBatchBytes of
// raw inline content, measured before base64 encoding. Documents larger than
// MaxInlineBytes are uploaded to the ObjectStore and sent by reference, and
// documents larger than MaxDocumentBytes are skipped. Deletes are sent in
// chunks of MaxBatchDocuments.
//
// After each accepted batch the ledger is updated with the documents the index
// did not report as failed, so an interrupted run resumes where it stopped.
//
// # Producers
//
// GitProducer mirrors a remote repository into memory and FSProducer walks a
// local directory. Both select files with glob patterns and both report
// deletions relative to the checkpoint of the previous run.
package sync

package sync

import (
	"context"
	"iter"
)

// Producer supplies the source side of a sync run. Both sequences are lazy and
// finite, and may be iterated more than once.
type Producer interface {
	// DocumentsToAdd yields every document that exists at the source
	DocumentsToAdd(ctx context.Context) iter.Seq2[Document, error]
	// DocumentsToDelete yields the identifiers of documents removed at the source
	DocumentsToDelete(ctx context.Context) iter.Seq2[string, error]
}

// Checkpointer is implemented by producers that track their position between
// runs. The checkpoint is saved after a run that completed without error.
type Checkpointer interface {
	Checkpoint() string
}

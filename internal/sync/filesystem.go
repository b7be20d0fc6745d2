package sync

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"maps"
	"path"
	"slices"
	"strings"
)

// FSProducer yields the files of a directory tree
type FSProducer struct {
	fsys      fs.FS
	matcher   *matcher
	idPrefix  string
	sourceURI string
	ledger    Ledger
}

var _ Producer = (*FSProducer)(nil)

// FSOption configures an FSProducer
type FSOption func(*FSProducer)

// WithIDPrefix prepends prefix to the path of every document id
func WithIDPrefix(prefix string) FSOption {
	return func(p *FSProducer) {
		p.idPrefix = prefix
	}
}

// WithSourceURI sets the base of the source URI of every document
func WithSourceURI(base string) FSOption {
	return func(p *FSProducer) {
		p.sourceURI = strings.TrimRight(base, "/")
	}
}

// WithDeletionsFrom reports as deleted the documents recorded in ledger that
// are no longer present in the tree
func WithDeletionsFrom(ledger Ledger) FSOption {
	return func(p *FSProducer) {
		p.ledger = ledger
	}
}

// NewFSProducer returns a producer over fsys selecting files with the given
// include and exclude globs
func NewFSProducer(fsys fs.FS, include, exclude []string, opts ...FSOption) (*FSProducer, error) {
	m, err := newMatcher(include, exclude)
	if err != nil {
		return nil, err
	}
	p := &FSProducer{fsys: fsys, matcher: m}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// walk yields the selected regular files in lexical order
func (p *FSProducer) walk(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stopped := false
		err := fs.WalkDir(p.fsys, ".", func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.Type().IsRegular() || !p.matcher.match(name) {
				return nil
			}
			if !yield(name, nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield("", fmt.Errorf("failed to walk source tree: %w", err))
		}
	}
}

// DocumentsToAdd yields every selected file
func (p *FSProducer) DocumentsToAdd(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for name, err := range p.walk(ctx) {
			if err != nil {
				yield(Document{}, err)
				return
			}
			doc, err := p.document(name)
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

func (p *FSProducer) document(name string) (Document, error) {
	info, err := fs.Stat(p.fsys, name)
	if err != nil {
		return Document{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	content, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	doc := Document{
		ID:            p.idPrefix + name,
		Path:          name,
		Title:         path.Base(name),
		Content:       content,
		CreatedAt:     info.ModTime().UTC(),
		LastUpdatedAt: info.ModTime().UTC(),
	}
	if p.sourceURI != "" {
		doc.SourceURI = p.sourceURI + "/" + name
	}
	return doc, nil
}

// DocumentsToDelete yields the ledger entries whose file is gone. Without a
// ledger nothing is reported.
func (p *FSProducer) DocumentsToDelete(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if p.ledger == nil {
			return
		}
		recorded, err := p.ledger.Checksums(ctx)
		if err != nil {
			yield("", err)
			return
		}
		for name, err := range p.walk(ctx) {
			if err != nil {
				yield("", err)
				return
			}
			delete(recorded, p.idPrefix+name)
		}
		for _, id := range slices.Sorted(maps.Keys(recorded)) {
			if !strings.HasPrefix(id, p.idPrefix) {
				continue
			}
			if !yield(id, nil) {
				return
			}
		}
	}
}

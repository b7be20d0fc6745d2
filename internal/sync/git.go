package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// GitConfig describes the repository mirrored by a GitProducer
type GitConfig struct {
	URL string `yaml:"url"`
	// Branch, Tag or Commit select the revision. The default branch is used
	// when none is set.
	Branch   string   `yaml:"branch,omitempty"`
	Tag      string   `yaml:"tag,omitempty"`
	Commit   string   `yaml:"commit,omitempty"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Include  []string `yaml:"include,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty"`
	IDPrefix string   `yaml:"idPrefix,omitempty"`
	// WebURL is the browsable base of the repository used for source URIs
	WebURL string `yaml:"webURL,omitempty"`
}

// Validate checks the configuration
func (c *GitConfig) Validate() error {
	if c.URL == "" {
		return errors.New("git url is required")
	}
	set := 0
	for _, v := range []string{c.Branch, c.Tag, c.Commit} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return errors.New("only one of branch, tag or commit may be set")
	}
	return nil
}

// GitProducer yields the files of a repository revision cloned into memory.
// Deletions are the files removed between the checkpoint commit and the
// cloned revision.
type GitProducer struct {
	cfg      *GitConfig
	matcher  *matcher
	previous string

	repo     *git.Repository
	head     *object.Commit
	storerFs billy.Filesystem
	cache    cache.Object
}

var (
	_ Producer     = (*GitProducer)(nil)
	_ Checkpointer = (*GitProducer)(nil)
)

// NewGitProducer clones the repository. previous is the commit synced by the
// last run, or "" for a first run. Close releases the clone.
func NewGitProducer(ctx context.Context, cfg *GitConfig, previous string) (*GitProducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newMatcher(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, err
	}

	opts := &git.CloneOptions{URL: cfg.URL, NoCheckout: true}
	if cfg.Username != "" {
		opts.Auth = &githttp.BasicAuth{Username: cfg.Username, Password: cfg.Password}
		slog.Debug("Using Git HTTP Basic authentication", "username", cfg.Username)
	}
	// The previous commit is only reachable with history, so shallow clones
	// are limited to first runs of a branch or tag.
	if cfg.Commit == "" && previous == "" {
		opts.Depth = 1
	}
	switch {
	case cfg.Branch != "":
		opts.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
		opts.SingleBranch = true
	case cfg.Tag != "":
		opts.ReferenceName = plumbing.NewTagReferenceName(cfg.Tag)
		opts.SingleBranch = true
	}

	// go-git wants a filesystem for the storer even without a worktree
	storerFs := memfs.New()
	objectCache := cache.NewObjectLRUDefault()
	repo, err := git.CloneContext(ctx, filesystem.NewStorage(storerFs, objectCache), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	p := &GitProducer{
		cfg:      cfg,
		matcher:  m,
		previous: previous,
		repo:     repo,
		storerFs: storerFs,
		cache:    objectCache,
	}
	if p.head, err = p.resolve(); err != nil {
		p.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "Cloned repository", "url", cfg.URL, "commit", p.head.Hash.String(), "previous", previous)
	return p, nil
}

func (p *GitProducer) resolve() (*object.Commit, error) {
	if p.cfg.Commit != "" {
		commit, err := p.repo.CommitObject(plumbing.NewHash(p.cfg.Commit))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve commit %s: %w", p.cfg.Commit, err)
		}
		return commit, nil
	}
	ref, err := p.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	commit, err := p.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}
	return commit, nil
}

// Checkpoint returns the hash of the cloned revision
func (p *GitProducer) Checkpoint() string {
	if p.head == nil {
		return ""
	}
	return p.head.Hash.String()
}

// DocumentsToAdd yields every selected file of the cloned revision
func (p *GitProducer) DocumentsToAdd(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		tree, err := p.head.Tree()
		if err != nil {
			yield(Document{}, fmt.Errorf("failed to get tree: %w", err))
			return
		}
		files := tree.Files()
		defer files.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(Document{}, err)
				return
			}
			file, err := files.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Document{}, fmt.Errorf("failed to iterate tree: %w", err))
				return
			}
			if !p.matcher.match(file.Name) {
				continue
			}
			doc, err := p.document(file)
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

func (p *GitProducer) document(file *object.File) (Document, error) {
	content, err := file.Contents()
	if err != nil {
		return Document{}, fmt.Errorf("failed to read file %s: %w", file.Name, err)
	}
	doc := Document{
		ID:            p.cfg.IDPrefix + file.Name,
		Path:          file.Name,
		Title:         path.Base(file.Name),
		Content:       []byte(content),
		LastUpdatedAt: p.head.Committer.When.UTC(),
	}
	if p.cfg.WebURL != "" {
		doc.SourceURI = strings.TrimRight(p.cfg.WebURL, "/") + "/" + file.Name
	}
	return doc, nil
}

// DocumentsToDelete yields the selected files removed since the checkpoint
// commit. Nothing is reported on a first run or when the checkpoint commit is
// no longer part of the history.
func (p *GitProducer) DocumentsToDelete(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if p.previous == "" || p.previous == p.head.Hash.String() {
			return
		}
		prev, err := p.repo.CommitObject(plumbing.NewHash(p.previous))
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			slog.WarnContext(ctx, "Checkpoint commit not found, skipping deletions", "commit", p.previous)
			return
		}
		if err != nil {
			yield("", fmt.Errorf("failed to get checkpoint commit: %w", err))
			return
		}

		from, err := prev.Tree()
		if err != nil {
			yield("", fmt.Errorf("failed to get checkpoint tree: %w", err))
			return
		}
		to, err := p.head.Tree()
		if err != nil {
			yield("", fmt.Errorf("failed to get tree: %w", err))
			return
		}
		changes, err := from.DiffContext(ctx, to)
		if err != nil {
			yield("", fmt.Errorf("failed to diff trees: %w", err))
			return
		}

		for _, change := range changes {
			action, err := change.Action()
			if err != nil {
				yield("", err)
				return
			}
			if action != merkletrie.Delete || !p.matcher.match(change.From.Name) {
				continue
			}
			if !yield(p.cfg.IDPrefix+change.From.Name, nil) {
				return
			}
		}
	}
}

// Close releases the in-memory clone
func (p *GitProducer) Close() {
	if p.cache != nil {
		p.cache.Clear()
	}
	if p.storerFs != nil {
		_ = util.RemoveAll(p.storerFs, "/")
	}
	p.cache = nil
	p.storerFs = nil
	p.repo = nil
}

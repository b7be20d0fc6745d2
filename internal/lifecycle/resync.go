package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/feed"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

const (
	// DefaultResyncInterval is the base interval between resync passes
	DefaultResyncInterval = 2 * time.Minute
	// DefaultResyncJitter is the maximum random offset applied to the interval
	DefaultResyncJitter = 30 * time.Second
	// DefaultGracePeriod is how long a job may stay STARTED or STOPPING before
	// its event is published again
	DefaultGracePeriod = 10 * time.Minute

	resyncPageSize = 100
)

// Resync republishes the events of jobs that stayed STARTED or STOPPING past a
// grace period, settles STOPPING jobs that never got a run and removes expired
// items. It covers events lost between a write and the feed.
type Resync struct {
	store     kv.Store
	jobs      jobs.Ledger
	publisher feed.Publisher

	interval time.Duration
	jitter   time.Duration
	grace    time.Duration
	now      func() time.Time

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// ResyncOption configures the resync loop
type ResyncOption func(*Resync)

// WithResyncInterval sets the base interval and jitter between passes
func WithResyncInterval(interval, jitter time.Duration) ResyncOption {
	return func(r *Resync) {
		r.interval = interval
		r.jitter = jitter
	}
}

// WithGracePeriod sets the age after which a pending job is replayed
func WithGracePeriod(grace time.Duration) ResyncOption {
	return func(r *Resync) {
		r.grace = grace
	}
}

// WithResyncClock overrides the time source
func WithResyncClock(now func() time.Time) ResyncOption {
	return func(r *Resync) {
		r.now = now
	}
}

// NewResync creates a resync loop over the jobs stored in store
func NewResync(store kv.Store, ledger jobs.Ledger, publisher feed.Publisher, opts ...ResyncOption) *Resync {
	r := &Resync{
		store:     store,
		jobs:      ledger,
		publisher: publisher,
		interval:  DefaultResyncInterval,
		jitter:    DefaultResyncJitter,
		grace:     DefaultGracePeriod,
		now:       func() time.Time { return time.Now().UTC() },
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// nextInterval returns the base interval with a random jitter applied so
// that replicas do not scan the store at the same time.
func (r *Resync) nextInterval() time.Duration {
	if r.jitter <= 0 {
		return r.interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	offset := time.Duration(rand.Int64N(int64(2*r.jitter))) - r.jitter
	return max(r.interval+offset, time.Second)
}

// Start runs resync passes until ctx is cancelled or Stop is called
func (r *Resync) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancelFunc = cancel
	r.mu.Unlock()
	defer func() {
		close(r.done)
		slog.Info("Job resync loop shutting down")
	}()

	interval := r.nextInterval()
	slog.Info("Starting job resync loop", "base_interval", r.interval, "actual_interval", interval, "grace", r.grace)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Job resync pass failed", "error", err)
			}
			ticker.Reset(r.nextInterval())
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop ends the loop started by Start and waits for it to return
func (r *Resync) Stop() error {
	r.mu.Lock()
	cancel := r.cancelFunc
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		<-r.done
	}
	return nil
}

// RunOnce performs a single resync pass
func (r *Resync) RunOnce(ctx context.Context) error {
	now := r.now()
	cutoff := now.Add(-r.grace)

	var replayed, settled int
	cursor := ""
	for {
		page, err := r.store.List(ctx, kv.Query{Table: kv.TableJobs, Limit: resyncPageSize, Cursor: cursor})
		if err != nil {
			return err
		}
		for i := range page.Items {
			item := &page.Items[i]
			status := jobs.Status(item.Status)
			if status != jobs.StatusStarted && status != jobs.StatusStopping {
				continue
			}
			if item.UpdatedAt.After(cutoff) {
				continue
			}
			done, err := r.resyncJob(ctx, item)
			if err != nil {
				slog.WarnContext(ctx, "Failed to resync job", "job_id", item.Key, "status", item.Status, "error", err)
				continue
			}
			if done {
				settled++
			} else {
				replayed++
			}
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	swept, err := r.store.Sweep(ctx, now)
	if err != nil {
		return err
	}
	if replayed > 0 || settled > 0 || swept > 0 {
		slog.InfoContext(ctx, "Job resync pass completed", "replayed", replayed, "settled", settled, "expired", swept)
	}
	return nil
}

// resyncJob replays the event of a pending job. A STOPPING job without a run
// has nothing left to cancel and is settled as STOPPED instead; done reports
// that case.
func (r *Resync) resyncJob(ctx context.Context, item *kv.Item) (done bool, err error) {
	if jobs.Status(item.Status) == jobs.StatusStopping {
		job, err := jobs.FromItem(item)
		if err != nil {
			return false, err
		}
		if job.BatchJobID == "" {
			scope, err := service.ParseScope(item.Scope)
			if err != nil {
				return false, err
			}
			_, err = r.jobs.UpdateStatus(ctx, scope, job.ConnectorID, job.ID, jobs.StatusStopped)
			if errors.Is(err, service.ErrConflict) {
				return false, nil
			}
			return err == nil, err
		}
	}
	return false, r.publisher.Publish(ctx, feed.EventFromItem(item))
}

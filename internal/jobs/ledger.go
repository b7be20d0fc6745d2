// Package jobs keeps the ledger of connector jobs and enforces the job state
// machine. Starting a job acquires the connector; reaching a terminal state
// releases it.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/jobs Ledger

// RetentionPeriod is how long a terminal job is kept before it expires
const RetentionPeriod = 7 * 24 * time.Hour

// Job is a single run of a connector
type Job struct {
	ID              string                           `json:"job_id"`
	ConnectorID     string                           `json:"connector_id"`
	Status          Status                           `json:"status"`
	BatchJobID      string                           `json:"batch_job_id,omitempty"`
	Environment     []connectors.EnvironmentVariable `json:"environment,omitempty"`
	CancelRequested bool                             `json:"cancel_requested,omitempty"`
	TTL             *int64                           `json:"ttl,omitempty"`
	CreatedAt       time.Time                        `json:"created_at"`
	UpdatedAt       time.Time                        `json:"updated_at"`
}

// Ledger defines the operations on jobs
type Ledger interface {
	// Start acquires the connector and records a new STARTED job
	Start(ctx context.Context, scope service.Scope, connectorID string, env []connectors.EnvironmentVariable) (*Job, error)
	// Get returns a job
	Get(ctx context.Context, scope service.Scope, jobID string) (*Job, error)
	// UpdateStatus moves a job to status, releasing the connector on terminal states
	UpdateStatus(ctx context.Context, scope service.Scope, connectorID, jobID string, status Status, opts ...UpdateOption) (*Job, error)
	// Stop requests cancellation of a job
	Stop(ctx context.Context, scope service.Scope, connectorID, jobID string) (*Job, error)
	// List returns one page of the jobs of a connector
	List(ctx context.Context, scope service.Scope, connectorID string, opts ...service.Option) ([]*Job, string, error)
}

// UpdateOption customizes a status update
type UpdateOption func(*Job)

// WithBatchJobID records the external execution handle of the job
func WithBatchJobID(handle string) UpdateOption {
	return func(j *Job) {
		if handle != "" {
			j.BatchJobID = handle
		}
	}
}

// Option configures the ledger
type Option func(*ledger)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *ledger) {
		l.now = now
	}
}

type ledger struct {
	store      kv.Store
	connectors connectors.Registry
	now        func() time.Time
}

var _ Ledger = (*ledger)(nil)

// New returns a Ledger persisting jobs in store and coordinating connector
// availability through registry.
func New(store kv.Store, registry connectors.Registry, opts ...Option) Ledger {
	l := &ledger{
		store:      store,
		connectors: registry,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ledger) Start(
	ctx context.Context, scope service.Scope, connectorID string, env []connectors.EnvironmentVariable,
) (*Job, error) {
	for i, e := range env {
		if e.Name == "" {
			return nil, service.BadRequestf("environment[%d].name is required", i)
		}
	}

	if _, err := l.connectors.Acquire(ctx, scope, connectorID); err != nil {
		return nil, err
	}

	now := l.now()
	job := &Job{
		ID:          service.NewJobID(),
		ConnectorID: connectorID,
		Status:      StatusStarted,
		Environment: env,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item, err := toItem(scope, job)
	if err == nil {
		item.Version = 1
		_, err = l.store.Put(ctx, item, kv.Condition{MustNotExist: true})
	}
	if err != nil {
		// The connector was acquired but no job references it.
		if _, relErr := l.connectors.UpdateStatus(ctx, scope, connectorID, connectors.StatusAvailable); relErr != nil {
			slog.ErrorContext(ctx, "Failed to release connector after job insert failure",
				"connector_id", connectorID, "job_id", job.ID, "error", relErr)
		}
		if errors.Is(err, kv.ErrConditionFailed) {
			return nil, service.Conflictf("Job %s already exists", job.ID)
		}
		return nil, service.FromStore(err, "job "+job.ID)
	}

	slog.InfoContext(ctx, "Started job", "connector_id", connectorID, "job_id", job.ID)
	return job, nil
}

func (l *ledger) Get(ctx context.Context, scope service.Scope, jobID string) (*Job, error) {
	item, err := l.store.Get(ctx, kv.TableJobs, scope.String(), jobID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, service.NotFoundf("Job %s not found", jobID)
		}
		return nil, service.FromStore(err, "job "+jobID)
	}
	return fromItem(item)
}

func (l *ledger) UpdateStatus(
	ctx context.Context, scope service.Scope, connectorID, jobID string, status Status, opts ...UpdateOption,
) (*Job, error) {
	if !status.Valid() {
		return nil, service.BadRequestf("invalid job status: %s", status)
	}
	if _, err := l.connectors.Get(ctx, scope, connectorID); err != nil {
		return nil, err
	}

	var updated *Job
	item, err := kv.Transact(ctx, l.store, kv.TableJobs, scope.String(), jobID, func(cur kv.Item) (kv.Item, error) {
		job, err := fromItem(&cur)
		if err != nil {
			return kv.Item{}, err
		}
		if job.ConnectorID != connectorID {
			return kv.Item{}, service.NotFoundf("Job %s not found for connector %s", jobID, connectorID)
		}
		if job.Status.Terminal() {
			return kv.Item{}, service.Conflictf("Job %s is already in terminal state %s", jobID, job.Status)
		}
		if !CanTransition(job.Status, status) {
			return kv.Item{}, service.Conflictf("Job %s cannot move from %s to %s", jobID, job.Status, status)
		}

		now := l.now()
		job.Status = status
		job.UpdatedAt = now
		for _, opt := range opts {
			opt(job)
		}
		if status == StatusStopping {
			job.CancelRequested = true
		}
		if status.Terminal() {
			ttl := now.Add(RetentionPeriod).Unix()
			job.TTL = &ttl
		}
		updated = job
		return toItem(scope, job)
	})
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, service.NotFoundf("Job %s not found", jobID)
		}
		if errors.Is(err, kv.ErrConditionFailed) {
			return nil, &service.Error{
				Kind:    service.ErrConflict,
				Message: "Job " + jobID + " was modified by another process",
				Err:     err,
			}
		}
		return nil, service.FromStore(err, "job "+jobID)
	}
	slog.InfoContext(ctx, "Updated job status",
		"connector_id", connectorID, "job_id", jobID, "status", status, "version", item.Version)

	if status.Terminal() {
		_, err := l.connectors.UpdateStatus(ctx, scope, connectorID, connectors.StatusAvailable)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrNotFound):
			slog.WarnContext(ctx, "Connector of terminal job no longer exists",
				"connector_id", connectorID, "job_id", jobID)
		default:
			return nil, err
		}
	}
	return updated, nil
}

func (l *ledger) Stop(ctx context.Context, scope service.Scope, connectorID, jobID string) (*Job, error) {
	return l.UpdateStatus(ctx, scope, connectorID, jobID, StatusStopping)
}

func (l *ledger) List(
	ctx context.Context, scope service.Scope, connectorID string, opts ...service.Option,
) ([]*Job, string, error) {
	listOpts, err := service.NewListJobsOptions(opts...)
	if err != nil {
		return nil, "", err
	}
	if listOpts.Status != "" && !Status(listOpts.Status).Valid() {
		return nil, "", service.BadRequestf("invalid job status: %s", listOpts.Status)
	}
	if _, err := l.connectors.Get(ctx, scope, connectorID); err != nil {
		return nil, "", err
	}

	page, err := l.store.List(ctx, kv.Query{
		Table:  kv.TableJobs,
		Scope:  scope.String(),
		Owner:  connectorID,
		Limit:  listOpts.Limit,
		Cursor: listOpts.Cursor,
	})
	if err != nil {
		return nil, "", service.FromStore(err, "jobs")
	}

	result := make([]*Job, 0, len(page.Items))
	for i := range page.Items {
		job, err := fromItem(&page.Items[i])
		if err != nil {
			return nil, "", err
		}
		if listOpts.Status != "" && job.Status != Status(listOpts.Status) {
			continue
		}
		result = append(result, job)
	}
	return result, page.Cursor, nil
}

func toItem(scope service.Scope, job *Job) (kv.Item, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return kv.Item{}, service.Internal(err, "failed to encode job")
	}
	item := kv.Item{
		Table:  kv.TableJobs,
		Scope:  scope.String(),
		Key:    job.ID,
		Owner:  job.ConnectorID,
		Status: string(job.Status),
		Data:   data,
	}
	if job.TTL != nil {
		expires := time.Unix(*job.TTL, 0).UTC()
		item.ExpiresAt = &expires
	}
	return item, nil
}

// FromItem decodes a stored job
func FromItem(item *kv.Item) (*Job, error) {
	return fromItem(item)
}

func fromItem(item *kv.Item) (*Job, error) {
	var job Job
	if err := json.Unmarshal(item.Data, &job); err != nil {
		return nil, service.Internal(err, "failed to decode job "+item.Key)
	}
	job.Status = Status(item.Status)
	return &job, nil
}

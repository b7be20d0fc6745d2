package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/otel"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// HandleCompletion settles the job of a finished run and releases its
// connector. Completions of jobs that are already terminal are ignored so
// that duplicate notifications are harmless.
func (c *Controller) HandleCompletion(ctx context.Context, completion batch.Completion) error {
	if completion.Outcome != batch.OutcomeSucceeded && completion.Outcome != batch.OutcomeFailed {
		slog.DebugContext(ctx, "Ignoring non-terminal completion",
			"job_id", completion.JobID, "outcome", completion.Outcome)
		return nil
	}
	scope, err := service.ParseScope(completion.Scope)
	if err != nil || completion.JobID == "" || completion.ConnectorID == "" {
		slog.WarnContext(ctx, "Ignoring completion without job tags",
			"batch_job_id", completion.Handle, "job_id", completion.JobID, "scope", completion.Scope)
		return nil
	}

	ctx, span := otel.StartSpan(ctx, c.tracer, "lifecycle.HandleCompletion",
		trace.WithAttributes(
			otel.AttrJobID.String(completion.JobID),
			otel.AttrConnectorID.String(completion.ConnectorID),
			otel.AttrBatchHandle.String(completion.Handle),
		))
	defer span.End()

	job, err := c.jobs.Get(ctx, scope, completion.JobID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			slog.WarnContext(ctx, "Completed job no longer exists", "job_id", completion.JobID)
			return nil
		}
		otel.RecordError(span, err)
		return fmt.Errorf("failed to read job %s: %w", completion.JobID, err)
	}
	if job.Status.Terminal() {
		slog.DebugContext(ctx, "Job is already terminal",
			"job_id", job.ID, "status", job.Status, "outcome", completion.Outcome)
		return nil
	}

	status := resolveStatus(job, completion.Outcome)
	span.SetAttributes(otel.AttrJobStatus.String(string(status)))
	_, err = kv.Retry(ctx, func() (*jobs.Job, error) {
		return c.jobs.UpdateStatus(ctx, scope, job.ConnectorID, job.ID, status)
	}, c.retryOptions...)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Job finished",
			"connector_id", job.ConnectorID, "job_id", job.ID, "status", status,
			"outcome", completion.Outcome, "reason", completion.Reason)
		c.metrics.RecordCompletion(ctx, string(status))
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrNotFound):
		slog.WarnContext(ctx, "Job was settled concurrently",
			"connector_id", job.ConnectorID, "job_id", job.ID, "error", err)
		err = nil
	default:
		otel.RecordError(span, err)
		slog.ErrorContext(ctx, "Failed to record job completion",
			"connector_id", job.ConnectorID, "job_id", job.ID, "status", status, "error", err)
	}

	c.release(ctx, scope, job)
	return err
}

// resolveStatus maps the outcome of a run to the final job status. A run of a
// job whose cancellation was requested always ends the job as STOPPED.
func resolveStatus(job *jobs.Job, outcome batch.Outcome) jobs.Status {
	if job.CancelRequested || job.Status == jobs.StatusStopping {
		return jobs.StatusStopped
	}
	if outcome == batch.OutcomeSucceeded {
		return jobs.StatusSucceeded
	}
	return jobs.StatusFailed
}

// fail ends a job as FAILED and releases its connector. Failures are logged
// only; the resync loop replays jobs left behind.
func (c *Controller) fail(ctx context.Context, scope service.Scope, job *jobs.Job) {
	_, err := kv.Retry(ctx, func() (*jobs.Job, error) {
		return c.jobs.UpdateStatus(ctx, scope, job.ConnectorID, job.ID, jobs.StatusFailed)
	}, c.retryOptions...)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mark job as FAILED",
			"connector_id", job.ConnectorID, "job_id", job.ID, "error", err)
	} else {
		c.metrics.RecordCompletion(ctx, string(jobs.StatusFailed))
	}
	c.release(ctx, scope, job)
}

// release makes the connector of job AVAILABLE unless another live job holds
// it. Failures are logged only.
func (c *Controller) release(ctx context.Context, scope service.Scope, job *jobs.Job) {
	connector, err := c.connectors.Get(ctx, scope, job.ConnectorID)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			slog.ErrorContext(ctx, "Failed to read connector to release",
				"connector_id", job.ConnectorID, "job_id", job.ID, "error", err)
		}
		return
	}
	if connector.Status == connectors.StatusAvailable {
		return
	}

	holder, err := c.liveJob(ctx, scope, job.ConnectorID, job.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to check connector holder",
			"connector_id", job.ConnectorID, "job_id", job.ID, "error", err)
		return
	}
	if holder != "" {
		slog.InfoContext(ctx, "Connector is held by another job",
			"connector_id", job.ConnectorID, "job_id", job.ID, "holder_job_id", holder)
		return
	}

	_, err = kv.Retry(ctx, func() (*connectors.Connector, error) {
		return c.connectors.UpdateStatus(ctx, scope, job.ConnectorID, connectors.StatusAvailable)
	}, c.retryOptions...)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		slog.ErrorContext(ctx, "Failed to release connector",
			"connector_id", job.ConnectorID, "job_id", job.ID, "error", err)
		return
	}
	slog.InfoContext(ctx, "Released connector", "connector_id", job.ConnectorID, "job_id", job.ID)
}

// liveJob returns the id of a non-terminal job of the connector other than
// jobID, or "" when there is none.
func (c *Controller) liveJob(ctx context.Context, scope service.Scope, connectorID, jobID string) (string, error) {
	opts := []service.Option{service.WithLimit(service.MaxPageSize)}
	for {
		page, cursor, err := c.jobs.List(ctx, scope, connectorID, opts...)
		if err != nil {
			return "", err
		}
		for _, j := range page {
			if j.ID != jobID && !j.Status.Terminal() {
				return j.ID, nil
			}
		}
		if cursor == "" {
			return "", nil
		}
		opts = []service.Option{service.WithLimit(service.MaxPageSize), service.WithCursor(cursor)}
	}
}

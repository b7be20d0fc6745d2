// Package lifecycle reacts to job changes and compute completions. It submits
// and cancels connector runs on the compute service and settles jobs and
// connectors once a run ends.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/feed"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/otel"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
	"github.com/stacklok/connector-lifecycle-server/internal/telemetry"
)

// Environment variables set on every connector container, in this order,
// ahead of the connector and job variables.
const (
	EnvJobID        = "CUSTOM_CONNECTOR_JOB_ID"
	EnvConnectorID  = "CUSTOM_CONNECTOR_FRAMEWORK_CUSTOM_CONNECTOR_ID"
	EnvConnectorARN = "CUSTOM_CONNECTOR_FRAMEWORK_CUSTOM_CONNECTOR_ARN"
	EnvARNPrefix    = "CUSTOM_CONNECTOR_FRAMEWORK_CUSTOM_CONNECTOR_ARN_PREFIX"
	EnvRegion       = "AWS_REGION"
	EnvAPIEndpoint  = "CUSTOM_CONNECTOR_FRAMEWORK_API_ENDPOINT"
)

// CancelReason is attached to runs cancelled because a user stopped the job
const CancelReason = "Job stopped by user via Custom Connector Framework API"

// Controller drives connector runs from job changes
type Controller struct {
	jobs       jobs.Ledger
	connectors connectors.Registry
	compute    batch.Compute

	apiEndpoint  string
	retryOptions []backoff.RetryOption
	metrics      *telemetry.LifecycleMetrics
	tracer       trace.Tracer
}

var _ batch.CompletionHandler = (*Controller)(nil)

// Option configures the controller
type Option func(*Controller)

// WithAPIEndpoint sets the API endpoint advertised to connector containers
func WithAPIEndpoint(endpoint string) Option {
	return func(c *Controller) {
		c.apiEndpoint = endpoint
	}
}

// WithRetryOptions sets the retry policy applied to version conflicts
func WithRetryOptions(opts ...backoff.RetryOption) Option {
	return func(c *Controller) {
		c.retryOptions = opts
	}
}

// WithMetrics sets the lifecycle metrics
func WithMetrics(metrics *telemetry.LifecycleMetrics) Option {
	return func(c *Controller) {
		c.metrics = metrics
	}
}

// WithTracer sets the tracer. A nil tracer disables spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// NewController creates a controller submitting runs to compute
func NewController(
	jobLedger jobs.Ledger,
	registry connectors.Registry,
	compute batch.Compute,
	opts ...Option,
) *Controller {
	c := &Controller{
		jobs:       jobLedger,
		connectors: registry,
		compute:    compute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleEvent processes one change feed event. Only events of the jobs table
// with status STARTED or STOPPING are acted on, and only while the stored job
// still has the status the event announced. An error means the job could not
// be read and the event should be delivered again.
func (c *Controller) HandleEvent(ctx context.Context, event feed.Event) error {
	if event.Table != kv.TableJobs {
		return nil
	}
	status := jobs.Status(event.Status)
	if status != jobs.StatusStarted && status != jobs.StatusStopping {
		return nil
	}
	scope, err := service.ParseScope(event.Scope)
	if err != nil {
		slog.WarnContext(ctx, "Dropping job event with invalid scope",
			"job_id", event.Key, "scope", event.Scope, "error", err)
		return nil
	}

	ctx, span := otel.StartSpan(ctx, c.tracer, "lifecycle.HandleEvent",
		trace.WithAttributes(
			otel.AttrJobID.String(event.Key),
			otel.AttrJobStatus.String(event.Status),
			otel.AttrConnectorID.String(event.Owner),
			otel.AttrScope.String(event.Scope),
		))
	defer span.End()

	job, err := c.jobs.Get(ctx, scope, event.Key)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			slog.InfoContext(ctx, "Job of event no longer exists", "job_id", event.Key)
			return nil
		}
		otel.RecordError(span, err)
		c.metrics.RecordEvent(ctx, event.Status, false)
		return fmt.Errorf("failed to read job %s: %w", event.Key, err)
	}
	if job.Status != status {
		slog.DebugContext(ctx, "Skipping stale job event",
			"job_id", job.ID, "event_status", status, "current_status", job.Status)
		return nil
	}

	switch status {
	case jobs.StatusStarted:
		c.start(ctx, scope, job)
	case jobs.StatusStopping:
		c.stop(ctx, scope, job)
	}
	c.metrics.RecordEvent(ctx, event.Status, true)
	return nil
}

// start submits the run of a STARTED job and records its handle. Every
// failure ends the job as FAILED.
func (c *Controller) start(ctx context.Context, scope service.Scope, job *jobs.Job) {
	handle, err := c.submit(ctx, scope, job)
	c.metrics.RecordSubmission(ctx, err == nil)
	if err != nil {
		otel.RecordError(trace.SpanFromContext(ctx), err)
		slog.ErrorContext(ctx, "Failed to submit job",
			"connector_id", job.ConnectorID, "job_id", job.ID, "error", err)
		c.fail(ctx, scope, job)
		return
	}

	_, err = kv.Retry(ctx, func() (*jobs.Job, error) {
		return c.jobs.UpdateStatus(ctx, scope, job.ConnectorID, job.ID, jobs.StatusRunning, jobs.WithBatchJobID(handle))
	}, c.retryOptions...)
	if err == nil {
		slog.InfoContext(ctx, "Job is running",
			"connector_id", job.ConnectorID, "job_id", job.ID, "batch_job_id", handle)
		return
	}

	if errors.Is(err, service.ErrConflict) {
		current, getErr := c.jobs.Get(ctx, scope, job.ID)
		if getErr == nil && current.Status == jobs.StatusStopping {
			// Stopped while being submitted; the STOPPING event found no handle.
			slog.InfoContext(ctx, "Job was stopped during submission",
				"connector_id", job.ConnectorID, "job_id", job.ID, "batch_job_id", handle)
			c.cancel(ctx, scope, current, handle)
			return
		}
	}

	slog.ErrorContext(ctx, "Failed to record running job",
		"connector_id", job.ConnectorID, "job_id", job.ID, "batch_job_id", handle, "error", err)
	if cancelErr := c.compute.Cancel(ctx, handle, "Job could not be recorded as running"); cancelErr != nil {
		slog.WarnContext(ctx, "Failed to cancel orphaned run",
			"job_id", job.ID, "batch_job_id", handle, "error", cancelErr)
	}
	c.fail(ctx, scope, job)
}

func (c *Controller) submit(ctx context.Context, scope service.Scope, job *jobs.Job) (string, error) {
	connector, err := c.connectors.Get(ctx, scope, job.ConnectorID)
	if err != nil {
		return "", err
	}

	tags := map[string]string{
		batch.TagConnectorID: job.ConnectorID,
		batch.TagARNPrefix:   scope.String(),
		batch.TagJobID:       job.ID,
	}
	cp := connector.ContainerProperties
	definition, err := c.compute.Register(ctx, batch.Definition{
		Name:             job.ID,
		Image:            cp.ImageURI,
		ExecutionRoleARN: cp.ExecutionRoleARN,
		JobRoleARN:       cp.JobRoleARN,
		CPU:              cp.ResourceRequirements.CPU,
		MemoryMiB:        cp.ResourceRequirements.Memory,
		Environment:      c.environment(scope, connector, job),
		Tags:             tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to register job definition: %w", err)
	}

	handle, err := c.compute.Submit(ctx, batch.Submission{
		Name:       job.ID,
		Definition: definition,
		Timeout:    time.Duration(cp.Timeout) * time.Second,
		Tags:       tags,
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit job: %w", err)
	}
	return handle, nil
}

// environment composes the container environment. Later entries win when
// the compute service applies duplicates in order.
func (c *Controller) environment(scope service.Scope, connector *connectors.Connector, job *jobs.Job) []batch.EnvVar {
	env := []batch.EnvVar{
		{Name: EnvJobID, Value: job.ID},
		{Name: EnvConnectorID, Value: connector.ID},
		{Name: EnvConnectorARN, Value: connector.ARN},
		{Name: EnvARNPrefix, Value: scope.String()},
		{Name: EnvRegion, Value: scope.Region},
		{Name: EnvAPIEndpoint, Value: c.apiEndpoint},
	}
	for _, e := range connector.ContainerProperties.Environment {
		env = append(env, batch.EnvVar{Name: e.Name, Value: e.Value})
	}
	for _, e := range job.Environment {
		env = append(env, batch.EnvVar{Name: e.Name, Value: e.Value})
	}
	return env
}

// stop cancels the run of a STOPPING job. The completion of the cancelled run
// settles the job.
func (c *Controller) stop(ctx context.Context, scope service.Scope, job *jobs.Job) {
	if job.BatchJobID == "" {
		slog.WarnContext(ctx, "Job has no batch job to cancel",
			"connector_id", job.ConnectorID, "job_id", job.ID)
		return
	}
	c.cancel(ctx, scope, job, job.BatchJobID)
}

func (c *Controller) cancel(ctx context.Context, scope service.Scope, job *jobs.Job, handle string) {
	if err := c.compute.Cancel(ctx, handle, CancelReason); err != nil {
		otel.RecordError(trace.SpanFromContext(ctx), err)
		slog.ErrorContext(ctx, "Failed to cancel job",
			"connector_id", job.ConnectorID, "job_id", job.ID, "batch_job_id", handle, "error", err)
		c.fail(ctx, scope, job)
		return
	}
	slog.InfoContext(ctx, "Requested job cancellation",
		"connector_id", job.ConnectorID, "job_id", job.ID, "batch_job_id", handle)
}

// Package batch describes the external compute service that runs connector
// containers and the notifications it sends when a run ends.
package batch

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_compute.go -package=mocks github.com/stacklok/connector-lifecycle-server/internal/batch Compute,CompletionHandler

// Tags attached to definitions and submissions. Completions are routed back to
// a job through them.
const (
	TagConnectorID = "connector_id"
	TagARNPrefix   = "arn_prefix"
	TagJobID       = "job_id"
)

// ErrUnknownJob is returned when a handle does not name a submitted job
var ErrUnknownJob = errors.New("unknown batch job")

// EnvVar is an environment variable of the container
type EnvVar struct {
	Name  string
	Value string
}

// Definition is a reusable container specification
type Definition struct {
	Name             string
	Image            string
	ExecutionRoleARN string
	JobRoleARN       string
	CPU              float64
	MemoryMiB        int
	Environment      []EnvVar
	Tags             map[string]string
}

// Submission runs a registered definition once
type Submission struct {
	Name       string
	Definition string
	Timeout    time.Duration
	Tags       map[string]string
}

// Outcome is the terminal result of a run
type Outcome string

// Outcomes reported by the compute service
const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// Completion announces the end of a run
type Completion struct {
	Handle      string
	JobID       string
	ConnectorID string
	Scope       string
	Outcome     Outcome
	Reason      string
}

// CompletionFromTags builds the completion of a run submitted with tags
func CompletionFromTags(handle string, tags map[string]string, outcome Outcome, reason string) Completion {
	return Completion{
		Handle:      handle,
		JobID:       tags[TagJobID],
		ConnectorID: tags[TagConnectorID],
		Scope:       tags[TagARNPrefix],
		Outcome:     outcome,
		Reason:      reason,
	}
}

// Compute registers, submits and cancels container runs
type Compute interface {
	// Register stores a definition and returns its name
	Register(ctx context.Context, def Definition) (string, error)
	// Submit starts a run and returns its handle
	Submit(ctx context.Context, sub Submission) (string, error)
	// Cancel stops a run. The compute service reports it as FAILED.
	Cancel(ctx context.Context, handle, reason string) error
}

// CompletionHandler receives completions
type CompletionHandler interface {
	HandleCompletion(ctx context.Context, c Completion) error
}

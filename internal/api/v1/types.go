package v1

import (
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
)

// ConnectorResponse wraps a single connector
type ConnectorResponse struct {
	Connector *connectors.Connector `json:"connector"`
}

// ListConnectorsResponse is one page of connectors
type ListConnectorsResponse struct {
	Connectors []*connectors.Connector `json:"connectors"`
	NextToken  string                  `json:"next_token,omitempty"`
}

// StartJobRequest is the body of StartJob
type StartJobRequest struct {
	Environment []connectors.EnvironmentVariable `json:"environment,omitempty"`
}

// JobResponse wraps a single job
type JobResponse struct {
	Job *jobs.Job `json:"job"`
}

// ListJobsResponse is one page of jobs
type ListJobsResponse struct {
	Jobs      []*jobs.Job `json:"jobs"`
	NextToken string      `json:"next_token,omitempty"`
}

// PutCheckpointRequest is the body of PutCheckpoint
type PutCheckpointRequest struct {
	CheckpointData string `json:"checkpoint_data"`
}

// CheckpointResponse wraps a connector checkpoint
type CheckpointResponse struct {
	Checkpoint *connectors.Checkpoint `json:"checkpoint"`
}

// BatchPutDocumentsRequest is the body of BatchPutDocumentChecksums
type BatchPutDocumentsRequest struct {
	Documents []documents.Checksum `json:"documents"`
}

// BatchDeleteDocumentsRequest is the body of BatchDeleteDocumentChecksums
type BatchDeleteDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

// ListDocumentsResponse is one page of document checksums
type ListDocumentsResponse struct {
	Documents []*documents.Checksum `json:"documents"`
	NextToken string                `json:"next_token,omitempty"`
}

package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/onsi/gomega"

	"github.com/stacklok/connector-lifecycle-server/internal/api"
	v1 "github.com/stacklok/connector-lifecycle-server/internal/api/v1"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
)

// APIClient issues JSON requests to the connectors API
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient returns a client for the server at baseURL
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{baseURL: baseURL, client: http.DefaultClient}
}

// Do sends body as JSON and decodes the response into out when non-nil.
// It returns the status code.
func (c *APIClient) Do(method, path string, body, out any) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.baseURL+path, reader)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = resp.Body.Close()
	}()

	if out != nil && resp.StatusCode < 300 {
		gomega.Expect(json.NewDecoder(resp.Body).Decode(out)).To(gomega.Succeed())
	}
	return resp.StatusCode
}

// CreateConnector registers a connector named name and returns it
func (c *APIClient) CreateConnector(name string) *connectors.Connector {
	body := map[string]any{
		"name": name,
		"container_properties": map[string]any{
			"execution_role_arn": "arn:aws:iam::123456789012:role/exec",
			"image_uri":          "123456789012.dkr.ecr.us-east-1.amazonaws.com/crawler:1",
			"job_role_arn":       "arn:aws:iam::123456789012:role/job",
		},
	}
	var resp v1.ConnectorResponse
	status := c.Do(http.MethodPost, api.ConnectorsPath+"/", body, &resp)
	gomega.Expect(status).To(gomega.Equal(http.StatusCreated))
	return resp.Connector
}

// GetConnector fetches a connector
func (c *APIClient) GetConnector(id string) *connectors.Connector {
	var resp v1.ConnectorResponse
	gomega.Expect(c.Do(http.MethodGet, ConnectorPath(id, ""), nil, &resp)).To(gomega.Equal(http.StatusOK))
	return resp.Connector
}

// ListJobs returns the first page of jobs of a connector
func (c *APIClient) ListJobs(id string) []*jobs.Job {
	var resp v1.ListJobsResponse
	gomega.Expect(c.Do(http.MethodGet, ConnectorPath(id, "/jobs"), nil, &resp)).To(gomega.Equal(http.StatusOK))
	return resp.Jobs
}

// JobStatus returns the status of one job, or "" when it is not listed
func (c *APIClient) JobStatus(connectorID, jobID string) jobs.Status {
	for _, j := range c.ListJobs(connectorID) {
		if j.ID == jobID {
			return j.Status
		}
	}
	return ""
}

// ConnectorPath returns the API path of a connector plus suffix
func ConnectorPath(id, suffix string) string {
	return fmt.Sprintf("%s/%s%s", api.ConnectorsPath, id, suffix)
}

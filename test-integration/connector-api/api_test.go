package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/connector-lifecycle-server/internal/api"
	v1 "github.com/stacklok/connector-lifecycle-server/internal/api/v1"
	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/test-integration/connector-api/helpers"
)

var _ = Describe("Connector job lifecycle", Label("api", "lifecycle"), func() {
	var (
		server *helpers.ServerTestHelper
		client *helpers.APIClient
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		server = helpers.NewServerTestHelper(ctx, helpers.WriteConfigYAML(dir))
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)
		client = helpers.NewAPIClient(server.GetBaseURL())
	})

	AfterEach(func() {
		Expect(server.StopServer()).To(Succeed())
	})

	runFor := func(jobID string) batch.Run {
		var run batch.Run
		Eventually(func() bool {
			for _, r := range server.Compute().Runs() {
				if r.Submission.Tags[batch.TagJobID] == jobID {
					run = r
					return true
				}
			}
			return false
		}, 5*time.Second, 50*time.Millisecond).Should(BeTrue(), "job should be submitted")
		return run
	}

	It("runs a job to completion and releases the connector", func() {
		connector := client.CreateConnector("wiki-crawler")
		Expect(connector.Status).To(Equal(connectors.StatusAvailable))

		var started v1.JobResponse
		Expect(client.Do(http.MethodPost, helpers.ConnectorPath(connector.ID, "/jobs"), nil, &started)).
			To(Equal(http.StatusCreated))
		Expect(started.Job.Status).To(Equal(jobs.StatusStarted))
		Expect(client.GetConnector(connector.ID).Status).To(Equal(connectors.StatusInUse))

		By("refusing a second job while the first holds the connector")
		Expect(client.Do(http.MethodPost, helpers.ConnectorPath(connector.ID, "/jobs"), nil, nil)).
			To(Equal(http.StatusConflict))

		run := runFor(started.Job.ID)
		Expect(run.Submission.Tags[batch.TagConnectorID]).To(Equal(connector.ID))

		Eventually(func() jobs.Status {
			return client.JobStatus(connector.ID, started.Job.ID)
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(jobs.StatusRunning))

		Expect(server.Compute().Complete(ctx, run.Handle, batch.OutcomeSucceeded)).To(Succeed())

		Eventually(func() jobs.Status {
			return client.JobStatus(connector.ID, started.Job.ID)
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(jobs.StatusSucceeded))
		Eventually(func() connectors.Status {
			return client.GetConnector(connector.ID).Status
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(connectors.StatusAvailable))
	})

	It("stops a running job", func() {
		connector := client.CreateConnector("drive-crawler")

		var started v1.JobResponse
		Expect(client.Do(http.MethodPost, helpers.ConnectorPath(connector.ID, "/jobs"), nil, &started)).
			To(Equal(http.StatusCreated))
		run := runFor(started.Job.ID)

		Expect(client.Do(http.MethodPost,
			helpers.ConnectorPath(connector.ID, "/jobs/"+started.Job.ID+"/stop"), nil, nil)).
			To(Equal(http.StatusAccepted))

		Eventually(func() jobs.Status {
			return client.JobStatus(connector.ID, started.Job.ID)
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(jobs.StatusStopped))

		cancelled := false
		for _, r := range server.Compute().Runs() {
			if r.Handle == run.Handle {
				cancelled = r.Cancelled
			}
		}
		Expect(cancelled).To(BeTrue())
		Eventually(func() connectors.Status {
			return client.GetConnector(connector.ID).Status
		}, 5*time.Second, 50*time.Millisecond).Should(Equal(connectors.StatusAvailable))
	})

	It("refuses to delete a connector with an active job", func() {
		connector := client.CreateConnector("busy")
		Expect(client.Do(http.MethodPost, helpers.ConnectorPath(connector.ID, "/jobs"), nil, nil)).
			To(Equal(http.StatusCreated))

		Expect(client.Do(http.MethodDelete, helpers.ConnectorPath(connector.ID, ""), nil, nil)).
			To(Equal(http.StatusConflict))
	})

	It("lists connectors with pagination", func() {
		for _, name := range []string{"a", "b", "c"} {
			client.CreateConnector(name)
		}

		var first v1.ListConnectorsResponse
		Expect(client.Do(http.MethodGet, api.ConnectorsPath+"/?max_results=2", nil, &first)).
			To(Equal(http.StatusOK))
		Expect(first.Connectors).To(HaveLen(2))
		Expect(first.NextToken).NotTo(BeEmpty())

		var second v1.ListConnectorsResponse
		Expect(client.Do(http.MethodGet, api.ConnectorsPath+"/?max_results=2&next_token="+first.NextToken, nil, &second)).
			To(Equal(http.StatusOK))
		Expect(second.Connectors).To(HaveLen(1))
		Expect(second.NextToken).To(BeEmpty())
	})

	It("survives a restart", func() {
		connector := client.CreateConnector("durable")
		Expect(client.Do(http.MethodPut, helpers.ConnectorPath(connector.ID, "/checkpoint"),
			v1.PutCheckpointRequest{CheckpointData: `{"cursor":"42"}`}, nil)).To(Equal(http.StatusOK))

		Expect(server.StopServer()).To(Succeed())
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)
		client = helpers.NewAPIClient(server.GetBaseURL())

		Expect(client.GetConnector(connector.ID).Name).To(Equal("durable"))
		var cp v1.CheckpointResponse
		Expect(client.Do(http.MethodGet, helpers.ConnectorPath(connector.ID, "/checkpoint"), nil, &cp)).
			To(Equal(http.StatusOK))
		Expect(cp.Checkpoint.Data).To(Equal(`{"cursor":"42"}`))
	})
})

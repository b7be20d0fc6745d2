package integration

import (
	"testing/fstest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/connector-lifecycle-server/internal/httpclient"
	"github.com/stacklok/connector-lifecycle-server/internal/sync"
	"github.com/stacklok/connector-lifecycle-server/test-integration/connector-api/helpers"
)

var _ = Describe("Sync reconciler", Label("sync"), func() {
	var (
		server      *helpers.ServerTestHelper
		index       *helpers.FakeIndex
		ledger      *sync.HTTPLedger
		reconciler  *sync.Reconciler
		connectorID string
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		server = helpers.NewServerTestHelper(ctx, helpers.WriteConfigYAML(dir))
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)

		connectorID = helpers.NewAPIClient(server.GetBaseURL()).CreateConnector("handbook").ID

		index = helpers.NewFakeIndex()
		client := httpclient.NewDefaultClient(5 * time.Second)
		ledger = sync.NewHTTPLedger(client, server.GetBaseURL(), connectorID)
		reconciler = sync.NewReconciler(connectorID,
			sync.NewHTTPIndex(client, index.Server.URL, "handbook-index", "handbook"),
			sync.WithLedger(ledger),
		)
	})

	AfterEach(func() {
		index.Close()
		Expect(server.StopServer()).To(Succeed())
	})

	reconcile := func(fsys fstest.MapFS) *sync.Report {
		producer, err := sync.NewFSProducer(fsys, nil, []string{"drafts/**"},
			sync.WithIDPrefix("handbook/"),
			sync.WithDeletionsFrom(ledger),
		)
		Expect(err).NotTo(HaveOccurred())

		report, err := reconciler.Reconcile(ctx, producer)
		Expect(err).NotTo(HaveOccurred())
		return report
	}

	It("adds, skips unchanged and deletes documents across runs", func() {
		modTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		tree := fstest.MapFS{
			"intro.md":         {Data: []byte("# Intro"), ModTime: modTime},
			"guides/setup.txt": {Data: []byte("install it"), ModTime: modTime},
			"drafts/wip.md":    {Data: []byte("not yet"), ModTime: modTime},
			"logo.bin":         {Data: []byte{0x1, 0x2}, ModTime: modTime},
		}

		By("indexing every new document")
		report := reconcile(tree)
		Expect(report.Added).To(Equal(2))
		Expect(report.Skipped).To(ConsistOf(sync.SkippedDocument{ID: "handbook/logo.bin", Reason: sync.SkipUnsupportedContent}))
		Expect(index.Documents()).To(Equal(map[string]string{
			"handbook/intro.md":         "# Intro",
			"handbook/guides/setup.txt": "install it",
		}))

		checksums, err := ledger.Checksums(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(checksums).To(HaveLen(2))

		By("skipping documents whose checksum did not change")
		report = reconcile(tree)
		Expect(report.Added).To(BeZero())
		Expect(report.Unchanged).To(Equal(2))

		By("re-indexing changed documents and removing deleted ones")
		tree["intro.md"] = &fstest.MapFile{Data: []byte("# Intro v2"), ModTime: modTime.Add(time.Hour)}
		delete(tree, "guides/setup.txt")

		report = reconcile(tree)
		Expect(report.Added).To(Equal(1))
		Expect(report.Deleted).To(Equal(1))
		Expect(index.Documents()).To(Equal(map[string]string{"handbook/intro.md": "# Intro v2"}))

		checksums, err = ledger.Checksums(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(checksums).To(HaveKey("handbook/intro.md"))
		Expect(checksums).NotTo(HaveKey("handbook/guides/setup.txt"))
		Expect(index.OpenSyncJobs()).To(BeZero())
	})

	It("does not record documents the index rejected", func() {
		index.Reject["handbook/bad.md"] = true
		tree := fstest.MapFS{
			"good.md": {Data: []byte("fine")},
			"bad.md":  {Data: []byte("broken")},
		}

		report := reconcile(tree)
		Expect(report.Added).To(Equal(1))
		Expect(report.Failed).To(HaveLen(1))
		Expect(report.Failed[0].ID).To(Equal("handbook/bad.md"))

		checksums, err := ledger.Checksums(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(checksums).To(HaveKey("handbook/good.md"))
		Expect(checksums).NotTo(HaveKey("handbook/bad.md"))
	})
})

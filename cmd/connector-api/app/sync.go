package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/stacklok/connector-lifecycle-server/internal/api/v1"
	"github.com/stacklok/connector-lifecycle-server/internal/app/storage"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/httpclient"
	"github.com/stacklok/connector-lifecycle-server/internal/lifecycle"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
	docsync "github.com/stacklok/connector-lifecycle-server/internal/sync"
	"github.com/stacklok/connector-lifecycle-server/internal/telemetry"
)

const (
	syncTracerName   = "github.com/stacklok/connector-lifecycle-server/sync"
	defaultRateBurst = 5
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile a document index against a connector source",
	Long: `Run one sync of the connector named by the job environment.

The command is the workload of a connector job. It reads the connector identity
from the environment variables set by the lifecycle controller, walks the
configured source, and pushes the documents whose checksum changed to the index.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().Bool("local-ledger", false, "Read and write the checksum ledger in the configured store instead of the API")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
}

// jobEnvironment is the identity a connector job receives from the controller
type jobEnvironment struct {
	jobID       string
	connectorID string
	arnPrefix   string
	apiEndpoint string
}

func readJobEnvironment(cfg *config.Config) (*jobEnvironment, error) {
	env := &jobEnvironment{
		jobID:       os.Getenv(lifecycle.EnvJobID),
		connectorID: os.Getenv(lifecycle.EnvConnectorID),
		arnPrefix:   os.Getenv(lifecycle.EnvARNPrefix),
		apiEndpoint: os.Getenv(lifecycle.EnvAPIEndpoint),
	}
	if env.connectorID == "" {
		return nil, fmt.Errorf("%s must be set", lifecycle.EnvConnectorID)
	}
	if env.arnPrefix == "" {
		env.arnPrefix = cfg.Scope.Scope().String()
	}
	if env.apiEndpoint == "" {
		env.apiEndpoint = cfg.Server.APIEndpoint
	}
	return env, nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Sync == nil {
		return fmt.Errorf("sync configuration is required")
	}
	env, err := readJobEnvironment(cfg)
	if err != nil {
		return err
	}
	localLedger, err := cmd.Flags().GetBool("local-ledger")
	if err != nil {
		return fmt.Errorf("failed to get local-ledger flag: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()
	metrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	ledger, closeLedger, err := buildLedger(ctx, cfg, env, localLedger)
	if err != nil {
		return err
	}
	defer closeLedger()

	opts := []docsync.Option{
		docsync.WithLedger(ledger),
		docsync.WithMetrics(metrics),
		docsync.WithTracer(tel.Tracer(syncTracerName)),
	}
	if oc := cfg.Sync.ObjectStore; oc != nil {
		objects, err := docsync.NewMinioStore(oc)
		if err != nil {
			return fmt.Errorf("failed to create object store client: %w", err)
		}
		opts = append(opts, docsync.WithObjectStore(objects, oc.Prefix))
	}
	reconciler := docsync.NewReconciler(env.connectorID, buildIndex(cfg.Sync), opts...)

	producer, closeProducer, err := buildProducer(ctx, cfg.Sync, ledger)
	if err != nil {
		return err
	}
	defer closeProducer()

	slog.InfoContext(ctx, "Starting sync",
		"connector_id", env.connectorID, "job_id", env.jobID, "source", cfg.Sync.Source.Type)
	report, err := reconciler.Reconcile(ctx, producer)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	slog.InfoContext(ctx, "Sync complete",
		"connector_id", env.connectorID,
		"added", report.Added,
		"deleted", report.Deleted,
		"unchanged", report.Unchanged,
		"skipped", len(report.Skipped),
		"failed", len(report.Failed))
	for _, s := range report.Skipped {
		slog.WarnContext(ctx, "Skipped document", "document_id", s.ID, "reason", s.Reason)
	}
	for _, f := range report.Failed {
		slog.WarnContext(ctx, "Index rejected document", "document_id", f.ID, "error", f.ErrorMessage)
	}
	return nil
}

// buildLedger returns the checksum ledger of the connector, either through
// the API or directly in the configured store
func buildLedger(
	ctx context.Context, cfg *config.Config, env *jobEnvironment, local bool,
) (docsync.Ledger, func(), error) {
	if !local {
		if env.apiEndpoint == "" {
			return nil, nil, fmt.Errorf("%s or server.apiEndpoint must be set", lifecycle.EnvAPIEndpoint)
		}
		client := httpclient.NewDefaultClient(
			config.Duration(cfg.Sync.Timeout, httpclient.DefaultTimeout),
			httpclient.WithRateLimit(cfg.Sync.RateLimit, defaultRateBurst),
			httpclient.WithHeader(v1.ScopeHeader, env.arnPrefix),
		)
		return docsync.NewHTTPLedger(client, env.apiEndpoint, env.connectorID), func() {}, nil
	}

	scope, err := service.ParseScope(env.arnPrefix)
	if err != nil {
		return nil, nil, err
	}
	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	store, err := factory.CreateStore(ctx)
	if err != nil {
		factory.Cleanup()
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	registry := connectors.New(store)
	return docsync.NewLocalLedger(documents.New(store, registry), registry, scope, env.connectorID), factory.Cleanup, nil
}

func buildIndex(sc *config.SyncConfig) docsync.Index {
	var opts []httpclient.Option
	if sc.Index.TokenEnv != "" {
		if token := os.Getenv(sc.Index.TokenEnv); token != "" {
			opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+token))
		}
	}
	opts = append(opts, httpclient.WithRateLimit(sc.RateLimit, defaultRateBurst))
	client := httpclient.NewDefaultClient(config.Duration(sc.Timeout, httpclient.DefaultTimeout), opts...)
	return docsync.NewHTTPIndex(client, sc.Index.Endpoint, sc.Index.IndexID, sc.Index.DataSourceID)
}

func buildProducer(
	ctx context.Context, sc *config.SyncConfig, ledger docsync.Ledger,
) (docsync.Producer, func(), error) {
	switch sc.Source.Type {
	case config.SourceTypeGit:
		previous, err := ledger.Checkpoint(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read checkpoint: %w", err)
		}
		start := time.Now()
		producer, err := docsync.NewGitProducer(ctx, sc.Source.Git, previous)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to clone %s: %w", sc.Source.Git.URL, err)
		}
		slog.InfoContext(ctx, "Cloned repository",
			"url", sc.Source.Git.URL, "commit", producer.Checkpoint(), "duration", time.Since(start))
		return producer, producer.Close, nil
	case config.SourceTypeFilesystem:
		fc := sc.Source.Filesystem
		producer, err := docsync.NewFSProducer(os.DirFS(fc.Root), fc.Include, fc.Exclude,
			docsync.WithIDPrefix(fc.IDPrefix),
			docsync.WithSourceURI(fc.SourceURI),
			docsync.WithDeletionsFrom(ledger),
		)
		if err != nil {
			return nil, nil, err
		}
		return producer, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", sc.Source.Type)
	}
}

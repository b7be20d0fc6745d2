package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/connector-lifecycle-server/internal/api"
	"github.com/stacklok/connector-lifecycle-server/internal/app/storage"
	"github.com/stacklok/connector-lifecycle-server/internal/auth"
	"github.com/stacklok/connector-lifecycle-server/internal/authz"
	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/feed"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/kubernetes"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
	"github.com/stacklok/connector-lifecycle-server/internal/lifecycle"
	"github.com/stacklok/connector-lifecycle-server/internal/telemetry"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	lifecycleTracerName = "github.com/stacklok/connector-lifecycle-server/lifecycle"
)

// ConnectorAppOption configures the application builder
type ConnectorAppOption func(*connectorAppConfig) error

// connectorAppConfig collects the builder inputs. Component overrides exist
// mainly for tests.
type connectorAppConfig struct {
	config *config.Config

	storageFactory storage.Factory
	broker         feed.Broker
	compute        batch.Compute
	migrate        bool

	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	validatorFactory auth.ValidatorFactory
}

func baseConfig(opts ...ConnectorAppOption) (*connectorAppConfig, error) {
	cfg := &connectorAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetAddress()
	}
	return cfg, nil
}

// NewConnectorApp builds the store, the change feed, the compute backend, the
// lifecycle controller and the HTTP server described by the configuration.
func NewConnectorApp(ctx context.Context, opts ...ConnectorAppOption) (*ConnectorApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	var cleanups []func()
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			cancel()
			runCleanups(cleanups)
		}
	}()

	components := &AppComponents{}

	store, cleanup, err := buildStore(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	cleanups = append(cleanups, cleanup)
	components.Store = store

	broker, err := buildBroker(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build change feed: %w", err)
	}
	cleanups = append(cleanups, func() {
		if err := broker.Close(); err != nil {
			slog.Warn("Failed to close change feed", "error", err)
		}
	})
	components.Broker = broker

	// Job writes are announced on the feed; the controller reacts to them.
	published := feed.NewPublishingStore(store, broker, kv.TableJobs)
	components.Connectors = connectors.New(published)
	components.Jobs = jobs.New(published, components.Connectors)
	components.Documents = documents.New(published, components.Connectors)

	relay := &completionRelay{}
	compute, err := buildCompute(appCtx, cfg, relay)
	if err != nil {
		return nil, fmt.Errorf("failed to build compute backend: %w", err)
	}
	components.Compute = compute

	controller, err := buildController(cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build lifecycle controller: %w", err)
	}
	relay.SetCompletionHandler(controller)
	components.Controller = controller

	if !cfg.config.Lifecycle.DisableResync {
		components.Resync = lifecycle.NewResync(published, components.Jobs, broker,
			lifecycle.WithResyncInterval(
				config.Duration(cfg.config.Lifecycle.ResyncInterval, lifecycle.DefaultResyncInterval),
				config.Duration(cfg.config.Lifecycle.ResyncJitter, lifecycle.DefaultResyncJitter),
			),
			lifecycle.WithGracePeriod(config.Duration(cfg.config.Lifecycle.GracePeriod, lifecycle.DefaultGracePeriod)),
		)
	}

	httpServer, err := buildHTTPServer(appCtx, cfg, components)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	cleanupNeeded = false
	return &ConnectorApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
		cleanup:    sync.OnceFunc(func() { runCleanups(cleanups) }),

		controllerDone: make(chan struct{}),
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress overrides the configured HTTP listen address
func WithAddress(addr string) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "localhost":
			host = "127.0.0.1"
		case "":
			host = "0.0.0.0"
		}
		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRequestTimeout sets the per-request deadline of the default middlewares
func WithRequestTimeout(d time.Duration) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got %s", d)
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithStorageFactory injects the storage factory
func WithStorageFactory(f storage.Factory) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithBroker injects the change feed
func WithBroker(b feed.Broker) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.broker = b
		return nil
	}
}

// WithCompute injects the compute backend. A backend with a
// SetCompletionHandler method is bound to the lifecycle controller.
func WithCompute(c batch.Compute) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.compute = c
		return nil
	}
}

// WithMigrations applies pending schema migrations when the store is opened
func WithMigrations(enabled bool) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.migrate = enabled
		return nil
	}
}

// WithMeterProvider enables HTTP and lifecycle metrics
func WithMeterProvider(mp metric.MeterProvider) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider enables HTTP, controller and store tracing
func WithTracerProvider(tp trace.TracerProvider) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithValidatorFactory overrides how OAuth providers validate tokens
func WithValidatorFactory(f auth.ValidatorFactory) ConnectorAppOption {
	return func(cfg *connectorAppConfig) error {
		cfg.validatorFactory = f
		return nil
	}
}

func (b *connectorAppConfig) tracer(name string) trace.Tracer {
	if b.tracerProvider == nil {
		return nil
	}
	return b.tracerProvider.Tracer(name)
}

func buildStore(ctx context.Context, b *connectorAppConfig) (kv.Store, func(), error) {
	if b.storageFactory == nil {
		f, err := storage.NewStorageFactory(ctx, b.config,
			storage.WithTracer(b.tracer(kv.StoreTracerName)),
			storage.WithMigrations(b.migrate),
		)
		if err != nil {
			return nil, nil, err
		}
		b.storageFactory = f
	}

	store, err := b.storageFactory.CreateStore(ctx)
	if err != nil {
		b.storageFactory.Cleanup()
		return nil, nil, err
	}
	return store, b.storageFactory.Cleanup, nil
}

func buildBroker(b *connectorAppConfig) (feed.Broker, error) {
	if b.broker != nil {
		return b.broker, nil
	}

	switch b.config.Feed.Type {
	case config.FeedTypeRedis:
		rc := b.config.Feed.Redis
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{rc.Address},
			Username: rc.Username,
			Password: rc.GetPassword(),
			DB:       rc.DB,
		})
		slog.Info("Using Redis change feed", "address", rc.Address, "stream", rc.GetStream(), "group", rc.GetGroup())

		opts := []feed.RedisOption{
			feed.WithStream(rc.GetStream()),
			feed.WithGroup(rc.GetGroup()),
			feed.WithConsumer(rc.GetConsumer()),
		}
		if rc.ClaimIdle != "" {
			opts = append(opts, feed.WithClaimIdle(config.Duration(rc.ClaimIdle, time.Minute)))
		}
		return feed.NewRedisBroker(client, opts...), nil
	case config.FeedTypeMemory, "":
		slog.Info("Using in-memory change feed")
		return feed.NewMemoryBroker(), nil
	default:
		return nil, fmt.Errorf("unknown feed type: %s", b.config.Feed.Type)
	}
}

func buildCompute(ctx context.Context, b *connectorAppConfig, relay *completionRelay) (batch.Compute, error) {
	if b.compute != nil {
		if binder, ok := b.compute.(completionBinder); ok {
			binder.SetCompletionHandler(relay)
		}
		return b.compute, nil
	}

	switch b.config.Compute.Type {
	case config.ComputeTypeKubernetes:
		kc := b.config.Compute.Kubernetes
		opts := []kubernetes.Option{
			kubernetes.WithNamespace(kc.GetNamespace()),
			kubernetes.WithCompletionHandler(relay),
		}
		if kc != nil {
			opts = append(opts, kubernetes.WithLeaderElection(kc.LeaderElection))
			if kc.ServiceAccount != "" {
				opts = append(opts, kubernetes.WithServiceAccount(kc.ServiceAccount))
			}
			if kc.RequeueAfter != "" {
				opts = append(opts, kubernetes.WithRequeueAfter(config.Duration(kc.RequeueAfter, 0)))
			}
		}
		backend, err := kubernetes.NewBackend(ctx, opts...)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Kubernetes compute backend", "namespace", kc.GetNamespace())
		return backend.Compute, nil
	case config.ComputeTypeMemory, "":
		slog.Warn("Using in-memory compute backend; connector runs never execute")
		mem := batch.NewMemoryCompute()
		mem.SetCompletionHandler(relay)
		return mem, nil
	default:
		return nil, fmt.Errorf("unknown compute type: %s", b.config.Compute.Type)
	}
}

func buildController(b *connectorAppConfig, c *AppComponents) (*lifecycle.Controller, error) {
	opts := []lifecycle.Option{
		lifecycle.WithAPIEndpoint(b.config.Server.APIEndpoint),
	}
	if tracer := b.tracer(lifecycleTracerName); tracer != nil {
		opts = append(opts, lifecycle.WithTracer(tracer))
	}
	if b.meterProvider != nil {
		metrics, err := telemetry.NewLifecycleMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create lifecycle metrics: %w", err)
		}
		opts = append(opts, lifecycle.WithMetrics(metrics))
	}
	return lifecycle.NewController(c.Jobs, c.Connectors, c.Compute, opts...), nil
}

func buildHTTPServer(ctx context.Context, b *connectorAppConfig, c *AppComponents) (*http.Server, error) {
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middlewares go first so that they observe every request.
	var leading []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		leading = append(leading, telemetry.TracingMiddleware(b.tracerProvider))
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		leading = append(leading, metricsMiddleware)
	}
	middlewares := append(leading, b.middlewares...)

	security, authInfoHandler, err := buildSecurityMiddlewares(ctx, b)
	if err != nil {
		return nil, err
	}
	middlewares = append(middlewares, security...)

	router := api.NewServer(api.Services{
		Connectors: c.Connectors,
		Jobs:       c.Jobs,
		Documents:  c.Documents,
		Readiness:  c.Store,
	},
		api.WithMiddlewares(middlewares...),
		api.WithDefaultScope(b.config.Scope.Scope()),
		api.WithAuthInfoHandler(authInfoHandler),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}

// buildSecurityMiddlewares returns the authentication and authorization
// middlewares, in that order, plus the protected resource metadata handler.
// Both are empty in anonymous mode.
func buildSecurityMiddlewares(
	ctx context.Context,
	b *connectorAppConfig,
) ([]func(http.Handler) http.Handler, http.Handler, error) {
	authCfg := b.config.Auth
	if authCfg.GetMode() == config.AuthModeAnonymous {
		return nil, nil, nil
	}

	authMw, authInfoHandler, err := auth.NewAuthMiddleware(ctx, authCfg, b.validatorFactory)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}
	middlewares := []func(http.Handler) http.Handler{authMw}

	if authCfg.Authz != nil {
		policies, err := authCfg.Authz.LoadPolicies()
		if err != nil {
			return nil, nil, err
		}
		authorizer, err := authz.NewCedarAuthorizer(policies)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create authorizer: %w", err)
		}
		middlewares = append(middlewares, authz.Middleware(authorizer, authCfg.Authz, b.config.Scope.Scope()))
		slog.Info("Authorization enabled", "tenant_claim", authCfg.Authz.GetTenantClaim())
	}
	return middlewares, authInfoHandler, nil
}

func runCleanups(cleanups []func()) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

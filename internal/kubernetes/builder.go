package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
)

const (
	defaultNamespace    = "default"
	defaultRequeueAfter = 10 * time.Second

	leaderElectionID = "connector-lifecycle-server-leader-election"
)

type controllerOptions struct {
	namespace      string
	serviceAccount string
	requeueAfter   time.Duration
	leaderElection bool
	handler        batch.CompletionHandler
}

// Option configures the Kubernetes backend
type Option func(*controllerOptions) error

// WithNamespace sets the namespace Jobs run in
func WithNamespace(namespace string) Option {
	return func(o *controllerOptions) error {
		if namespace == "" {
			return fmt.Errorf("namespace cannot be empty")
		}
		o.namespace = namespace
		return nil
	}
}

// WithServiceAccount sets the service account of connector pods
func WithServiceAccount(name string) Option {
	return func(o *controllerOptions) error {
		o.serviceAccount = name
		return nil
	}
}

// WithRequeueAfter sets the delay before a failed delivery is retried
func WithRequeueAfter(requeueAfter time.Duration) Option {
	return func(o *controllerOptions) error {
		if requeueAfter <= 0 {
			return fmt.Errorf("requeueAfter must be greater than 0")
		}
		o.requeueAfter = requeueAfter
		return nil
	}
}

// WithLeaderElection enables leader election between replicas
func WithLeaderElection(enabled bool) Option {
	return func(o *controllerOptions) error {
		o.leaderElection = enabled
		return nil
	}
}

// WithCompletionHandler sets the receiver of Job completions
func WithCompletionHandler(h batch.CompletionHandler) Option {
	return func(o *controllerOptions) error {
		if h == nil {
			return fmt.Errorf("completion handler is required")
		}
		o.handler = h
		return nil
	}
}

// Backend is a running Kubernetes compute backend
type Backend struct {
	Compute *Compute
	Manager ctrl.Manager
}

// NewBackend creates the compute backend and starts the Job controller. The
// controller stops when ctx is cancelled.
func NewBackend(ctx context.Context, opts ...Option) (*Backend, error) {
	o := &controllerOptions{
		namespace:    defaultNamespace,
		requeueAfter: defaultRequeueAfter,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.handler == nil {
		return nil, fmt.Errorf("completion handler is required")
	}

	ctrl.SetLogger(logr.FromSlogHandler(slog.Default().Handler()))

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add client-go scheme: %w", err)
	}

	options := ctrl.Options{
		Scheme:           scheme,
		LeaderElection:   o.leaderElection,
		LeaderElectionID: leaderElectionID,
		Metrics:          metricsserver.Options{BindAddress: "0"},
		Cache: cache.Options{
			DefaultNamespaces: map[string]cache.Config{o.namespace: {}},
		},
		Client: client.Options{
			Cache: &client.CacheOptions{
				DisableFor: []client.Object{&corev1.PodTemplate{}},
			},
		},
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), options)
	if err != nil {
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	reconciler := NewJobReconciler(mgr.GetClient(), o.handler, o.requeueAfter)
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return nil, fmt.Errorf("failed to setup controller with manager: %w", err)
	}

	go func() {
		if err := mgr.Start(ctx); err != nil {
			slog.Error("Failed to start manager", "error", err)
		}
	}()

	return &Backend{
		Compute: NewCompute(mgr.GetClient(), o.namespace, o.serviceAccount),
		Manager: mgr,
	}, nil
}

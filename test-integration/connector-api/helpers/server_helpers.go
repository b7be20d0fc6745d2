package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	"github.com/stacklok/connector-lifecycle-server/internal/app"
	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

// ServerTestHelper manages the connector API server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	httpClient *http.Client
	app        *app.ConnectorApp
	compute    *batch.MemoryCompute
	listener   net.Listener
}

// NewServerTestHelper creates a helper serving configPath on a free port
func NewServerTestHelper(ctx context.Context, configPath string) *ServerTestHelper {
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		compute:    batch.NewMemoryCompute(),
	}
}

// StartServer builds the application and serves it in the background
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	connectorApp, err := app.NewConnectorApp(s.ctx,
		app.WithConfig(cfg),
		app.WithCompute(s.compute),
		app.WithMigrations(true),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = connectorApp

	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.baseURL = "http://" + s.listener.Addr().String()

	go func() {
		if err := connectorApp.Serve(s.listener); err != nil {
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()
	return nil
}

// StopServer gracefully stops the server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits until /readiness answers 200
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// GetBaseURL returns the base URL of the server
func (s *ServerTestHelper) GetBaseURL() string {
	return s.baseURL
}

// Compute returns the in-process compute backend running connector jobs
func (s *ServerTestHelper) Compute() *batch.MemoryCompute {
	return s.compute
}

// WriteConfigYAML writes a configuration backed by a SQLite file in dir
func WriteConfigYAML(dir string) string {
	content := fmt.Sprintf(`scope:
  region: us-east-1
  account: "123456789012"
storage:
  type: file
  file:
    path: %s
feed:
  type: memory
compute:
  type: memory
lifecycle:
  resyncInterval: 1s
  resyncJitter: 100ms
  gracePeriod: 2s
`, filepath.Join(dir, "connectors.db"))

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, []byte(content), 0o600)).To(gomega.Succeed())
	return path
}

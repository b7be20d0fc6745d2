// Package config provides configuration loading and validation for the
// connector lifecycle server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/connector-lifecycle-server/internal/service"
	"github.com/stacklok/connector-lifecycle-server/internal/sync"
	"github.com/stacklok/connector-lifecycle-server/internal/telemetry"
)

// Storage backends
const (
	StorageTypeMemory   = "memory"
	StorageTypeFile     = "file"
	StorageTypeDatabase = "database"
)

// Change feed backends
const (
	FeedTypeMemory = "memory"
	FeedTypeRedis  = "redis"
)

// Compute backends
const (
	ComputeTypeMemory     = "memory"
	ComputeTypeKubernetes = "kubernetes"
)

// Document sources of the sync command
const (
	SourceTypeGit        = "git"
	SourceTypeFilesystem = "filesystem"
)

// EnvPrefix is the prefix of environment variables read by the server
const EnvPrefix = "CCF"

// DatabasePasswordEnv holds the database password when no password file is set
const DatabasePasswordEnv = EnvPrefix + "_DATABASE_PASSWORD"

const (
	defaultAddress     = ":8080"
	defaultFileStorage = "./data/connectors.db"
	defaultRedisStream = "ccf:events"
	defaultRedisGroup  = "lifecycle-controller"
	defaultNamespace   = "default"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Scope     ScopeConfig       `yaml:"scope"`
	Storage   StorageConfig     `yaml:"storage"`
	Feed      FeedConfig        `yaml:"feed"`
	Compute   ComputeConfig     `yaml:"compute"`
	Lifecycle LifecycleConfig   `yaml:"lifecycle"`
	Sync      *SyncConfig       `yaml:"sync,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
	Auth      *AuthConfig       `yaml:"auth,omitempty"`
}

// ServerConfig defines the HTTP listener
type ServerConfig struct {
	// Address is the listen address, ":8080" when empty
	Address string `yaml:"address,omitempty"`

	// APIEndpoint is the URL connector containers use to reach this server
	APIEndpoint string `yaml:"apiEndpoint,omitempty"`
}

// ScopeConfig is the tenant of requests that carry no scope header
type ScopeConfig struct {
	Region  string `yaml:"region"`
	Account string `yaml:"account"`
}

// Scope returns the service scope
func (s ScopeConfig) Scope() service.Scope {
	return service.Scope{Region: s.Region, Account: s.Account}
}

// StorageConfig selects and configures the resource store
type StorageConfig struct {
	// Type is one of memory, file or database
	Type     string          `yaml:"type"`
	File     *FileConfig     `yaml:"file,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// FileConfig defines the SQLite file store
type FileConfig struct {
	// Path is the database file, created when missing
	Path string `yaml:"path,omitempty"`
}

// GetPath returns the database file path, using the default if not specified
func (f *FileConfig) GetPath() string {
	if f == nil || f.Path == "" {
		return defaultFileStorage
	}
	return f.Path
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`

	// DynamicAuth replaces the static password with short-lived tokens
	DynamicAuth *DatabaseDynamicAuthConfig `yaml:"dynamicAuth,omitempty"`
}

// DatabaseDynamicAuthConfig selects a dynamic authentication method
type DatabaseDynamicAuthConfig struct {
	AWSRDSIAM *AWSRDSIAMConfig `yaml:"awsRdsIam,omitempty"`
}

// AWSRDSIAMConfig configures AWS RDS IAM authentication
type AWSRDSIAMConfig struct {
	// Region is the AWS region of the database, or "detect" to ask the
	// instance metadata service
	Region string `yaml:"region"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the CCF_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(DatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	if d.DynamicAuth != nil {
		// the password is supplied per connection
		return d.BuildConnectionStringWithAuth(""), nil
	}

	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	return d.BuildConnectionStringWithAuth(password), nil
}

// BuildConnectionStringWithAuth builds a connection string carrying the given
// password. An empty password leaves the user info without one.
func (d *DatabaseConfig) BuildConnectionStringWithAuth(password string) string {
	userInfo := url.QueryEscape(d.User)
	if password != "" {
		userInfo += ":" + url.QueryEscape(password)
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)
}

// FeedConfig selects and configures the change feed
type FeedConfig struct {
	// Type is memory or redis
	Type  string       `yaml:"type"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines the Redis stream carrying job changes
type RedisConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username,omitempty"`
	// PasswordEnv names the environment variable holding the password
	PasswordEnv string `yaml:"passwordEnv,omitempty"`
	DB          int    `yaml:"db,omitempty"`
	Stream      string `yaml:"stream,omitempty"`
	Group       string `yaml:"group,omitempty"`
	// Consumer identifies this replica in the group, the hostname when empty
	Consumer  string `yaml:"consumer,omitempty"`
	ClaimIdle string `yaml:"claimIdle,omitempty"`
}

// GetStream returns the stream name, using the default if not specified
func (r *RedisConfig) GetStream() string {
	if r.Stream == "" {
		return defaultRedisStream
	}
	return r.Stream
}

// GetGroup returns the consumer group, using the default if not specified
func (r *RedisConfig) GetGroup() string {
	if r.Group == "" {
		return defaultRedisGroup
	}
	return r.Group
}

// GetConsumer returns the consumer name, using the hostname if not specified
func (r *RedisConfig) GetConsumer() string {
	if r.Consumer != "" {
		return r.Consumer
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "controller"
}

// GetPassword returns the password read from PasswordEnv
func (r *RedisConfig) GetPassword() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// ComputeConfig selects and configures the batch compute backend
type ComputeConfig struct {
	// Type is memory or kubernetes
	Type       string            `yaml:"type"`
	Kubernetes *KubernetesConfig `yaml:"kubernetes,omitempty"`
}

// KubernetesConfig defines where connector Jobs run
type KubernetesConfig struct {
	Namespace      string `yaml:"namespace,omitempty"`
	ServiceAccount string `yaml:"serviceAccount,omitempty"`
	LeaderElection bool   `yaml:"leaderElection,omitempty"`
	RequeueAfter   string `yaml:"requeueAfter,omitempty"`
}

// GetNamespace returns the namespace, using "default" if not specified
func (k *KubernetesConfig) GetNamespace() string {
	if k == nil || k.Namespace == "" {
		return defaultNamespace
	}
	return k.Namespace
}

// LifecycleConfig tunes the job resync loop
type LifecycleConfig struct {
	// ResyncInterval is the base interval between resync passes
	ResyncInterval string `yaml:"resyncInterval,omitempty"`
	// ResyncJitter is the maximum random offset applied to the interval
	ResyncJitter string `yaml:"resyncJitter,omitempty"`
	// GracePeriod is how long a job may stay STARTED or STOPPING before it is replayed
	GracePeriod string `yaml:"gracePeriod,omitempty"`
	// DisableResync turns the resync loop off
	DisableResync bool `yaml:"disableResync,omitempty"`
}

// SyncConfig configures the sync command run inside connector containers
type SyncConfig struct {
	Index       IndexConfig             `yaml:"index"`
	ObjectStore *sync.ObjectStoreConfig `yaml:"objectStore,omitempty"`
	Source      SourceConfig            `yaml:"source"`
	RateLimit   float64                 `yaml:"rateLimit,omitempty"`
	Timeout     string                  `yaml:"timeout,omitempty"`
}

// IndexConfig identifies the document index
type IndexConfig struct {
	Endpoint     string `yaml:"endpoint"`
	IndexID      string `yaml:"indexId"`
	DataSourceID string `yaml:"dataSourceId"`
	// TokenEnv names the environment variable holding the bearer token
	TokenEnv string `yaml:"tokenEnv,omitempty"`
}

// SourceConfig selects the document producer
type SourceConfig struct {
	// Type is git or filesystem
	Type       string            `yaml:"type"`
	Git        *sync.GitConfig   `yaml:"git,omitempty"`
	Filesystem *FilesystemConfig `yaml:"filesystem,omitempty"`
}

// FilesystemConfig defines a local directory source
type FilesystemConfig struct {
	Root      string   `yaml:"root"`
	Include   []string `yaml:"include,omitempty"`
	Exclude   []string `yaml:"exclude,omitempty"`
	IDPrefix  string   `yaml:"idPrefix,omitempty"`
	SourceURI string   `yaml:"sourceUri,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates YAML configuration
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetAddress returns the listen address, using the default if not specified
func (c *Config) GetAddress() string {
	if c.Server.Address == "" {
		return defaultAddress
	}
	return c.Server.Address
}

func (c *Config) applyDefaults() {
	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeMemory
	}
	if c.Feed.Type == "" {
		c.Feed.Type = FeedTypeMemory
	}
	if c.Compute.Type == "" {
		c.Compute.Type = ComputeTypeMemory
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if err := c.Scope.validate(); err != nil {
		errs = append(errs, fmt.Errorf("scope: %w", err))
	}
	if err := c.Storage.validate(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if err := c.Feed.validate(); err != nil {
		errs = append(errs, fmt.Errorf("feed: %w", err))
	}
	if err := c.Compute.validate(); err != nil {
		errs = append(errs, fmt.Errorf("compute: %w", err))
	}
	if err := c.Lifecycle.validate(); err != nil {
		errs = append(errs, fmt.Errorf("lifecycle: %w", err))
	}
	if c.Sync != nil {
		if err := c.Sync.validate(); err != nil {
			errs = append(errs, fmt.Errorf("sync: %w", err))
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	if err := c.Auth.validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}
	return errors.Join(errs...)
}

func (s ScopeConfig) validate() error {
	if s.Region == "" || s.Account == "" {
		return fmt.Errorf("region and account are required")
	}
	if strings.Contains(s.Region, ":") || strings.Contains(s.Account, ":") {
		return fmt.Errorf("region and account cannot contain ':'")
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Type {
	case StorageTypeMemory, StorageTypeFile:
		return nil
	case StorageTypeDatabase:
		if s.Database == nil {
			return fmt.Errorf("database configuration is required for storage type %s", s.Type)
		}
		return s.Database.validate()
	default:
		return fmt.Errorf("unknown storage type %q", s.Type)
	}
}

func (d *DatabaseConfig) validate() error {
	if d.Host == "" || d.User == "" || d.Database == "" {
		return fmt.Errorf("database host, user and database are required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got %d", d.Port)
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database connMaxLifetime must be a valid duration: %w", err)
		}
	}
	if d.DynamicAuth != nil {
		if d.DynamicAuth.AWSRDSIAM == nil {
			return fmt.Errorf("database dynamicAuth requires a method (awsRdsIam)")
		}
		if d.DynamicAuth.AWSRDSIAM.Region == "" {
			return fmt.Errorf("database dynamicAuth.awsRdsIam.region is required")
		}
	}
	return nil
}

func (f *FeedConfig) validate() error {
	switch f.Type {
	case FeedTypeMemory:
		return nil
	case FeedTypeRedis:
		if f.Redis == nil || f.Redis.Address == "" {
			return fmt.Errorf("redis.address is required for feed type %s", f.Type)
		}
		return validateDuration("redis.claimIdle", f.Redis.ClaimIdle)
	default:
		return fmt.Errorf("unknown feed type %q", f.Type)
	}
}

func (c *ComputeConfig) validate() error {
	switch c.Type {
	case ComputeTypeMemory:
		return nil
	case ComputeTypeKubernetes:
		if c.Kubernetes == nil {
			return nil
		}
		return validateDuration("kubernetes.requeueAfter", c.Kubernetes.RequeueAfter)
	default:
		return fmt.Errorf("unknown compute type %q", c.Type)
	}
}

func (l *LifecycleConfig) validate() error {
	return errors.Join(
		validateDuration("resyncInterval", l.ResyncInterval),
		validateDuration("resyncJitter", l.ResyncJitter),
		validateDuration("gracePeriod", l.GracePeriod),
	)
}

func (s *SyncConfig) validate() error {
	var errs []error
	if s.Index.Endpoint == "" || s.Index.IndexID == "" || s.Index.DataSourceID == "" {
		errs = append(errs, fmt.Errorf("index endpoint, indexId and dataSourceId are required"))
	}
	if s.ObjectStore != nil {
		if err := s.ObjectStore.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("objectStore: %w", err))
		}
	}
	if s.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rateLimit cannot be negative"))
	}
	errs = append(errs, validateDuration("timeout", s.Timeout))

	switch s.Source.Type {
	case SourceTypeGit:
		if s.Source.Git == nil {
			errs = append(errs, fmt.Errorf("source.git is required for source type git"))
		} else if err := s.Source.Git.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("source.git: %w", err))
		}
	case SourceTypeFilesystem:
		if s.Source.Filesystem == nil || s.Source.Filesystem.Root == "" {
			errs = append(errs, fmt.Errorf("source.filesystem.root is required for source type filesystem"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source type %q", s.Source.Type))
	}
	return errors.Join(errs...)
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '2m'): %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("%s cannot be negative", field)
	}
	return nil
}

// Duration parses a validated duration field, returning fallback when it is empty
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

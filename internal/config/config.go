// Package config provides configuration loading and validation for the
// metadata update server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

// EnvPrefix is the prefix of environment variables read by the server
const EnvPrefix = "PVPMETA"

const (
	// EndpointTypeHTTP fetches the payload over HTTP(S)
	EndpointTypeHTTP = "http"

	// EndpointTypeGit reads the payload from a file in a Git repository
	EndpointTypeGit = "git"

	// EndpointTypeFile reads the payload from the local filesystem
	EndpointTypeFile = "file"
)

const (
	// DriverSQLite stores data in a local SQLite file
	DriverSQLite = "sqlite"

	// DriverPostgres stores data in PostgreSQL
	DriverPostgres = "postgres"
)

const (
	// DefaultStartupDelay is the grace delay before the first scheduled check
	DefaultStartupDelay = 30 * time.Second

	// DefaultFetchTimeout bounds a single remote call
	DefaultFetchTimeout = 2 * time.Minute

	defaultSQLitePath = "./data/pvpmeta.db"
)

var validKinds = map[string]bool{
	"gamemaster": true,
	"rankings":   true,
	"tiers":      true,
}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

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
	Sources   []SourceConfig    `yaml:"sources"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Scheduler *SchedulerConfig  `yaml:"scheduler,omitempty"`
	Server    *ServerConfig     `yaml:"server,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourceConfig defines one external feed
type SourceConfig struct {
	// ID is the stable identifier used in the store and the audit log
	ID string `yaml:"id"`

	// Name is a human readable label, defaults to ID
	Name string `yaml:"name,omitempty"`

	// Kind selects the update routine: gamemaster, rankings or tiers
	Kind string `yaml:"kind"`

	Endpoint EndpointConfig `yaml:"endpoint"`

	// Scope narrows rankings and tiers feeds to a league and cup
	Scope ScopeConfig `yaml:"scope,omitempty"`

	// Interval is how often the source is checked for changes (e.g. "6h")
	Interval string `yaml:"interval"`

	// Priority overrides the weight derived from Kind when non-zero
	Priority int `yaml:"priority,omitempty"`

	// Active defaults to true when omitted
	Active *bool `yaml:"active,omitempty"`
}

// EndpointConfig locates the payload of a source
type EndpointConfig struct {
	// Type is one of http, git or file
	Type string `yaml:"type"`

	// URL is the HTTP URL or the Git repository URL
	URL string `yaml:"url,omitempty"`

	// Path is the local file path, or the file path inside the Git repository
	Path string `yaml:"path,omitempty"`

	// Branch is the Git branch to track, defaults to the remote HEAD
	Branch string `yaml:"branch,omitempty"`
}

// ScopeConfig identifies the league and cup of a rankings or tiers feed
type ScopeConfig struct {
	League string `yaml:"league,omitempty"`
	Cup    string `yaml:"cup,omitempty"`
}

// SchedulerConfig controls the timing of scheduled checks
type SchedulerConfig struct {
	// StartupDelay is the grace delay before the first check of every source
	StartupDelay string `yaml:"startupDelay,omitempty"`

	// FetchTimeout bounds each remote marker resolution and payload fetch
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`
}

// ServerConfig defines the admin HTTP server
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Driver is sqlite (default) or postgres
	Driver string `yaml:"driver,omitempty"`

	// Path is the SQLite database file
	Path string `yaml:"path,omitempty"`

	// Host is the PostgreSQL server hostname or IP address
	Host string `yaml:"host,omitempty"`

	// Port is the PostgreSQL server port
	Port int `yaml:"port,omitempty"`

	// User is the PostgreSQL username
	User string `yaml:"user,omitempty"`

	// PasswordFile is the path to a file containing the database password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the PostgreSQL database name
	Database string `yaml:"database,omitempty"`

	// SSLMode is the SSL mode for PostgreSQL (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is ignored for SQLite, which always uses one connection
	MaxOpenConns int `yaml:"maxOpenConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// IsActive returns the configured active flag, defaulting to true
func (s *SourceConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

// GetName returns the display name, falling back to the ID
func (s *SourceConfig) GetName() string {
	if s.Name == "" {
		return s.ID
	}
	return s.Name
}

// GetInterval returns the parsed check interval
func (s *SourceConfig) GetInterval() (time.Duration, error) {
	return time.ParseDuration(s.Interval)
}

// GetStartupDelay returns the configured grace delay, or the default
func (c *Config) GetStartupDelay() time.Duration {
	return parseDurationOr(c.Scheduler, func(s *SchedulerConfig) string { return s.StartupDelay }, DefaultStartupDelay)
}

// GetFetchTimeout returns the configured fetch timeout, or the default
func (c *Config) GetFetchTimeout() time.Duration {
	return parseDurationOr(c.Scheduler, func(s *SchedulerConfig) string { return s.FetchTimeout }, DefaultFetchTimeout)
}

func parseDurationOr(s *SchedulerConfig, field func(*SchedulerConfig) string, def time.Duration) time.Duration {
	if s == nil || field(s) == "" {
		return def
	}
	d, err := time.ParseDuration(field(s))
	if err != nil {
		return def
	}
	return d
}

// GetDriver returns the database driver, defaulting to sqlite
func (d *DatabaseConfig) GetDriver() string {
	if d == nil || d.Driver == "" {
		return DriverSQLite
	}
	return d.Driver
}

// GetPath returns the SQLite file path, or the default
func (d *DatabaseConfig) GetPath() string {
	if d == nil || d.Path == "" {
		return defaultSQLitePath
	}
	return d.Path
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from PVPMETA_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable", EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
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

	return Parse(data)
}

// Parse decodes and validates YAML configuration
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	ids := make(map[string]bool)
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if ids[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate source id '%s'", i, src.ID)
		}
		ids[src.ID] = true

		if err := validateSource(src, fmt.Sprintf("sources[%d] (%s)", i, src.ID)); err != nil {
			return err
		}
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateSource(src *SourceConfig, prefix string) error {
	if !validKinds[src.Kind] {
		return fmt.Errorf("%s: kind must be one of gamemaster, rankings, tiers, got '%s'", prefix, src.Kind)
	}

	if src.Interval == "" {
		return fmt.Errorf("%s: interval is required", prefix)
	}
	interval, err := src.GetInterval()
	if err != nil {
		return fmt.Errorf("%s: interval must be a valid duration (e.g., '30m', '6h'): %w", prefix, err)
	}
	if interval <= 0 {
		return fmt.Errorf("%s: interval must be positive", prefix)
	}

	if src.Priority < 0 {
		return fmt.Errorf("%s: priority must not be negative", prefix)
	}

	if src.Kind != "gamemaster" && src.Scope.League == "" {
		return fmt.Errorf("%s: scope.league is required for %s sources", prefix, src.Kind)
	}

	return validateEndpoint(&src.Endpoint, prefix)
}

func validateEndpoint(ep *EndpointConfig, prefix string) error {
	switch ep.Type {
	case EndpointTypeHTTP:
		if ep.URL == "" {
			return fmt.Errorf("%s: endpoint.url is required for http endpoints", prefix)
		}
		u, err := url.Parse(ep.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%s: endpoint.url must be an http(s) URL", prefix)
		}
	case EndpointTypeGit:
		if ep.URL == "" {
			return fmt.Errorf("%s: endpoint.url is required for git endpoints", prefix)
		}
		if ep.Path == "" {
			return fmt.Errorf("%s: endpoint.path is required for git endpoints", prefix)
		}
	case EndpointTypeFile:
		if ep.Path == "" {
			return fmt.Errorf("%s: endpoint.path is required for file endpoints", prefix)
		}
	default:
		return fmt.Errorf("%s: endpoint.type must be one of http, git, file, got '%s'", prefix, ep.Type)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler == nil {
		return nil
	}
	if c.Scheduler.StartupDelay != "" {
		if _, err := time.ParseDuration(c.Scheduler.StartupDelay); err != nil {
			return fmt.Errorf("scheduler: startupDelay must be a valid duration: %w", err)
		}
	}
	if c.Scheduler.FetchTimeout != "" {
		if _, err := time.ParseDuration(c.Scheduler.FetchTimeout); err != nil {
			return fmt.Errorf("scheduler: fetchTimeout must be a valid duration: %w", err)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.GetDriver() {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" || c.Database.User == "" {
			return fmt.Errorf("database: host, user and database are required for postgres")
		}
		return nil
	default:
		return fmt.Errorf("database: driver must be sqlite or postgres, got '%s'", c.Database.Driver)
	}
}

// Package config provides configuration management for the paper aggregator.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "PAPERS"

// Config holds all configuration for the paper aggregator.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Cache contains search and paper cache sizing.
	Cache CacheConfig `mapstructure:"cache"`
	// Search contains unified search settings.
	Search SearchConfig `mapstructure:"search"`
	// Sources contains the upstream API settings.
	Sources SourcesConfig `mapstructure:"sources"`
	// Health contains upstream probe settings.
	Health HealthConfig `mapstructure:"health"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// CacheConfig sizes the two in-memory caches.
type CacheConfig struct {
	SearchMaxEntries int           `mapstructure:"search_max_entries"`
	SearchTTL        time.Duration `mapstructure:"search_ttl"`
	PaperMaxEntries  int           `mapstructure:"paper_max_entries"`
	PaperTTL         time.Duration `mapstructure:"paper_ttl"`
	// CleanupInterval throttles the opportunistic expired-entry sweep.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SearchConfig holds unified search settings.
type SearchConfig struct {
	// DefaultSources are searched when a request names none. Empty means all.
	DefaultSources []string `mapstructure:"default_sources"`
}

// SourcesConfig holds configuration for every upstream API.
type SourcesConfig struct {
	// Email is the contact address sent to PubMed, CrossRef and OpenAlex
	// (loaded from PAPERS_SOURCES_EMAIL).
	Email string `mapstructure:"-"`
	// UserAgent overrides the User-Agent sent upstream.
	UserAgent string `mapstructure:"user_agent"`

	ArXiv    SourceConfig `mapstructure:"arxiv"`
	PubMed   SourceConfig `mapstructure:"pubmed"`
	CrossRef SourceConfig `mapstructure:"crossref"`
	OpenAlex SourceConfig `mapstructure:"openalex"`
}

// SourceConfig holds configuration for a single upstream API.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. PAPERS_SOURCES_PUBMED_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second. Ignored for arXiv,
	// which is held to one request every three seconds.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the limiter burst.
	BurstSize int `mapstructure:"burst_size"`
	// MaxResults is the page size used when a search sets no limit.
	MaxResults int `mapstructure:"max_results"`
}

// HealthConfig holds upstream probe settings.
type HealthConfig struct {
	// Timeout bounds each probe.
	Timeout time.Duration `mapstructure:"timeout"`
	// SlowThreshold is the latency above which a source is reported slow.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load reading the given config file instead of searching the
// default locations. An empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/paper-aggregator")
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Sources.Email = os.Getenv(EnvPrefix + "_SOURCES_EMAIL")
	cfg.Sources.PubMed.APIKey = os.Getenv(EnvPrefix + "_SOURCES_PUBMED_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_aggregator")

	// Cache defaults
	v.SetDefault("cache.search_max_entries", 500)
	v.SetDefault("cache.search_ttl", "15m")
	v.SetDefault("cache.paper_max_entries", 1000)
	v.SetDefault("cache.paper_ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "5m")

	// Search defaults
	v.SetDefault("search.default_sources", []string{})

	v.SetDefault("sources.user_agent", "")

	// Sources defaults - arXiv (one request every 3 seconds, process wide)
	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("sources.arxiv.timeout", "30s")
	v.SetDefault("sources.arxiv.max_results", 20)

	// Sources defaults - PubMed
	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.pubmed.rate_limit", 3.0) // NCBI allows 3 req/sec without an API key
	v.SetDefault("sources.pubmed.burst_size", 3)
	v.SetDefault("sources.pubmed.max_results", 20)

	// Sources defaults - CrossRef
	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org/v1/works")
	v.SetDefault("sources.crossref.timeout", "30s")
	v.SetDefault("sources.crossref.rate_limit", 10.0)
	v.SetDefault("sources.crossref.burst_size", 5)
	v.SetDefault("sources.crossref.max_results", 20)

	// Sources defaults - OpenAlex
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.timeout", "30s")
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.burst_size", 10)
	v.SetDefault("sources.openalex.max_results", 20)

	// Health defaults
	v.SetDefault("health.timeout", "5s")
	v.SetDefault("health.slow_threshold", "3s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate cache sizing
	if c.Cache.SearchMaxEntries <= 0 || c.Cache.PaperMaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive")
	}
	if c.Cache.SearchTTL <= 0 || c.Cache.PaperTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	for _, s := range c.Search.DefaultSources {
		if !domain.SourceType(s).IsValid() {
			return fmt.Errorf("unknown default source: %s", s)
		}
	}

	if !c.Sources.ArXiv.Enabled && !c.Sources.PubMed.Enabled &&
		!c.Sources.CrossRef.Enabled && !c.Sources.OpenAlex.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	for name, src := range map[string]SourceConfig{
		"pubmed":   c.Sources.PubMed,
		"crossref": c.Sources.CrossRef,
		"openalex": c.Sources.OpenAlex,
	} {
		if src.RateLimit < 0 {
			return fmt.Errorf("%s rate_limit must not be negative", name)
		}
	}

	if c.Health.Timeout <= 0 {
		return fmt.Errorf("health timeout must be positive")
	}

	return nil
}

// DefaultSources returns Search.DefaultSources as source types.
func (c *Config) DefaultSources() []domain.SourceType {
	out := make([]domain.SourceType, 0, len(c.Search.DefaultSources))
	for _, s := range c.Search.DefaultSources {
		out = append(out, domain.SourceType(s))
	}
	return out
}

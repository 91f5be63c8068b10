package config

import (
	"time"

	"github.com/helixir/paper-aggregator/internal/cache"
	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/health"
	"github.com/helixir/paper-aggregator/internal/observability"
	"github.com/helixir/paper-aggregator/internal/papersources"
	"github.com/helixir/paper-aggregator/internal/papersources/arxiv"
	"github.com/helixir/paper-aggregator/internal/papersources/crossref"
	"github.com/helixir/paper-aggregator/internal/papersources/openalex"
	"github.com/helixir/paper-aggregator/internal/papersources/pubmed"
)

// serviceName identifies the service to NCBI and in log entries.
const serviceName = "paper-aggregator"

// LoggerConfig returns the observability logger settings.
func (c *LoggingConfig) LoggerConfig() observability.LoggingConfig {
	return observability.LoggingConfig{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		AddSource:  c.AddSource,
		TimeFormat: c.TimeFormat,
		Service:    serviceName,
	}
}

// ArXivConfig returns the arXiv adapter configuration.
func (c *SourcesConfig) ArXivConfig() arxiv.Config {
	return arxiv.Config{
		BaseURL:    c.ArXiv.BaseURL,
		Timeout:    c.ArXiv.Timeout,
		MaxResults: c.ArXiv.MaxResults,
		UserAgent:  c.UserAgent,
		Enabled:    c.ArXiv.Enabled,
	}
}

// PubMedConfig returns the PubMed adapter configuration.
func (c *SourcesConfig) PubMedConfig() pubmed.Config {
	return pubmed.Config{
		BaseURL:    c.PubMed.BaseURL,
		APIKey:     c.PubMed.APIKey,
		Tool:       serviceName,
		Email:      c.Email,
		Timeout:    c.PubMed.Timeout,
		RateLimit:  c.PubMed.RateLimit,
		BurstSize:  c.PubMed.BurstSize,
		MaxResults: c.PubMed.MaxResults,
		Enabled:    c.PubMed.Enabled,
	}
}

// CrossRefConfig returns the CrossRef adapter configuration.
func (c *SourcesConfig) CrossRefConfig() crossref.Config {
	return crossref.Config{
		BaseURL:    c.CrossRef.BaseURL,
		Mailto:     c.Email,
		Timeout:    c.CrossRef.Timeout,
		RateLimit:  c.CrossRef.RateLimit,
		BurstSize:  c.CrossRef.BurstSize,
		MaxResults: c.CrossRef.MaxResults,
		Enabled:    c.CrossRef.Enabled,
	}
}

// OpenAlexConfig returns the OpenAlex adapter configuration.
func (c *SourcesConfig) OpenAlexConfig() openalex.Config {
	return openalex.Config{
		BaseURL:    c.OpenAlex.BaseURL,
		Email:      c.Email,
		Timeout:    c.OpenAlex.Timeout,
		RateLimit:  c.OpenAlex.RateLimit,
		BurstSize:  c.OpenAlex.BurstSize,
		MaxResults: c.OpenAlex.MaxResults,
		Enabled:    c.OpenAlex.Enabled,
	}
}

// NewRegistry builds a registry holding every configured adapter. Disabled
// adapters are registered too; the registry skips them in searches.
func (c *SourcesConfig) NewRegistry() *papersources.Registry {
	registry := papersources.NewRegistry()
	registry.Register(arxiv.New(c.ArXivConfig()))
	registry.Register(pubmed.New(c.PubMedConfig()))
	registry.Register(crossref.New(c.CrossRefConfig()))
	registry.Register(openalex.New(c.OpenAlexConfig()))
	return registry
}

// ProbeBaseURLs returns the API roots the health probes target.
func (c *SourcesConfig) ProbeBaseURLs() health.BaseURLs {
	return health.BaseURLs{
		ArXiv:    c.ArXiv.BaseURL,
		PubMed:   c.PubMed.BaseURL,
		CrossRef: c.CrossRef.BaseURL,
		OpenAlex: c.OpenAlex.BaseURL,
	}
}

// HealthCheckerConfig returns the checker configuration.
func (c *Config) HealthCheckerConfig() health.Config {
	return health.Config{
		Probes:        health.Probes(c.Sources.ProbeBaseURLs()),
		Timeout:       c.Health.Timeout,
		SlowThreshold: c.Health.SlowThreshold,
	}
}

// NewSearchCache builds the search result cache.
func (c *CacheConfig) NewSearchCache(now func() time.Time) *cache.Cache[*domain.SearchResult] {
	return cache.New[*domain.SearchResult](c.options(c.SearchMaxEntries, c.SearchTTL, now)...)
}

// NewPaperCache builds the paper detail cache.
func (c *CacheConfig) NewPaperCache(now func() time.Time) *cache.Cache[*domain.PaperDetail] {
	return cache.New[*domain.PaperDetail](c.options(c.PaperMaxEntries, c.PaperTTL, now)...)
}

func (c *CacheConfig) options(maxEntries int, ttl time.Duration, now func() time.Time) []cache.Option {
	opts := []cache.Option{
		cache.WithMaxEntries(maxEntries),
		cache.WithDefaultTTL(ttl),
	}
	if c.CleanupInterval > 0 {
		opts = append(opts, cache.WithCleanupInterval(c.CleanupInterval))
	}
	if now != nil {
		opts = append(opts, cache.WithClock(now))
	}
	return opts
}

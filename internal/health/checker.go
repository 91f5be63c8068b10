// Package health probes the upstream paper APIs and summarizes their state.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/observability"
	"github.com/helixir/paper-aggregator/internal/papersources"
	"github.com/helixir/paper-aggregator/internal/papersources/arxiv"
	"github.com/helixir/paper-aggregator/internal/papersources/crossref"
	"github.com/helixir/paper-aggregator/internal/papersources/openalex"
	"github.com/helixir/paper-aggregator/internal/papersources/pubmed"
)

const (
	// DefaultTimeout bounds each probe.
	DefaultTimeout = 5 * time.Second

	// DefaultSlowThreshold is the latency above which a reachable source is slow.
	DefaultSlowThreshold = 3 * time.Second

	userAgent = "ResearchArchive/1.0 (Health Check)"
)

// SourceStatus is the probe outcome for one source.
type SourceStatus string

const (
	StatusUp   SourceStatus = "up"
	StatusSlow SourceStatus = "slow"
	StatusDown SourceStatus = "down"
)

// Status is the overall state of the upstreams.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// SourceHealth is the result of probing one source.
type SourceHealth struct {
	Status    SourceStatus `json:"status"`
	LatencyMs int64        `json:"latencyMs"`
	LastCheck time.Time    `json:"lastCheck"`
	Error     string       `json:"error,omitempty"`
}

// Report summarizes one round of probes.
type Report struct {
	Status    Status                             `json:"status"`
	Sources   map[domain.SourceType]SourceHealth `json:"sources"`
	Timestamp time.Time                          `json:"timestamp"`
}

// Probe is a cheap request that proves a source answers.
type Probe struct {
	Source domain.SourceType
	URL    string
}

// BaseURLs holds the API roots the probes are built from. Empty fields use the
// adapter defaults.
type BaseURLs struct {
	ArXiv    string
	PubMed   string
	CrossRef string
	OpenAlex string
}

// Probes returns one minimal search request per source.
func Probes(bases BaseURLs) []Probe {
	return []Probe{
		{Source: domain.SourceTypeArXiv, URL: orDefault(bases.ArXiv, arxiv.DefaultBaseURL) + "/query?search_query=test&max_results=1"},
		{Source: domain.SourceTypePubMed, URL: orDefault(bases.PubMed, pubmed.DefaultBaseURL) + "/esearch.fcgi?db=pubmed&term=test&retmax=1&retmode=json"},
		{Source: domain.SourceTypeCrossRef, URL: orDefault(bases.CrossRef, crossref.DefaultBaseURL) + "?query=test&rows=1"},
		{Source: domain.SourceTypeOpenAlex, URL: orDefault(bases.OpenAlex, openalex.DefaultBaseURL) + "/works?search=test&per_page=1"},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Config configures a Checker.
type Config struct {
	Probes        []Probe
	Timeout       time.Duration
	SlowThreshold time.Duration
	HTTPClient    *http.Client
	Now           func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Probes == nil {
		c.Probes = Probes(BaseURLs{})
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = DefaultSlowThreshold
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Checker probes every configured source in parallel.
type Checker struct {
	cfg     Config
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewChecker creates a Checker. metrics may be nil.
func NewChecker(cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Checker {
	cfg.applyDefaults()
	return &Checker{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// Check runs all probes and waits for them. It never fails: an unreachable
// source is reported as down.
func (c *Checker) Check(ctx context.Context) Report {
	results := make([]SourceHealth, len(c.cfg.Probes))

	var wg sync.WaitGroup
	for i, probe := range c.cfg.Probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = c.probe(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	report := Report{
		Sources:   make(map[domain.SourceType]SourceHealth, len(results)),
		Timestamp: c.cfg.Now().UTC(),
	}
	for i, probe := range c.cfg.Probes {
		report.Sources[probe.Source] = results[i]
		c.metrics.RecordSourceHealth(string(probe.Source), gaugeValue(results[i].Status))
	}
	report.Status = overall(results)

	return report
}

func (c *Checker) probe(ctx context.Context, probe Probe) SourceHealth {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := c.cfg.Now()
	err := c.get(ctx, probe.URL)
	end := c.cfg.Now()
	latency := end.Sub(start)

	result := SourceHealth{
		LatencyMs: latency.Milliseconds(),
		LastCheck: end.UTC(),
	}

	switch {
	case err != nil:
		result.Status = StatusDown
		result.Error = err.Error()
		c.logger.Warn().Err(err).Str("source", string(probe.Source)).Msg("health probe failed")
	case latency > c.cfg.SlowThreshold:
		result.Status = StatusSlow
	default:
		result.Status = StatusUp
	}
	return result
}

func (c *Checker) get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, papersources.MaxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// overall is healthy when every source is up, degraded when at least one
// answered, and unhealthy otherwise.
func overall(results []SourceHealth) Status {
	if len(results) == 0 {
		return StatusUnhealthy
	}

	up, reachable := 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusUp:
			up++
			reachable++
		case StatusSlow:
			reachable++
		}
	}

	switch {
	case up == len(results):
		return StatusHealthy
	case reachable > 0:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

func gaugeValue(s SourceStatus) float64 {
	switch s {
	case StatusUp:
		return 1
	case StatusSlow:
		return 0.5
	default:
		return 0
	}
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper aggregator.
// Metrics are organized by subsystem: http, searches, sources, papers, cache,
// citations and health. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTPRequestsTotal counts HTTP requests, labeled by method, route and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// SearchesStarted counts unified searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts unified searches that produced a result.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts unified searches in which every queried source failed.
	SearchesFailed prometheus.Counter

	// SearchDuration observes unified search latency in seconds.
	SearchDuration prometheus.Histogram

	// SourceRequestsTotal counts per-source searches, labeled by source and outcome.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestDuration observes per-source search latency in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// PapersReturned observes the number of papers in each search page.
	PapersReturned prometheus.Histogram

	// DedupMerges counts papers collapsed into an earlier paper with the same DOI.
	DedupMerges prometheus.Counter

	// CacheHits counts cache hits, labeled by cache name.
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by cache name.
	CacheMisses *prometheus.CounterVec

	// CitationsFormatted counts rendered citations, labeled by format.
	CitationsFormatted *prometheus.CounterVec

	// SourceUp reports the last probe result per source: 1 up, 0.5 slow, 0 down.
	SourceUp *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered with the default
// Prometheus registry. The namespace prefixes every metric name.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		// Searches
		SearchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of unified searches started",
		}),
		SearchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of unified searches completed",
		}),
		SearchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of unified searches that failed",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of unified searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		// Sources
		SourceRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of searches sent to paper sources",
		}, []string{"source", "outcome"}),
		SourceRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of paper source searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
		}, []string{"source"}),

		// Papers
		PapersReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_returned",
			Help:      "Number of papers returned per search page",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		DedupMerges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_merges_total",
			Help:      "Total number of papers merged by DOI deduplication",
		}),

		// Cache
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}, []string{"cache"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}, []string{"cache"}),

		// Citations
		CitationsFormatted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_formatted_total",
			Help:      "Total number of citations formatted",
		}, []string{"format"}),

		// Health
		SourceUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_up",
			Help:      "Last health probe result per source (1 up, 0.5 slow, 0 down)",
		}, []string{"source"}),
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordSearchStarted records that a unified search has started.
func (m *Metrics) RecordSearchStarted() {
	if m == nil {
		return
	}
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a finished search and the size of its page.
func (m *Metrics) RecordSearchCompleted(paperCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.PapersReturned.Observe(float64(paperCount))
}

// RecordSearchFailed records a search that did not produce a result.
func (m *Metrics) RecordSearchFailed() {
	if m == nil {
		return
	}
	m.SearchesFailed.Inc()
}

// RecordSourceRequest records one source search. Outcome is "success" or "error".
func (m *Metrics) RecordSourceRequest(source, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, outcome).Inc()
	m.SourceRequestDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordDedupMerges records papers removed by deduplication.
func (m *Metrics) RecordDedupMerges(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.DedupMerges.Add(float64(count))
}

// RecordCacheLookup records a hit or miss on the named cache.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCitation records a formatted citation.
func (m *Metrics) RecordCitation(format string) {
	if m == nil {
		return
	}
	m.CitationsFormatted.WithLabelValues(format).Inc()
}

// RecordSourceHealth records the latest probe value for a source.
func (m *Metrics) RecordSourceHealth(source string, value float64) {
	if m == nil {
		return
	}
	m.SourceUp.WithLabelValues(source).Set(value)
}

package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/observability"
)

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func statusServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func sleepServer(t *testing.T, d time.Duration) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProbes(t *testing.T) {
	probes := Probes(BaseURLs{CrossRef: "http://localhost:9999/works"})
	require.Len(t, probes, 4)

	urls := make(map[domain.SourceType]string, len(probes))
	for _, p := range probes {
		urls[p.Source] = p.URL
	}
	assert.Equal(t, "https://export.arxiv.org/api/query?search_query=test&max_results=1", urls[domain.SourceTypeArXiv])
	assert.Equal(t, "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi?db=pubmed&term=test&retmax=1&retmode=json", urls[domain.SourceTypePubMed])
	assert.Equal(t, "http://localhost:9999/works?query=test&rows=1", urls[domain.SourceTypeCrossRef])
	assert.Equal(t, "https://api.openalex.org/works?search=test&per_page=1", urls[domain.SourceTypeOpenAlex])
}

func TestChecker_Check(t *testing.T) {
	t.Run("all up is healthy", func(t *testing.T) {
		metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
		checker := NewChecker(Config{Probes: []Probe{
			{Source: domain.SourceTypeArXiv, URL: okServer(t).URL},
			{Source: domain.SourceTypeOpenAlex, URL: okServer(t).URL},
		}}, metrics, zerolog.Nop())

		report := checker.Check(context.Background())

		assert.Equal(t, StatusHealthy, report.Status)
		require.Len(t, report.Sources, 2)
		assert.Equal(t, StatusUp, report.Sources[domain.SourceTypeArXiv].Status)
		assert.False(t, report.Sources[domain.SourceTypeArXiv].LastCheck.IsZero())
		assert.False(t, report.Timestamp.IsZero())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceUp.WithLabelValues("arxiv")))
	})

	t.Run("one failing source degrades", func(t *testing.T) {
		metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
		checker := NewChecker(Config{Probes: []Probe{
			{Source: domain.SourceTypeArXiv, URL: okServer(t).URL},
			{Source: domain.SourceTypePubMed, URL: statusServer(t, http.StatusInternalServerError).URL},
		}}, metrics, zerolog.Nop())

		report := checker.Check(context.Background())

		assert.Equal(t, StatusDegraded, report.Status)
		pubmed := report.Sources[domain.SourceTypePubMed]
		assert.Equal(t, StatusDown, pubmed.Status)
		assert.Contains(t, pubmed.Error, "500")
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SourceUp.WithLabelValues("pubmed")))
	})

	t.Run("slow source", func(t *testing.T) {
		checker := NewChecker(Config{
			Probes:        []Probe{{Source: domain.SourceTypeCrossRef, URL: sleepServer(t, 50*time.Millisecond).URL}},
			SlowThreshold: 10 * time.Millisecond,
		}, nil, zerolog.Nop())

		report := checker.Check(context.Background())

		assert.Equal(t, StatusSlow, report.Sources[domain.SourceTypeCrossRef].Status)
		assert.GreaterOrEqual(t, report.Sources[domain.SourceTypeCrossRef].LatencyMs, int64(50))
		assert.Equal(t, StatusDegraded, report.Status)
	})

	t.Run("timeout marks the source down", func(t *testing.T) {
		checker := NewChecker(Config{
			Probes:  []Probe{{Source: domain.SourceTypeOpenAlex, URL: sleepServer(t, time.Second).URL}},
			Timeout: 20 * time.Millisecond,
		}, nil, zerolog.Nop())

		report := checker.Check(context.Background())

		assert.Equal(t, StatusDown, report.Sources[domain.SourceTypeOpenAlex].Status)
		assert.Equal(t, StatusUnhealthy, report.Status)
	})

	t.Run("unreachable source", func(t *testing.T) {
		server := okServer(t)
		url := server.URL
		server.Close()

		checker := NewChecker(Config{Probes: []Probe{{Source: domain.SourceTypeArXiv, URL: url}}}, nil, zerolog.Nop())

		report := checker.Check(context.Background())
		assert.Equal(t, StatusUnhealthy, report.Status)
		assert.NotEmpty(t, report.Sources[domain.SourceTypeArXiv].Error)
	})
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []SourceStatus
		want     Status
	}{
		{"all up", []SourceStatus{StatusUp, StatusUp}, StatusHealthy},
		{"one slow", []SourceStatus{StatusUp, StatusSlow}, StatusDegraded},
		{"all slow", []SourceStatus{StatusSlow, StatusSlow}, StatusDegraded},
		{"one down", []SourceStatus{StatusDown, StatusUp}, StatusDegraded},
		{"all down", []SourceStatus{StatusDown, StatusDown}, StatusUnhealthy},
		{"no probes", nil, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]SourceHealth, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i] = SourceHealth{Status: s}
			}
			assert.Equal(t, tt.want, overall(results))
		})
	}
}

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/health"
	"github.com/helixir/paper-aggregator/internal/observability"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockSearcher implements Searcher for HTTP handler tests.
type mockSearcher struct {
	searchFn   func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
	quickFn    func(ctx context.Context, query string, limit int) ([]*domain.Paper, error)
	featuredFn func(ctx context.Context) []*domain.Paper
	paperFn    func(ctx context.Context, id string) (*domain.PaperDetail, error)
	citeFn     func(ctx context.Context, paperID string, format domain.CitationFormat) (*domain.Citation, error)

	lastSearch *domain.SearchRequest
	lastID     string
}

func (m *mockSearcher) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	m.lastSearch = &req
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return &domain.SearchResult{Papers: []*domain.Paper{}, Page: 1}, nil
}

func (m *mockSearcher) QuickSearch(ctx context.Context, query string, limit int) ([]*domain.Paper, error) {
	if m.quickFn != nil {
		return m.quickFn(ctx, query, limit)
	}
	return []*domain.Paper{}, nil
}

func (m *mockSearcher) FeaturedPapers(ctx context.Context) []*domain.Paper {
	if m.featuredFn != nil {
		return m.featuredFn(ctx)
	}
	return []*domain.Paper{}
}

func (m *mockSearcher) Paper(ctx context.Context, id string) (*domain.PaperDetail, error) {
	m.lastID = id
	if m.paperFn != nil {
		return m.paperFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("paper", id)
}

func (m *mockSearcher) Cite(ctx context.Context, paperID string, format domain.CitationFormat) (*domain.Citation, error) {
	m.lastID = paperID
	if m.citeFn != nil {
		return m.citeFn(ctx, paperID, format)
	}
	return nil, domain.NewNotFoundError("paper", paperID)
}

// mockChecker implements HealthChecker.
type mockChecker struct {
	report health.Report
}

func (m *mockChecker) Check(_ context.Context) health.Report {
	return m.report
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestHTTPServer creates a Server configured for testing with mocked dependencies.
func newTestHTTPServer(searcher Searcher, checker HealthChecker) (*Server, *observability.Metrics) {
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
	return NewServer(Config{Address: "127.0.0.1:0"}, searcher, checker, metrics, zerolog.Nop()), metrics
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, r)
	return rr
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(target), "failed to decode response body")
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func samplePaper(id string) *domain.Paper {
	return &domain.Paper{
		ID:      id,
		Title:   "Attention Is All You Need",
		Authors: []domain.Author{{Name: "Ashish Vaswani"}},
		Date:    "2017-06-12",
		Source:  domain.SourceTypeArXiv,
	}
}

// ---------------------------------------------------------------------------
// Tests: search
// ---------------------------------------------------------------------------

func TestSearchGet_ParsesQueryParameters(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
			return &domain.SearchResult{
				Papers: []*domain.Paper{samplePaper("arxiv:1706.03762")},
				Total:  1,
				Page:   req.Page,
				Pages:  1,
			}, nil
		},
	}
	s, _ := newTestHTTPServer(searcher, &mockChecker{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/search?q=transformers&page=2&limit=10&sort=citations&access=open&sources=arxiv,%20openalex&citationMin=5&from=2020-01-01&discipline=physics", nil)
	rr := serveHTTP(s, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	got := searcher.lastSearch
	require.NotNil(t, got)
	assert.Equal(t, "transformers", got.Query)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, domain.SortCitations, got.Sort)
	assert.Equal(t, domain.AccessFilterOpen, got.AccessType)
	assert.Equal(t, []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeOpenAlex}, got.Sources)
	assert.Equal(t, 5, got.CitationMin)
	assert.Equal(t, "physics", got.Discipline)
	require.NotNil(t, got.DateRange)
	assert.Equal(t, "2020-01-01", got.DateRange.From)
	assert.Empty(t, got.DateRange.To)

	var result domain.SearchResult
	decodeJSON(t, rr, &result)
	assert.Equal(t, 2, result.Page)
	require.Len(t, result.Papers, 1)
	assert.Equal(t, "arxiv:1706.03762", result.Papers[0].ID)
}

func TestSearchGet_MissingQuery(t *testing.T) {
	searcher := &mockSearcher{}
	s, _ := newTestHTTPServer(searcher, &mockChecker{})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/search?page=1", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body errorResponse
	decodeJSON(t, rr, &body)
	assert.Equal(t, "Validation Error", body.Error)
	assert.Contains(t, body.Message, `"q"`)
	assert.Nil(t, searcher.lastSearch)
}

func TestSearchGet_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"non-numeric page", "q=x&page=two", "page"},
		{"non-numeric limit", "q=x&limit=ten", "limit"},
		{"limit above maximum", "q=x&limit=101", "limit"},
		{"unknown sort", "q=x&sort=popularity", "sort"},
		{"unknown access", "q=x&access=closed", "accessType"},
		{"unknown source", "q=x&sources=arxiv,scopus", "sources[1]"},
		{"negative citation floor", "q=x&citationMin=-1", "citationMin"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			searcher := &mockSearcher{}
			s, _ := newTestHTTPServer(searcher, &mockChecker{})

			rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/search?"+tc.query, nil))

			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			var body errorResponse
			decodeJSON(t, rr, &body)
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tc.field, body.Details[0].Field)
			assert.Nil(t, searcher.lastSearch)
		})
	}
}

func TestSearchPost(t *testing.T) {
	t.Run("decodes the JSON body", func(t *testing.T) {
		searcher := &mockSearcher{}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		req := httptest.NewRequest(http.MethodPost, "/api/search", jsonBody(t, map[string]interface{}{
			"query":       "  crispr  ",
			"sources":     []string{"pubmed"},
			"limit":       5,
			"sort":        "date",
			"dateRange":   map[string]string{"from": "2021-01-01", "to": "2021-12-31"},
			"citationMin": 3,
		}))
		rr := serveHTTP(s, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		got := searcher.lastSearch
		require.NotNil(t, got)
		assert.Equal(t, "crispr", got.Query)
		assert.Equal(t, []domain.SourceType{domain.SourceTypePubMed}, got.Sources)
		assert.Equal(t, 5, got.Limit)
		assert.Equal(t, domain.SortDate, got.Sort)
		assert.Equal(t, &domain.DateRange{From: "2021-01-01", To: "2021-12-31"}, got.DateRange)
		assert.Equal(t, 3, got.CitationMin)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("blank query fails validation", func(t *testing.T) {
		searcher := &mockSearcher{}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/search", jsonBody(t, map[string]string{"query": "   "})))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var body errorResponse
		decodeJSON(t, rr, &body)
		assert.Equal(t, "Validation Error", body.Error)
		require.Len(t, body.Details, 1)
		assert.Equal(t, fieldProblem{Field: "query", Message: "is required"}, body.Details[0])
		assert.Nil(t, searcher.lastSearch)
	})

	t.Run("service validation error is a 400", func(t *testing.T) {
		searcher := &mockSearcher{
			searchFn: func(context.Context, domain.SearchRequest) (*domain.SearchResult, error) {
				return nil, domain.NewValidationError("dateRange.from", "must be a date")
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/search", jsonBody(t, map[string]interface{}{
			"query":     "x",
			"dateRange": map[string]string{"from": "yesterday"},
		})))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var body errorResponse
		decodeJSON(t, rr, &body)
		assert.Equal(t, []fieldProblem{{Field: "dateRange.from", Message: "must be a date"}}, body.Details)
	})
}

func TestSearch_PartialFailuresStillSucceed(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(context.Context, domain.SearchRequest) (*domain.SearchResult, error) {
			return &domain.SearchResult{
				Papers: []*domain.Paper{},
				Page:   1,
				Errors: []string{"arxiv: timeout", "pubmed: 503"},
			}, nil
		},
	}
	s, _ := newTestHTTPServer(searcher, &mockChecker{})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var result domain.SearchResult
	decodeJSON(t, rr, &result)
	assert.Equal(t, []string{"arxiv: timeout", "pubmed: 503"}, result.Errors)
	assert.NotNil(t, result.Papers)
}

func TestQuickSearch(t *testing.T) {
	t.Run("passes query and limit", func(t *testing.T) {
		var gotQuery string
		var gotLimit int
		searcher := &mockSearcher{
			quickFn: func(_ context.Context, query string, limit int) ([]*domain.Paper, error) {
				gotQuery, gotLimit = query, limit
				return []*domain.Paper{samplePaper("openalex:W1")}, nil
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/search/quick?q=attention&limit=3", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "attention", gotQuery)
		assert.Equal(t, 3, gotLimit)
		var body papersResponse
		decodeJSON(t, rr, &body)
		require.Len(t, body.Papers, 1)
	})

	t.Run("empty query is rejected by the service", func(t *testing.T) {
		searcher := &mockSearcher{
			quickFn: func(context.Context, string, int) ([]*domain.Paper, error) {
				return nil, domain.NewValidationError("q", "must not be empty")
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/search/quick", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/search/quick?q=x&limit=many", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestFeaturedPapers(t *testing.T) {
	searcher := &mockSearcher{
		featuredFn: func(context.Context) []*domain.Paper {
			return []*domain.Paper{samplePaper("openalex:W1"), samplePaper("openalex:W2")}
		},
	}
	s, _ := newTestHTTPServer(searcher, &mockChecker{})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/featured", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body papersResponse
	decodeJSON(t, rr, &body)
	require.Len(t, body.Papers, 2)
	assert.Empty(t, searcher.lastID, "featured must not be routed as a paper id")
}

// ---------------------------------------------------------------------------
// Tests: papers
// ---------------------------------------------------------------------------

func TestGetPaper(t *testing.T) {
	t.Run("DOI with slashes", func(t *testing.T) {
		searcher := &mockSearcher{
			paperFn: func(_ context.Context, id string) (*domain.PaperDetail, error) {
				return &domain.PaperDetail{
					Paper:         *samplePaper(id),
					RelatedPapers: []*domain.Paper{},
					CitedBy:       []*domain.Paper{},
					References:    []*domain.Paper{},
				}, nil
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/crossref:10.1038/nature14539", nil))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "crossref:10.1038/nature14539", searcher.lastID)
		var detail domain.PaperDetail
		decodeJSON(t, rr, &detail)
		assert.Equal(t, "crossref:10.1038/nature14539", detail.ID)
		assert.NotNil(t, detail.RelatedPapers)
	})

	t.Run("percent-encoded id", func(t *testing.T) {
		searcher := &mockSearcher{}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/doi%3A10.1038%2Fnature14539", nil))

		assert.Equal(t, "doi:10.1038/nature14539", searcher.lastID)
	})

	t.Run("not found", func(t *testing.T) {
		s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/arxiv:0000.00000", nil))

		require.Equal(t, http.StatusNotFound, rr.Code)
		var body errorResponse
		decodeJSON(t, rr, &body)
		assert.Equal(t, "Not Found", body.Error)
		assert.Equal(t, "paper not found", body.Message)
	})

	t.Run("unknown source", func(t *testing.T) {
		searcher := &mockSearcher{
			paperFn: func(context.Context, string) (*domain.PaperDetail, error) {
				return nil, fmt.Errorf("%w: scopus", domain.ErrUnknownSource)
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/scopus:123", nil))

		require.Equal(t, http.StatusNotFound, rr.Code)
		var body errorResponse
		decodeJSON(t, rr, &body)
		assert.Equal(t, "unknown paper source", body.Message)
	})

	t.Run("upstream failure", func(t *testing.T) {
		searcher := &mockSearcher{
			paperFn: func(context.Context, string) (*domain.PaperDetail, error) {
				return nil, fmt.Errorf("fetching paper: %w", domain.NewExternalAPIError("crossref", 400, "bad request", nil))
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/crossref:10.1/x", nil))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("empty id", func(t *testing.T) {
		searcher := &mockSearcher{}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, searcher.lastID)
	})
}

// ---------------------------------------------------------------------------
// Tests: cite
// ---------------------------------------------------------------------------

func TestCite(t *testing.T) {
	t.Run("formats a citation", func(t *testing.T) {
		searcher := &mockSearcher{
			citeFn: func(_ context.Context, _ string, format domain.CitationFormat) (*domain.Citation, error) {
				return &domain.Citation{Citation: "Vaswani, A. (2017). Attention Is All You Need.", Format: format}, nil
			},
		}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/cite",
			jsonBody(t, map[string]string{"paperId": "arxiv:1706.03762", "format": "apa"})))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "arxiv:1706.03762", searcher.lastID)
		var got domain.Citation
		decodeJSON(t, rr, &got)
		assert.Equal(t, domain.CitationFormatAPA, got.Format)
		assert.Contains(t, got.Citation, "Vaswani")
	})

	t.Run("unsupported format", func(t *testing.T) {
		searcher := &mockSearcher{}
		s, _ := newTestHTTPServer(searcher, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/cite",
			jsonBody(t, map[string]string{"paperId": "arxiv:1706.03762", "format": "chicago"})))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var body errorResponse
		decodeJSON(t, rr, &body)
		require.Len(t, body.Details, 1)
		assert.Equal(t, "format", body.Details[0].Field)
		assert.Equal(t, "must be one of bibtex apa mla", body.Details[0].Message)
		assert.Empty(t, searcher.lastID)
	})

	t.Run("missing paper id", func(t *testing.T) {
		s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/cite",
			jsonBody(t, map[string]string{"format": "bibtex"})))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		var body errorResponse
		decodeJSON(t, rr, &body)
		require.Len(t, body.Details, 1)
		assert.Equal(t, "paperId", body.Details[0].Field)
	})

	t.Run("paper not found", func(t *testing.T) {
		s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

		rr := serveHTTP(s, httptest.NewRequest(http.MethodPost, "/api/cite",
			jsonBody(t, map[string]string{"paperId": "pubmed:1", "format": "mla"})))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

// ---------------------------------------------------------------------------
// Tests: health
// ---------------------------------------------------------------------------

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		status   health.Status
		expected int
	}{
		{"healthy", health.StatusHealthy, http.StatusOK},
		{"degraded", health.StatusDegraded, http.StatusOK},
		{"unhealthy", health.StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := &mockChecker{report: health.Report{
				Status: tc.status,
				Sources: map[domain.SourceType]health.SourceHealth{
					domain.SourceTypeArXiv: {Status: health.StatusUp, LatencyMs: 120, LastCheck: time.Now()},
				},
				Timestamp: time.Now(),
			}}
			s, _ := newTestHTTPServer(&mockSearcher{}, checker)

			rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, tc.expected, rr.Code)
			var body map[string]interface{}
			decodeJSON(t, rr, &body)
			assert.Equal(t, string(tc.status), body["status"])
			assert.Contains(t, body["sources"], "arxiv")
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

	rr := serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	var body errorResponse
	decodeJSON(t, rr, &body)
	assert.Equal(t, "Not Found", body.Error)
}

// ---------------------------------------------------------------------------
// Tests: helper functions
// ---------------------------------------------------------------------------

func TestWriteDomainError_Mappings(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedLabel  string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"not found wrapped", domain.NewNotFoundError("paper", "123"), http.StatusNotFound, "Not Found"},
		{"unknown source", fmt.Errorf("%w: x", domain.ErrUnknownSource), http.StatusNotFound, "Not Found"},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest, "Validation Error"},
		{"validation", domain.NewValidationError("sort", "bad"), http.StatusBadRequest, "Validation Error"},
		{"unsupported format", fmt.Errorf("%w: %w", domain.NewValidationError("format", "bad"), domain.ErrUnsupportedFormat), http.StatusBadRequest, "Validation Error"},
		{"rate limited", domain.NewRateLimitError("pubmed", time.Second), http.StatusTooManyRequests, "Rate Limited"},
		{"upstream 429", domain.NewExternalAPIError("crossref", 429, "slow down", nil), http.StatusTooManyRequests, "Rate Limited"},
		{"service unavailable", domain.NewExternalAPIError("openalex", 503, "down", nil), http.StatusServiceUnavailable, "Service Unavailable"},
		{"upstream client error", domain.NewExternalAPIError("arxiv", 400, "bad", nil), http.StatusBadGateway, "Upstream Error"},
		{"internal error", fmt.Errorf("boom"), http.StatusInternalServerError, "Server Error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			require.Equal(t, tc.expectedStatus, rr.Code)

			var body errorResponse
			decodeJSON(t, rr, &body)
			assert.Equal(t, tc.expectedLabel, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRequestMetrics(t *testing.T) {
	s, metrics := newTestHTTPServer(&mockSearcher{}, &mockChecker{})

	serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/arxiv:1", nil))
	serveHTTP(s, httptest.NewRequest(http.MethodGet, "/api/papers/arxiv:2", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/papers/*", "404")))
}

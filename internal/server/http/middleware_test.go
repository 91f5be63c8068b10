package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-aggregator/internal/observability"
)

func TestCorrelationIDMiddleware_UsesExistingHeader(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-correlation-123", observability.RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(correlationIDHeader, "test-correlation-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "test-correlation-123", rr.Header().Get(correlationIDHeader))
}

func TestCorrelationIDMiddleware_FallsBackToRequestID(t *testing.T) {
	var got string
	handler := middleware.RequestID(correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = observability.RequestIDFromContext(r.Context())
		assert.Equal(t, middleware.GetReqID(r.Context()), got)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	assert.NotEmpty(t, got)
	assert.Equal(t, got, rr.Header().Get(correlationIDHeader))
}

func TestCorrelationIDMiddleware_GeneratesIfMissing(t *testing.T) {
	var got string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = observability.RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	_, err := uuid.Parse(got)
	require.NoError(t, err, "expected a generated UUID, got %q", got)
	assert.Equal(t, got, rr.Header().Get(correlationIDHeader))
}

func TestRequestLogMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})
	s.logger = zerolog.New(&buf)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(correlationIDHeader, "cid-1")
	serveHTTP(s, req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "request served", entry["message"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/healthz", entry["route"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, "cid-1", entry["request_id"])
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestHTTPServer(&mockSearcher{}, &mockChecker{})
	s.logger = zerolog.New(&buf)

	handler := correlationIDMiddleware(s.requestLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]interface{}{"bad": make(chan int)})
	})))

	req := httptest.NewRequest(http.MethodGet, "/papers", nil)
	req.Header.Set(correlationIDHeader, "cid-2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, buf.String())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "failed to write response body", entry["message"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "cid-2", entry["request_id"])
	assert.Contains(t, entry, "error")
}

func TestJSONContentTypeMiddleware(t *testing.T) {
	handler := jsonContentTypeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

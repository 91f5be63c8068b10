package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/paper-aggregator/internal/retry"
)

// DefaultUserAgent identifies the service to upstream APIs.
const DefaultUserAgent = "ResearchArchive/1.0 (Academic Search Engine)"

// MaxResponseSize caps how much of an upstream response body is read.
const MaxResponseSize = 10 << 20

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Limiter, when set, replaces the limiter built from RateLimit and
	// BurstSize. Clients sharing one Limiter share one request budget.
	Limiter *RateLimiter

	// MaxRetries is the number of extra attempts on 429, 5xx and network
	// errors. Zero disables retries.
	MaxRetries int

	// RetryDelay is the base delay between retries; it doubles per attempt.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "X-API-Key", "Authorization").
	APIKeyHeader string
}

// HTTPClient wraps http.Client with rate limiting and optional retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RateLimit, cfg.BurstSize)
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
		config:      cfg,
	}
}

// Timeout returns the per-request timeout.
func (c *HTTPClient) Timeout() time.Duration {
	return c.config.Timeout
}

// Do executes an HTTP request after waiting for the rate limiter. It sets
// the User-Agent and optional API key headers. When MaxRetries is positive,
// 429 and 5xx responses and network errors are retried with exponential
// backoff, honoring Retry-After.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var (
		resp       *http.Response
		retryAfter time.Duration
		attempt    int
	)

	policy := retry.Policy{
		MaxAttempts: c.config.MaxRetries + 1,
		BaseDelay:   c.config.RetryDelay,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if retryAfter > 0 {
				d = retryAfter
			}
			return waitForRetry(ctx, d)
		},
	}

	err := retry.Do(req.Context(), policy, func(ctx context.Context) error {
		retryAfter = 0
		if attempt > 0 {
			if err := resetRequestBody(req); err != nil {
				return retry.Permanent(fmt.Errorf("cannot retry request: %w", err))
			}
		}
		attempt++

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter wait: %w", err))
		}

		r, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return retry.Permanent(err)
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if shouldRetry(r.StatusCode) && attempt <= c.config.MaxRetries {
			retryAfter = c.getRetryDelay(r)
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return fmt.Errorf("server returned status %d", r.StatusCode)
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// shouldRetry returns true if the status code indicates we should retry.
func shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// getRetryDelay reads Retry-After as seconds or an HTTP date. It returns 0
// when the header is absent or unusable so the backoff schedule applies.
func (c *HTTPClient) getRetryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return 0
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}

// ReadErrorBody reads a bounded prefix of a failed response for error messages.
func ReadErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return string(body)
}

package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/logger"
)

// Upstream endpoints occasionally return multi-megabyte junk when they
// are degraded; cap reads so one bad response cannot exhaust memory.
const maxResponseBytes = 8 << 20

// Client is an HTTP fetch client with per-attempt timeout, bounded
// retry on transport errors, and an optional per-client rate limit
// ⭐ SSOT: 所有对行情源的 HTTP 请求都通过这个客户端
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	timeout    time.Duration
	retry      RetryConfig
	limiter    *rate.Limiter
	headers    map[string]string
}

// New creates a fetch client from config
func New(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		// No client-level timeout: the per-attempt deadline is enforced
		// through the request context so a retry gets a fresh budget.
		httpClient: &http.Client{},
		logger:     log,
		timeout:    cfg.Collector.FetchTimeout,
		retry: RetryConfig{
			MaxAttempts: cfg.Collector.MaxRetries,
			Backoff:     cfg.Collector.RetryBackoff,
		},
		headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Accept":     "*/*",
		},
	}
}

// WithRateLimit sets a client-local politeness limit (requests/second)
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithHeader adds a default header sent on every request
func (c *Client) WithHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

// WithoutRetry disables retry for this client (single attempt)
func (c *Client) WithoutRetry() *Client {
	c.retry.MaxAttempts = 1
	return c
}

// Get fetches url with retry and returns the raw body bytes.
// Errors are classified into ErrTimeout / ErrNetwork / *HTTPError;
// only the first two are retried.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := Retry(ctx, c.retry, func(ctx context.Context) error {
		var attemptErr error
		body, attemptErr = c.getOnce(ctx, url)
		return attemptErr
	})
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Error("HTTP fetch failed")
		return nil, err
	}

	return body, nil
}

// getOnce performs a single attempt under the per-attempt deadline
func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyErr(err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, classifyErr(err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &HTTPError{Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyErr(err)
	}

	c.logger.WithFields(map[string]interface{}{
		"url":      url,
		"bytes":    len(body),
		"duration": time.Since(start),
	}).Debug("HTTP fetch completed")

	return body, nil
}

package helix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"streamscout/internal/metrics"
	"streamscout/pkg/auth"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/logger"
	"streamscout/pkg/ratelimit"
	"streamscout/pkg/retry"
)

const (
	// BaseURL is the production Helix API root
	BaseURL = "https://api.twitch.tv/helix"

	// DefaultResetHint is used when a 429 carries no usable Ratelimit-Reset header
	DefaultResetHint = 60 * time.Second

	resetHeader = "Ratelimit-Reset"
)

// TokenSource supplies bearer tokens. *auth.TokenStore implements it.
type TokenSource interface {
	EnsureValid(ctx context.Context) (string, error)
	Authenticate(ctx context.Context) (*auth.TokenInfo, error)
	Invalidate()
}

// Executor issues one logical Helix call and returns the 2xx body.
type Executor interface {
	Execute(ctx context.Context, method, path string, query url.Values) ([]byte, error)
}

// Client executes Helix requests. Every HTTP round trip takes a permit from
// the limiter, carries a fresh bearer token and the Client-Id header, and is
// classified by status:
//
//	2xx  body returned
//	401  token invalidated, one re-authentication, call repeated once
//	429  backoff min(Ratelimit-Reset, 2^attempt + jitter), then QuotaExceeded
//	else ApiError
//
// Transport failures are retried like 429 and surface as an ApiError wrapping
// the last failure.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	tokens     TokenSource
	limiter    ratelimit.Limiter
	retry      *retry.Config
	clock      clockwork.Clock
	logger     logger.Logger

	quota        int
	period       time.Duration
	defaultReset time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = strings.TrimRight(u, "/") }
}

// WithLimiter replaces the default 800/minute sliding window.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithRateLimit sizes the default sliding window.
func WithRateLimit(requests int, period time.Duration) Option {
	return func(cl *Client) { cl.quota, cl.period = requests, period }
}

// WithRetry replaces the retry policy. Its Clock is forced to the client's.
func WithRetry(cfg *retry.Config) Option {
	return func(cl *Client) { cl.retry = cfg }
}

// WithDefaultReset sets the wait assumed when a 429 has no usable
// Ratelimit-Reset header.
func WithDefaultReset(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.defaultReset = d
		}
	}
}

// WithClock drives backoff waits from clock.
func WithClock(clock clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a Helix client for the registered app clientID.
func NewClient(clientID string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      BaseURL,
		clientID:     clientID,
		tokens:       tokens,
		clock:        clockwork.NewRealClock(),
		logger:       logger.NewNopLogger(),
		quota:        800,
		period:       time.Minute,
		defaultReset: DefaultResetHint,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		sw := ratelimit.NewSlidingWindow(c.quota, c.period, c.clock)
		sw.OnWait(func(_ string, d time.Duration) {
			metrics.RateLimitWaitSeconds.Observe(d.Seconds())
		})
		c.limiter = sw
	}
	if c.retry == nil {
		c.retry = retry.DefaultConfig()
	}
	cfg := *c.retry
	cfg.Clock = c.clock
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}
	c.retry = &cfg

	return c
}

// Execute performs method on path with query and returns the response body.
func (c *Client) Execute(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var (
		body     []byte
		reauthed bool
	)

	err := retry.Do(ctx, c.retry, func(ctx context.Context, attempt int) error {
		b, err := c.attempt(ctx, method, path, query, attempt, &reauthed)
		body = b
		return err
	})
	if err == nil {
		return body, nil
	}

	if errors.Is(err, retry.ErrExhausted) {
		switch errs.TypeOf(err) {
		case errs.ErrorTypeQuotaExceeded:
			return nil, errs.NewQuotaExceeded(c.retry.MaxRetries + 1)
		case errs.ErrorTypeTransport:
			apiErr := errs.NewAPIError(0, "")
			apiErr.Message = fmt.Sprintf("%s %s failed after %d attempts", method, path, c.retry.MaxRetries+1)
			apiErr.Err = err
			return nil, apiErr
		}
	}
	return nil, err
}

// attempt is one budgeted try. A 401 is answered inside the attempt, so the
// re-authenticated repeat does not consume a retry.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, attempt int, reauthed *bool) ([]byte, error) {
	for {
		if err := c.limiter.Acquire(ctx, ratelimit.DefaultKey); err != nil {
			return nil, err
		}

		token, err := c.tokens.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}

		status, header, body, err := c.roundTrip(ctx, method, path, query, token, attempt)
		if err != nil {
			return nil, err
		}

		switch {
		case status >= 200 && status < 300:
			return body, nil

		case status == http.StatusUnauthorized:
			if *reauthed {
				return nil, errs.NewAuthFailure("request rejected after re-authentication", status, nil)
			}
			*reauthed = true
			metrics.HelixRetriesTotal.WithLabelValues("reauth").Inc()
			c.logger.WithField("path", path).Warn("Token rejected, re-authenticating")

			c.tokens.Invalidate()
			if _, err := c.tokens.Authenticate(ctx); err != nil {
				return nil, err
			}

		case status == http.StatusTooManyRequests:
			hint := c.resetHint(header)
			metrics.HelixRetriesTotal.WithLabelValues("throttled").Inc()
			logger.LogRateLimit(c.logger, path, hint, attempt)
			return nil, retry.After(errs.NewQuotaExceeded(attempt+1), hint)

		default:
			return nil, errs.NewAPIError(status, string(body))
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, token string, attempt int) (int, http.Header, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, nil, nil, errs.NewValidationError("failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	metrics.HelixRequestDuration.WithLabelValues(path).Observe(duration.Seconds())

	if err != nil {
		metrics.HelixRequestsTotal.WithLabelValues(path, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, nil, ctxErr
		}
		metrics.HelixRetriesTotal.WithLabelValues("transport").Inc()
		c.logger.WithError(err).WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":  method,
			"path":    path,
			"attempt": attempt,
		})
		return 0, nil, nil, errs.NewTransportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.HelixRequestsTotal.WithLabelValues(path, "error").Inc()
		return 0, nil, nil, errs.NewTransportFailure(fmt.Errorf("failed to read response body: %w", err))
	}

	metrics.HelixRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
	logger.LogRequest(c.logger, method, path, resp.StatusCode, duration, attempt)

	return resp.StatusCode, resp.Header, body, nil
}

// resetHint reads Ratelimit-Reset. Small values are seconds to wait; values
// that look like a Unix timestamp are converted relative to now.
func (c *Client) resetHint(h http.Header) time.Duration {
	raw := strings.TrimSpace(h.Get(resetHeader))
	if raw == "" {
		return c.defaultReset
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return c.defaultReset
	}

	const epochThreshold = 1_000_000_000
	if n >= epochThreshold {
		wait := time.Unix(n, 0).Sub(c.clock.Now())
		return max(wait, 0)
	}
	return time.Duration(n) * time.Second
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

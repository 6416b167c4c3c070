package helix

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamscout/pkg/auth"
	errs "streamscout/pkg/errors"
	"streamscout/pkg/logger"
	"streamscout/pkg/retry"
)

type stubTokens struct {
	mu          sync.Mutex
	token       string
	ensures     int
	auths       int
	invalidates int
	authErr     error
}

func (s *stubTokens) EnsureValid(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensures++
	if s.token == "" {
		s.token = "tok-1"
	}
	return s.token, nil
}

func (s *stubTokens) Authenticate(context.Context) (*auth.TokenInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auths++
	if s.authErr != nil {
		return nil, s.authErr
	}
	s.token = "tok-refreshed"
	return &auth.TokenInfo{AccessToken: s.token, ExpiresIn: 3600, TokenType: "bearer"}, nil
}

func (s *stubTokens) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidates++
	s.token = ""
}

type recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recorder) onRetry(_ int, _ error, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
}

func (r *recorder) get() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type harness struct {
	client *Client
	tokens *stubTokens
	clock  *clockwork.FakeClock
	rec    *recorder
	calls  *atomic.Int32
}

// newHarness serves handler and returns a client wired to a fake clock with a
// fixed jitter seed.
func newHarness(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, call int)) *harness {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, int(calls.Add(1)))
	}))
	t.Cleanup(srv.Close)

	h := &harness{
		tokens: &stubTokens{},
		clock:  clockwork.NewFakeClock(),
		rec:    &recorder{},
		calls:  &calls,
	}
	h.client = NewClient("client-abc", h.tokens,
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(h.clock),
		WithRetry(&retry.Config{
			MaxRetries: 3,
			Backoff:    retry.NewExponentialBackoff(time.Second, time.Second, 7),
			MaxDelay:   DefaultResetHint,
			OnRetry:    h.rec.onRetry,
		}),
		WithLogger(logger.NewTestLogger()),
	)
	t.Cleanup(h.client.Close)
	return h
}

type result struct {
	body []byte
	err  error
}

// run executes in the background and advances the fake clock through
// `waits` backoff sleeps.
func (h *harness) run(t *testing.T, waits int) result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		body, err := h.client.Execute(ctx, http.MethodGet, StreamsPath, url.Values{"first": {"100"}})
		done <- result{body, err}
	}()

	for i := 0; i < waits; i++ {
		require.NoError(t, h.clock.BlockUntilContext(ctx, 1), "waiting for backoff %d", i)
		h.clock.Advance(DefaultResetHint)
	}

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		t.Fatal("Execute did not return")
		return result{}
	}
}

func TestExecuteSuccessSetsHeaders(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "client-abc", r.Header.Get("Client-Id"))
		assert.Equal(t, "100", r.URL.Query().Get("first"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	res := h.run(t, 0)
	require.NoError(t, res.err)
	assert.JSONEq(t, `{"data":[]}`, string(res.body))
	assert.EqualValues(t, 1, h.calls.Load())
}

func TestExecuteReauthenticatesOnceOn401(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok-refreshed", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"id":"1"}]}`))
	})

	res := h.run(t, 0)
	require.NoError(t, res.err)
	assert.EqualValues(t, 2, h.calls.Load())
	assert.Equal(t, 1, h.tokens.invalidates)
	assert.Equal(t, 1, h.tokens.auths)
	assert.Empty(t, h.rec.get(), "a 401 repeat is not a budgeted retry")
}

func TestExecuteSecond401IsAuthFailure(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	res := h.run(t, 0)
	require.Error(t, res.err)
	assert.True(t, errs.IsType(res.err, errs.ErrorTypeAuth))
	assert.EqualValues(t, 2, h.calls.Load())
	assert.Equal(t, 1, h.tokens.auths)
}

func TestExecuteReauthFailureSurfaces(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h.tokens.authErr = errs.NewAuthFailure("token exchange rejected", http.StatusBadRequest, nil)

	res := h.run(t, 0)
	assert.True(t, errs.IsType(res.err, errs.ErrorTypeAuth))
	assert.EqualValues(t, 1, h.calls.Load())
}

func TestExecuteRecoversAfterThrottling(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, call int) {
		if call <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	res := h.run(t, 3)
	require.NoError(t, res.err)
	assert.EqualValues(t, 4, h.calls.Load())

	delays := h.rec.get()
	require.Len(t, delays, 3)
	for i, d := range delays {
		base := time.Second << i
		assert.GreaterOrEqual(t, d, base, "delay %d", i)
		assert.Less(t, d, base+time.Second, "delay %d", i)
		if i > 0 {
			assert.Greater(t, d, delays[i-1], "delays must grow")
		}
	}
}

func TestExecuteQuotaExceeded(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	res := h.run(t, 3)
	require.Error(t, res.err)
	assert.True(t, errs.IsType(res.err, errs.ErrorTypeQuotaExceeded))
	assert.EqualValues(t, 4, h.calls.Load())
}

func TestExecuteHonoursResetHint(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, call int) {
		if call == 1 {
			w.Header().Set("Ratelimit-Reset", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	res := h.run(t, 1)
	require.NoError(t, res.err)
	assert.Equal(t, []time.Duration{time.Second}, h.rec.get())
}

func TestExecuteZeroResetHintRetriesImmediately(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, call int) {
		if call == 1 {
			w.Header().Set("Ratelimit-Reset", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	res := h.run(t, 0)
	require.NoError(t, res.err)
	assert.Equal(t, []time.Duration{0}, h.rec.get())
}

func TestExecuteAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "bad request", status: http.StatusBadRequest},
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			})

			res := h.run(t, 0)
			var e *errs.Error
			require.ErrorAs(t, res.err, &e)
			assert.Equal(t, errs.ErrorTypeAPI, e.Type)
			assert.Equal(t, tt.status, e.Code)
			assert.Contains(t, e.Body, "nope")
			assert.EqualValues(t, 1, h.calls.Load(), "no retry for %d", tt.status)
		})
	}
}

type failingTransport struct {
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("connection reset by peer")
}

func TestExecuteTransportFailureBecomesAPIError(t *testing.T) {
	h := newHarness(t, func(http.ResponseWriter, *http.Request, int) {})
	ft := &failingTransport{}
	h.client.httpClient = &http.Client{Transport: ft}

	res := h.run(t, 3)
	require.Error(t, res.err)
	assert.True(t, errs.IsType(res.err, errs.ErrorTypeAPI))
	assert.ErrorIs(t, res.err, retry.ErrExhausted)
	assert.Contains(t, res.err.Error(), "connection reset")
	assert.EqualValues(t, 4, ft.calls.Load())
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.client.Execute(ctx, http.MethodGet, StreamsPath, nil)
		done <- err
	}()

	waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	require.NoError(t, h.clock.BlockUntilContext(waitCtx, 1))
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, h.calls.Load())
}

type countingLimiter struct {
	n atomic.Int32
}

func (c *countingLimiter) Acquire(context.Context, string) error {
	c.n.Add(1)
	return nil
}

func (c *countingLimiter) TryAcquire(string) bool {
	c.n.Add(1)
	return true
}

func (c *countingLimiter) Reset() {}

func TestEveryRoundTripTakesAPermit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	lim := &countingLimiter{}
	c := NewClient("id", &stubTokens{}, WithBaseURL(srv.URL), WithLimiter(lim))
	defer c.Close()

	_, err := c.Execute(context.Background(), http.MethodGet, UsersPath, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, lim.n.Load())
}

func TestResetHint(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC))
	c := NewClient("id", &stubTokens{}, WithClock(clock))

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "absent", value: "", want: DefaultResetHint},
		{name: "seconds", value: "12", want: 12 * time.Second},
		{name: "zero", value: "0", want: 0},
		{name: "garbage", value: "soon", want: DefaultResetHint},
		{name: "negative", value: "-3", want: DefaultResetHint},
		{name: "epoch", value: itoa(clock.Now().Add(7 * time.Second).Unix()), want: 7 * time.Second},
		{name: "epoch in the past", value: itoa(clock.Now().Add(-time.Hour).Unix()), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Ratelimit-Reset", tt.value)
			}
			assert.Equal(t, tt.want, c.resetHint(h))
		})
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestDefaultResetIsConfigurable(t *testing.T) {
	c := NewClient("id", &stubTokens{}, WithDefaultReset(15*time.Second))
	assert.Equal(t, 15*time.Second, c.resetHint(http.Header{}))

	c = NewClient("id", &stubTokens{}, WithDefaultReset(0))
	assert.Equal(t, DefaultResetHint, c.resetHint(http.Header{}))
}

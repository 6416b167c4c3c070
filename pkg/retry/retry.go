package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	errs "streamscout/pkg/errors"
	"streamscout/pkg/logger"
)

// ErrExhausted is wrapped by Do once every retry has been used.
var ErrExhausted = errors.New("retries exhausted")

// Operation performs one attempt. attempt starts at zero.
type Operation func(ctx context.Context, attempt int) error

// Config holds retry configuration
type Config struct {
	// MaxRetries is how many times a failed attempt is repeated, so an
	// operation runs at most MaxRetries+1 times.
	MaxRetries int
	// Backoff computes the uncapped delay for a retry.
	Backoff BackoffStrategy
	// MaxDelay caps every delay; zero means uncapped. A hint attached with
	// After replaces it.
	MaxDelay time.Duration
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	// Clock drives the waits; nil means the real clock.
	Clock  clockwork.Clock
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		Backoff:    DefaultExponentialBackoff(),
		MaxDelay:   60 * time.Second,
		RetryIf:    DefaultRetryIf,
		Clock:      clockwork.NewRealClock(),
		Logger:     logger.NewNopLogger(),
	}
}

// DefaultRetryIf retries transport failures and throttling, nothing else.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errs.IsRetryable(errs.TypeOf(err))
}

type hintedError struct {
	err  error
	hint time.Duration
}

func (h *hintedError) Error() string { return h.err.Error() }
func (h *hintedError) Unwrap() error { return h.err }

// After attaches a server supplied wait hint to err. Do uses the hint as the
// upper bound for the next delay instead of Config.MaxDelay.
func After(err error, hint time.Duration) error {
	return &hintedError{err: err, hint: hint}
}

// Hint extracts a hint attached with After.
func Hint(err error) (time.Duration, bool) {
	var h *hintedError
	if errors.As(err, &h) {
		return h.hint, true
	}
	return 0, false
}

// Delay is the wait before retry number attempt: the backoff value capped by
// the hint on err or by MaxDelay.
func (c *Config) Delay(attempt int, err error) time.Duration {
	delay := c.Backoff.NextDelay(attempt)

	if hint, ok := Hint(err); ok {
		return min(delay, max(hint, 0))
	}
	if c.MaxDelay > 0 {
		return min(delay, c.MaxDelay)
	}
	return delay
}

// Do executes op until it succeeds, returns a non-retryable error, ctx ends or
// the retry budget is spent. In the last case the returned error wraps both
// ErrExhausted and the final attempt's error.
func Do(ctx context.Context, cfg *Config, op Operation) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	for attempt := 0; ; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			if attempt > 0 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}

		if attempt >= cfg.MaxRetries {
			log.WarnWithFields("max retries exceeded", map[string]interface{}{
				"retries":    attempt,
				"last_error": err.Error(),
			})
			return fmt.Errorf("%w after %d retries: %w", ErrExhausted, attempt, err)
		}

		delay := cfg.Delay(attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.DebugWithFields("retrying operation", map[string]interface{}{
			"attempt":  attempt,
			"error":    err.Error(),
			"delay_ms": delay.Milliseconds(),
		})

		if err := Wait(ctx, clock, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, cfg *Config, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var result T

	err := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		var opErr error
		result, opErr = op(ctx, attempt)
		return opErr
	})

	return result, err
}

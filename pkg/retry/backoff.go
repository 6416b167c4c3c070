package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay before retry number attempt (zero based).
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff waits BaseDelay*2^attempt plus a uniform jitter in
// [0, MaxJitter). Jitter comes from a private source so a fixed seed gives a
// fixed schedule.
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxJitter time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExponentialBackoff creates a backoff. A zero seed draws one from the
// current time.
func NewExponentialBackoff(base, maxJitter time.Duration, seed int64) *ExponentialBackoff {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ExponentialBackoff{
		BaseDelay: base,
		MaxJitter: maxJitter,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// DefaultExponentialBackoff returns 1s base with up to 1s jitter
func DefaultExponentialBackoff() *ExponentialBackoff {
	return NewExponentialBackoff(time.Second, time.Second, 0)
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}

	delay := eb.BaseDelay << uint(attempt)

	if eb.MaxJitter > 0 {
		eb.mu.Lock()
		delay += time.Duration(eb.rng.Int63n(int64(eb.MaxJitter)))
		eb.mu.Unlock()
	}

	return delay
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(int) time.Duration {
	return cb.Delay
}

// Wait waits for the specified duration on clock or until ctx is cancelled
func Wait(ctx context.Context, clock clockwork.Clock, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

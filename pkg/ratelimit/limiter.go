package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultKey is the single quota bucket used for Helix calls. The quota is
// account wide, so every endpoint shares it.
const DefaultKey = "helix"

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Acquire blocks until a permit for key is available or ctx is done.
	Acquire(ctx context.Context, key string) error
	// TryAcquire takes a permit only if one is available right now.
	TryAcquire(key string) bool
	// Reset forgets all recorded grants
	Reset()
}

// SlidingWindow grants at most capacity permits per key within any trailing
// period. Waiters for the same key are served in arrival order.
type SlidingWindow struct {
	capacity int
	period   time.Duration
	clock    clockwork.Clock

	mu      sync.Mutex
	windows map[string]*window

	onWait func(key string, d time.Duration)
}

type window struct {
	// turn is a one-slot queue; blocked senders are woken FIFO.
	turn   chan struct{}
	grants []time.Time
}

// NewSlidingWindow creates a new sliding window rate limiter. A nil clock
// means the real clock.
func NewSlidingWindow(capacity int, period time.Duration, clock clockwork.Clock) *SlidingWindow {
	if capacity < 1 {
		capacity = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SlidingWindow{
		capacity: capacity,
		period:   period,
		clock:    clock,
		windows:  make(map[string]*window),
	}
}

// OnWait registers a callback invoked whenever a caller has to sleep for
// quota. Must be set before the first Acquire.
func (sw *SlidingWindow) OnWait(fn func(key string, d time.Duration)) {
	sw.onWait = fn
}

// Capacity returns the configured number of permits per period.
func (sw *SlidingWindow) Capacity() int { return sw.capacity }

// Period returns the rolling window length.
func (sw *SlidingWindow) Period() time.Duration { return sw.period }

// Acquire waits for a permit. The wait is unbounded; callers bound it with ctx.
func (sw *SlidingWindow) Acquire(ctx context.Context, key string) error {
	w := sw.window(key)

	select {
	case w.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-w.turn }()

	for {
		wait, ok := sw.grant(w)
		if ok {
			return nil
		}

		if sw.onWait != nil {
			sw.onWait(key, wait)
		}

		timer := sw.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// TryAcquire takes a permit without blocking. It never jumps ahead of a
// waiter that already holds the turn.
func (sw *SlidingWindow) TryAcquire(key string) bool {
	w := sw.window(key)

	select {
	case w.turn <- struct{}{}:
	default:
		return false
	}
	defer func() { <-w.turn }()

	_, ok := sw.grant(w)
	return ok
}

// Reset clears all recorded grants
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for _, w := range sw.windows {
		w.grants = w.grants[:0]
	}
}

// InFlight returns how many grants for key fall inside the current window.
func (sw *SlidingWindow) InFlight(key string) int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	w, ok := sw.windows[key]
	if !ok {
		return 0
	}
	w.evict(sw.clock.Now(), sw.period)
	return len(w.grants)
}

func (sw *SlidingWindow) window(key string) *window {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	w, ok := sw.windows[key]
	if !ok {
		w = &window{
			turn:   make(chan struct{}, 1),
			grants: make([]time.Time, 0, sw.capacity),
		}
		sw.windows[key] = w
	}
	return w
}

// grant records a permit if the window has room, otherwise it returns how
// long until the oldest grant leaves the window.
func (sw *SlidingWindow) grant(w *window) (time.Duration, bool) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	w.evict(now, sw.period)

	if len(w.grants) < sw.capacity {
		w.grants = append(w.grants, now)
		return 0, true
	}

	return w.grants[0].Add(sw.period).Sub(now), false
}

// evict drops grants that are a full period old or older.
func (w *window) evict(now time.Time, period time.Duration) {
	cutoff := now.Add(-period)

	i := 0
	for i < len(w.grants) && !w.grants[i].After(cutoff) {
		i++
	}

	if i > 0 {
		n := copy(w.grants, w.grants[i:])
		w.grants = w.grants[:n]
	}
}

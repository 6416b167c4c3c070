package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSlidingWindowGrantsUpToCapacity(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := NewSlidingWindow(3, time.Minute, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, sw.Acquire(ctx, DefaultKey))
	}

	assert.False(t, sw.TryAcquire(DefaultKey), "fourth permit inside the window")
	assert.Equal(t, 3, sw.InFlight(DefaultKey))
}

func TestSlidingWindowBlocksUntilOldestExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := NewSlidingWindow(2, time.Minute, clock)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sw.Acquire(ctx, DefaultKey))
	clock.Advance(20 * time.Second)
	require.NoError(t, sw.Acquire(ctx, DefaultKey))

	var waited time.Duration
	sw.OnWait(func(_ string, d time.Duration) { waited = d })

	done := make(chan error, 1)
	go func() { done <- sw.Acquire(ctx, DefaultKey) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 40*time.Second, waited)

	select {
	case <-done:
		t.Fatal("acquire returned before the window rolled")
	default:
	}

	clock.Advance(40 * time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, 2, sw.InFlight(DefaultKey))
}

func TestSlidingWindowNeverExceedsCapacityInTrailingPeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	const capacity = 5
	period := 10 * time.Second
	sw := NewSlidingWindow(capacity, period, clock)

	var grants []time.Time
	for step := 0; step < 200; step++ {
		if sw.TryAcquire(DefaultKey) {
			grants = append(grants, clock.Now())
		}
		clock.Advance(700 * time.Millisecond)
	}

	require.NotEmpty(t, grants)
	for i := range grants {
		count := 0
		for j := range grants {
			if !grants[j].Before(grants[i]) && grants[j].Before(grants[i].Add(period)) {
				count++
			}
		}
		assert.LessOrEqual(t, count, capacity, "window starting at grant %d", i)
	}
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute, clockwork.NewFakeClock())

	assert.True(t, sw.TryAcquire("streams"))
	assert.False(t, sw.TryAcquire("streams"))
	assert.True(t, sw.TryAcquire("users"))
}

func TestSlidingWindowAcquireCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := NewSlidingWindow(1, time.Minute, clock)
	require.True(t, sw.TryAcquire(DefaultKey))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Acquire(ctx, DefaultKey) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, sw.InFlight(DefaultKey))
}

func TestSlidingWindowCancelledWhileQueued(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := NewSlidingWindow(1, time.Minute, clock)
	require.True(t, sw.TryAcquire(DefaultKey))

	bg, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	// First waiter holds the turn and sleeps on the clock.
	first := make(chan error, 1)
	go func() { first <- sw.Acquire(bg, DefaultKey) }()
	require.NoError(t, clock.BlockUntilContext(bg, 1))

	// Second waiter is queued behind it and gives up.
	ctx, cancel := context.WithCancel(context.Background())
	second := make(chan error, 1)
	go func() { second <- sw.Acquire(ctx, DefaultKey) }()
	cancel()
	assert.ErrorIs(t, <-second, context.Canceled)

	clock.Advance(time.Minute)
	assert.NoError(t, <-first)
}

func TestSlidingWindowFIFO(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := NewSlidingWindow(1, time.Second, clock)
	require.True(t, sw.TryAcquire(DefaultKey))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Start waiters one at a time so their queue position is known.
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := sw.Acquire(ctx, DefaultKey); err == nil {
				mu.Lock()
				order = append(order, id)
				mu.Unlock()
			}
		}(i)
		if i == 0 {
			require.NoError(t, clock.BlockUntilContext(ctx, 1))
		} else {
			time.Sleep(20 * time.Millisecond)
		}
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSlidingWindowReset(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour, clockwork.NewFakeClock())
	require.True(t, sw.TryAcquire(DefaultKey))
	require.False(t, sw.TryAcquire(DefaultKey))

	sw.Reset()
	assert.True(t, sw.TryAcquire(DefaultKey))
}

func TestNewSlidingWindowDefaults(t *testing.T) {
	sw := NewSlidingWindow(0, time.Minute, nil)
	assert.Equal(t, 1, sw.Capacity())
	assert.Equal(t, time.Minute, sw.Period())
}

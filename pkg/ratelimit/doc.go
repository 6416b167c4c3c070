// Package ratelimit keeps outgoing Helix traffic under the per-client quota.
//
// SlidingWindow admits at most Capacity requests in any Period-long window
// per key. Acquire blocks until a slot frees up or the context ends;
// TryAcquire never blocks. Time comes from a clockwork.Clock so tests can
// advance it by hand.
//
//	gate := ratelimit.NewSlidingWindow(800, time.Minute, clockwork.NewRealClock())
//	if err := gate.Acquire(ctx, clientID); err != nil {
//		return err
//	}
package ratelimit

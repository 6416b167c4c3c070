// Package retry provides the backoff schedule and retry loop used by the
// Helix client for throttled and transient failures.
//
// The schedule is BaseDelay*2^attempt plus uniform jitter in [0, MaxJitter),
// capped either by a server hint (a 429's Ratelimit-Reset) or by
// Config.MaxDelay. A fixed seed makes the jitter reproducible.
//
// Basic usage:
//
//	cfg := &retry.Config{
//		MaxRetries: 3,
//		Backoff:    retry.NewExponentialBackoff(time.Second, time.Second, seed),
//		MaxDelay:   60 * time.Second,
//		Clock:      clock,
//	}
//	err := retry.Do(ctx, cfg, func(ctx context.Context, attempt int) error {
//		resp, err := call(ctx)
//		if resp.StatusCode == http.StatusTooManyRequests {
//			return retry.After(errs.NewQuotaExceeded(attempt+1), resetHint)
//		}
//		return err
//	})
//	if errors.Is(err, retry.ErrExhausted) {
//		// budget spent
//	}
//
// Only transport and quota errors are retried by default. Auth, API and
// validation errors return immediately.
package retry

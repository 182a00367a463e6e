// Package retry runs operations again when they fail with a retryable error.
//
// Two policies are used by igunfollow. DefaultConfig retries transient
// network and 5xx failures a few times with exponential backoff, which is how
// friendship list pages are fetched. RateLimitConfig retries only 429
// responses and waits a fixed duration before each attempt, which is how a
// single unfollow is repeated after Instagram throttles the account:
//
//	cfg := retry.RateLimitConfig(ctx, 5*time.Minute, 0)
//	cfg.OnRetry = func(attempt int, err error, d time.Duration) {
//		fmt.Println("Rate limited! Waiting 5 minutes...")
//	}
//	err := retry.Do(func() error { return client.Unfollow(ctx, username) }, cfg)
package retry

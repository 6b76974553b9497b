// Package ratelimiter implements token bucket rate limiting over a pluggable Store.
//
// A Bucket applies one Config (capacity, refill rate, refill interval) to any number
// of keys. The reference engine keys buckets by WebSocket connection ID to cap the
// inbound message rate per connection:
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.PerSecond(50))
//	if err != nil {
//		return err
//	}
//	res, err := limiter.Allow(ctx, "conn:42")
//	if err == nil && !res.Allowed() {
//		// close the connection, retry after res.RetryAfter()
//	}
//
// MemoryStore keeps buckets in process. Its cleanup loop is started with Start, or
// with Run under an errgroup, and removes buckets idle for longer than WithStaleAfter.
package ratelimiter

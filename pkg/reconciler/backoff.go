package reconciler

import (
	"math/rand"
	"time"
)

// fullJitterBackoff implements the exponential-backoff-with-full-jitter
// schedule spec §4.6 mandates for runtime reconnection (base, factor 2,
// capped) and that this package reuses, with a smaller cap, for per-target
// route-error retries (spec §7: "rescheduled ... with backoff").
func fullJitterBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base * time.Duration(uint64(1)<<uint(attempt))
	if d <= 0 || d > cap {
		d = cap
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// Package bandwidth implements the per-session byte/sec token bucket the
// packet builder debits from on every flush, grounded on the token-bucket
// rate limiting golang.org/x/time/rate provides across the example
// corpus's networked daemons (syncthing, telepresence, keda).
package bandwidth

import (
	"time"

	"golang.org/x/time/rate"
)

// Bucket caps outbound bytes/sec with a burst allowance.
type Bucket struct {
	limiter *rate.Limiter
}

// New returns a bucket refilling at bytesPerSec with the given burst
// capacity (the maximum the bucket can ever hold).
func New(bytesPerSec float64, burst int) *Bucket {
	return &Bucket{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst)}
}

// TryConsume attempts to debit n bytes as of now, refilling first. It
// reports whether the debit succeeded; on failure no tokens are spent, so
// the caller should stop emitting for this flush and retry later.
func (b *Bucket) TryConsume(now time.Time, n int) bool {
	if n <= 0 {
		return true
	}
	return b.limiter.AllowN(now, n)
}

// SetRate updates the refill rate in bytes/sec.
func (b *Bucket) SetRate(bytesPerSec float64) {
	b.limiter.SetLimit(rate.Limit(bytesPerSec))
}

// SetBurst updates the maximum burst the bucket can hold.
func (b *Bucket) SetBurst(n int) {
	b.limiter.SetBurst(n)
}

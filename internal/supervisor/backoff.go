package supervisor

import (
	"math"
	"time"

	"github.com/sethvargo/go-retry"
)

// Backoff is the initial-fetch retry policy: at most MaxAttempts fetches,
// waiting min(Cap, Base*Factor^n) after the n-th failure (n from 0).
type Backoff struct {
	Base        time.Duration
	Cap         time.Duration
	Factor      float64
	MaxAttempts int
}

// DefaultBackoff is 8 attempts, 200ms growing by 1.5x, capped at 1500ms.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:        200 * time.Millisecond,
		Cap:         1500 * time.Millisecond,
		Factor:      1.5,
		MaxAttempts: 8,
	}
}

// Delay returns the wait after the n-th failed attempt.
func (b Backoff) Delay(n int) time.Duration {
	d := float64(b.Base) * math.Pow(b.Factor, float64(n))
	if d >= float64(b.Cap) {
		return b.Cap
	}
	return time.Duration(d)
}

// policy builds a fresh go-retry backoff. Backoffs are stateful, so each
// fetch loop needs its own.
func (b Backoff) policy() retry.Backoff {
	n := 0
	var next retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		d := b.Delay(n)
		n++
		return d, false
	})
	next = retry.WithCappedDuration(b.Cap, next)
	retries := b.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), next)
}

package notify

import (
	"math/rand"
	"time"
)

// Backoff is the retry schedule for transient send failures: base delay doubled
// per attempt up to Max, with randomized jitter to avoid thundering-herd
// retries from overlapping cron invocations.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	Jitter     float64 // fraction, e.g. 0.3 for +/-30%
	MaxRetries int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:       30 * time.Second,
		Max:        300 * time.Second,
		Jitter:     0.3,
		MaxRetries: 2,
	}
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base << (attempt - 1)
	if d > b.Max || d <= 0 {
		d = b.Max
	}
	if b.Jitter > 0 {
		spread := float64(d) * b.Jitter
		d = time.Duration(float64(d) - spread + rand.Float64()*2*spread)
	}
	return d
}

package backoff

import (
	"time"

	"github.com/cenkalti/backoff"
)

// Backoff hands out successive retry delays, growing exponentially from an
// initial delay up to a hard cap. Growth is deterministic: no jitter, no
// give-up deadline. It is not safe for concurrent use; every consumer is
// expected to own its generator exclusively.
type Backoff struct {
	exp *backoff.ExponentialBackOff
}

func New(initial time.Duration, factor float64, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if factor < 1 {
		factor = 2
	}
	if max < initial {
		max = initial
	}

	exp := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          factor,
		MaxInterval:         max,
		// giving up is the caller's call, the generator never stops
		MaxElapsedTime: 0,
		Clock:          backoff.SystemClock,
	}
	exp.Reset()

	return &Backoff{exp: exp}
}

// Next returns the delay to wait before the upcoming attempt and advances
// the generator. Once the cap is reached every later delay equals the cap.
func (b *Backoff) Next() time.Duration {
	return b.exp.NextBackOff()
}

// Reset rewinds the generator so the next delay is the initial one again.
func (b *Backoff) Reset() {
	b.exp.Reset()
}

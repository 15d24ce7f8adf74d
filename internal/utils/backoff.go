package utils

import (
	"math/rand"
	"time"
)

// Backoff computes bounded exponential retry delays with jitter. The raw
// delay doubles per consecutive failure up to Max and resets to Base on
// success, so the underlying schedule is monotonically non-decreasing up
// to the cap. Jitter randomizes only the upper half of each delay.
//
// Not safe for concurrent use; each retry loop owns its instance.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	attempt int
}

// NewBackoff returns a Backoff with the given base delay and cap.
func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{Base: base, Max: max}
}

// Next returns the delay to wait before the next attempt and advances the
// failure counter.
func (b *Backoff) Next() time.Duration {
	delay := b.Base
	for i := 0; i < b.attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			delay = b.Max
			break
		}
	}
	b.attempt++

	// Jitter between 50% and 100% of the computed delay, keeping the
	// schedule non-decreasing relative to the previous raw delay's half.
	return time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
}

// Raw returns the next delay without jitter and without advancing the
// counter. Used where deterministic schedules matter.
func (b *Backoff) Raw() time.Duration {
	delay := b.Base
	for i := 0; i < b.attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			return b.Max
		}
	}
	return delay
}

// Reset clears the failure counter after a successful operation.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt reports the number of consecutive failures recorded so far.
func (b *Backoff) Attempt() int {
	return b.attempt
}

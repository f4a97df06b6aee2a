package danmu

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from Base, capped at
// Cap, plus up to one second of jitter so a fleet of monitors does not stampede
// the gateway after an outage.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// DefaultBackoff matches the gateway-friendly defaults: 1s base, 60s cap.
func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Cap: time.Minute}
}

// Delay returns the wait before reconnect attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	cap := b.Cap
	if cap <= 0 {
		cap = time.Minute
	}

	wait := base
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= cap {
			wait = cap
			break
		}
	}
	return wait + time.Duration(rand.Int63n(int64(time.Second)))
}

package stream

import (
	"time"

	"github.com/jpillora/backoff"
)

// Backoff yields the delay before each reconnect attempt. Duration is called
// once per attempt; Reset is called after a successful connect. The retry
// policy is pluggable: the default is a flat delay, but callers can install
// an exponential policy via WithBackoff.
type Backoff interface {
	Duration() time.Duration
	Reset()
}

// flatBackoff returns the default policy: the same delay for every attempt,
// with no cap and no growth.
func flatBackoff(delay time.Duration) Backoff {
	return &backoff.Backoff{
		Min:    delay,
		Max:    delay,
		Factor: 1,
		Jitter: false,
	}
}

var _ Backoff = (*backoff.Backoff)(nil)

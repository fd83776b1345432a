package client

import (
	"math/rand"
	"time"
)

// backoffConfig controls reconnection pacing. Reconnection is bounded:
// after MaxAttempts consecutive failures the connection manager gives up
// and surfaces a connection error to the caller.
type backoffConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

var defaultBackoff = backoffConfig{
	maxAttempts: 5,
	baseDelay:   time.Second,
	maxDelay:    30 * time.Second,
}

// backoffDelay returns the wait before retry number attempt (0-based):
// exponential growth capped at maxDelay, with up to 25% jitter so a burst
// of disconnected clients does not reconnect in lockstep.
func backoffDelay(cfg backoffConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay || delay <= 0 {
		delay = cfg.maxDelay
	}
	if quarter := int64(delay) / 4; quarter > 0 {
		delay += time.Duration(rand.Int63n(quarter))
	}
	return delay
}

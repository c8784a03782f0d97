// Package retry holds the policy for retrying recoverable engine errors.
package retry

import (
	"fmt"
	"time"
)

// Policy bounds retries of an operation that failed with a recoverable error.
// The accumulated wait never starts a new sleep once it reached MaxDelay.
type Policy struct {
	RetryOnRecoverable bool
	Delay              time.Duration
	MaxDelay           time.Duration
}

// Disabled is the zero policy: the first failure is returned.
func Disabled() Policy {
	return Policy{}
}

// Enabled reports whether a recoverable failure may be retried at all.
// A non-positive Delay disables retries to keep the loop bounded.
func (p Policy) Enabled() bool {
	return p.RetryOnRecoverable && p.Delay > 0 && p.MaxDelay > 0
}

// Allows reports whether another attempt may start after having waited so far.
func (p Policy) Allows(waited time.Duration) bool {
	return p.Enabled() && waited < p.MaxDelay
}

// Validate rejects negative durations and an enabled policy without a delay.
func (p Policy) Validate() error {
	if p.Delay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative (delay=%s, max_delay=%s)", p.Delay, p.MaxDelay)
	}
	if p.RetryOnRecoverable && p.Delay == 0 {
		return fmt.Errorf("retry_delay is required when retry_on_recoverable_errors is set")
	}
	return nil
}

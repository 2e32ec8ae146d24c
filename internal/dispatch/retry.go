package dispatch

import (
	"context"
	"time"
)

// RetryPolicy retries a failing operation up to MaxRetries additional times
// with a fixed delay between attempts. No backoff growth, no jitter: mail
// submission tolerates duplicates, not losses.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// run executes fn until it succeeds or the attempts are exhausted, sleeping
// Delay between attempts. Cancelling ctx aborts the wait and returns the
// last error.
func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	var err error
	attempts := 1 + p.MaxRetries
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

// Package poll provides a bounded, parameterised polling primitive.
//
// It replaces open-ended timers with an explicit policy: a fixed interval,
// a maximum number of attempts, and a soft terminal outcome (ErrExhausted)
// that callers decide how to surface. Ingestion status tracking uses it;
// any other job-status poller can reuse it unchanged.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when MaxAttempts checks ran without a final answer.
var ErrExhausted = errors.New("poll: attempts exhausted")

// Policy bounds a polling loop.
type Policy struct {
	// Interval is the pause between attempts.
	Interval time.Duration

	// MaxAttempts is the number of checks before giving up. Values below 1 mean 1.
	MaxAttempts int
}

// DefaultPolicy polls every 3s, up to 20 times.
func DefaultPolicy() Policy {
	return Policy{Interval: 3 * time.Second, MaxAttempts: 20}
}

// Budget is the worst-case wall time spent waiting between attempts.
func (p Policy) Budget() time.Duration {
	return time.Duration(p.attempts()-1) * p.Interval
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// CheckFunc performs one attempt. attempt starts at 1. Returning done=true
// ends the loop successfully; a non-nil error ends it immediately.
type CheckFunc[T any] func(ctx context.Context, attempt int) (value T, done bool, err error)

// Until runs check according to p. It returns the last value observed and
// the number of attempts made. When the budget runs out it returns
// ErrExhausted together with the last value; context cancellation returns
// the context's error.
func Until[T any](ctx context.Context, p Policy, check CheckFunc[T]) (T, int, error) {
	var last T
	limit := p.attempts()

	for attempt := 1; attempt <= limit; attempt++ {
		value, done, err := check(ctx, attempt)
		if err != nil {
			return value, attempt, err
		}
		last = value
		if done {
			return value, attempt, nil
		}
		if attempt == limit {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return last, attempt, err
		}
	}

	return last, limit, ErrExhausted
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package poll runs fixed-interval, bounded polling loops.
//
// Both server-driven waits of a free download (the delivery mailbox and the
// status-check chain) are expressed as a Probe run under a Policy:
//
//	url, err := poll.Until(ctx, poll.Policy{Interval: time.Second, MaxAttempts: 120, DelayFirst: true},
//	    func(ctx context.Context, attempt uint64) (string, bool, error) {
//	        return checkMailbox(ctx)
//	    })
//	if errors.Is(err, poll.ErrExhausted) {
//	    // nothing arrived in time
//	}
//
// The interval is static: there is no backoff.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrExhausted is returned by Until when every attempt reported "not done".
var ErrExhausted = errors.New("poll attempts exhausted")

var errPending = errors.New("pending")

// Clock waits between attempts. Tests substitute a clock that does not sleep.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock and returns early with ctx.Err() when
// the context is done.
type RealClock struct{}

// Sleep implements Clock.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds a polling loop.
type Policy struct {
	// Interval is the pause between two attempts.
	Interval time.Duration

	// MaxAttempts is the number of times the probe runs at most. Zero is
	// treated as one.
	MaxAttempts uint64

	// DelayFirst also pauses before the first attempt.
	DelayFirst bool

	// Clock defaults to RealClock.
	Clock Clock
}

// Probe checks the polled condition once. It returns done=true with the
// result when the condition is met, done=false to be called again after the
// interval, or an error to abort polling.
type Probe[T any] func(ctx context.Context, attempt uint64) (result T, done bool, err error)

// Until calls probe until it reports done, fails, or MaxAttempts is reached.
//
// Errors returned by the probe are passed through unchanged. When attempts
// run out, the returned error wraps ErrExhausted.
func Until[T any](ctx context.Context, p Policy, probe Probe[T]) (T, error) {
	clock := p.Clock
	if clock == nil {
		clock = RealClock{}
	}
	attempts := max(p.MaxAttempts, 1)

	var (
		result  T
		attempt uint64
	)

	// Delays are taken by the clock inside the attempt, so the backoff itself
	// never waits.
	backoff := retry.WithMaxRetries(attempts-1, retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 || p.DelayFirst {
			if err := clock.Sleep(ctx, p.Interval); err != nil {
				return err
			}
		}

		v, done, err := probe(ctx, attempt)
		if err != nil {
			return err
		}
		if !done {
			return retry.RetryableError(errPending)
		}

		result = v
		return nil
	})
	if err != nil {
		var zero T
		if errors.Is(err, errPending) {
			return zero, fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
		}
		return zero, err
	}

	return result, nil
}

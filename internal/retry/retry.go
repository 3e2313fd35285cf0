// Package retry bounds repeated attempts at a unit of file work that fails
// while the producing process still holds the file.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restronaut/internal/services"
)

// ErrRetriesExhausted wraps the last transient error once the budget is spent.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// DefaultDelay is the pause between attempts when none is configured.
const DefaultDelay = time.Second

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// Controller runs a Func up to Budget times, waiting Delay between attempts.
// Only errors classified as services.ErrTransientIO are retried.
type Controller struct {
	Budget int
	Delay  time.Duration

	// OnRetry, when set, observes each transient failure that will be retried.
	OnRetry func(attempt int, err error)

	wait func(ctx context.Context, d time.Duration) error
}

// New returns a Controller with the given budget and delay.
func New(budget int, delay time.Duration) *Controller {
	return &Controller{Budget: budget, Delay: delay}
}

// Run executes fn until it succeeds, fails with a non-transient error, or the
// budget is spent. Context cancellation during the delay aborts with ctx.Err().
func (c *Controller) Run(ctx context.Context, fn Func) error {
	budget := c.Budget
	if budget < 1 {
		budget = 1
	}
	wait := c.wait
	if wait == nil {
		wait = sleep
	}

	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		attemptCtx := services.WithAttempt(ctx, attempt)
		err := fn(attemptCtx, attempt)
		if err == nil {
			return nil
		}
		if !services.IsTransient(err) {
			return err
		}
		lastErr = err
		if attempt == budget {
			break
		}
		if c.OnRetry != nil {
			c.OnRetry(attempt, err)
		}
		if err := wait(ctx, c.Delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, budget, lastErr)
}

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

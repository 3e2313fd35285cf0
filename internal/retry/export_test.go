package retry

import (
	"context"
	"time"
)

// SetWait replaces the delay function for tests.
func (c *Controller) SetWait(fn func(ctx context.Context, d time.Duration) error) {
	c.wait = fn
}

package reconciler

import (
	"context"
)

// coalescer runs fn on a single goroutine. A trigger that arrives while a run
// is already pending is folded into it.
type coalescer struct {
	pending chan struct{}
	fn      func(ctx context.Context)
}

func newCoalescer(fn func(ctx context.Context)) *coalescer {
	return &coalescer{
		pending: make(chan struct{}, 1),
		fn:      fn,
	}
}

func (c *coalescer) trigger() {
	select {
	case c.pending <- struct{}{}:
	default:
	}
}

func (c *coalescer) start(ctx context.Context) {
	for {
		select {
		case <-c.pending:
			c.fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

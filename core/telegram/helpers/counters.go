package helpers

import (
	"context"
	"sync/atomic"
)

type countersKey struct{}

// Counters tracks outbound messages produced while handling one update.
type Counters struct {
	messages atomic.Int64
	keyboard atomic.Bool
}

// Add records one outbound message and whether it carried a keyboard.
func (c *Counters) Add(withKeyboard bool) {
	if c == nil {
		return
	}
	c.messages.Add(1)
	if withKeyboard {
		c.keyboard.Store(true)
	}
}

// Snapshot returns the message count and keyboard flag.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	return int(c.messages.Load()), c.keyboard.Load()
}

// WithCounters attaches a fresh Counters to ctx.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Counters{}
	return context.WithValue(ctx, countersKey{}, c), c
}

// CountersFrom returns the Counters attached to ctx or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

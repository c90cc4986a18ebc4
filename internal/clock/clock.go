// Package clock provides the monotonic height counter the ledger uses as
// its only clock. There is no wall-clock time anywhere in the engine;
// expiry and emergency windows are expressed purely in heights.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock exposes the current height. Implementations must be monotonic.
type Clock interface {
	Height() uint64
}

// Counter is an in-process height counter. The server binary advances it on
// a ticker; tests advance it directly.
type Counter struct {
	mu sync.Mutex
	h  uint64
}

// NewCounter creates a counter starting at the given height.
func NewCounter(start uint64) *Counter {
	return &Counter{h: start}
}

// Height returns the current height.
func (c *Counter) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h
}

// Advance moves the counter forward by n heights and returns the new height.
func (c *Counter) Advance(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.h += n
	return c.h
}

// Run advances the counter once per interval until ctx is cancelled.
// Must be called in a goroutine.
func (c *Counter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Advance(1)
		}
	}
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates outbound calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// MinInterval enforces a minimum spacing between calls. Concurrent callers
// reserve consecutive slots, so N waiting callers are released Interval apart.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func NewMinInterval(d time.Duration) *MinInterval { return &MinInterval{Interval: d} }

// Wait blocks until the caller's slot arrives or ctx is canceled. A canceled
// caller keeps its reserved slot.
func (m *MinInterval) Wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return ctx.Err()
	}
	m.mu.Lock()
	now := time.Now()
	slot := m.next
	if slot.Before(now) {
		slot = now
	}
	m.next = slot.Add(m.Interval)
	m.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

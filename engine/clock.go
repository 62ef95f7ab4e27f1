package engine

import (
	"sync"
	"time"

	"labyrinth-server/model"
)

// Clock supplies the single timestamp an operation observes. Implementations
// must never move backward between calls.
type Clock interface {
	Now() model.Timestamp
}

// SystemClock is the wall clock in microseconds with a monotonic guard: a
// backwards wall-clock step is clamped so timestamps only move forward.
type SystemClock struct {
	mu   sync.Mutex
	last model.Timestamp
}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Now() model.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := model.Timestamp(time.Now().UnixMicro())
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}

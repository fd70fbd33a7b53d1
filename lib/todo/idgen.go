package todo

import (
	"sync"
	"time"
)

// idGenerator hands out millisecond timestamps as ids. Two ids requested in the
// same millisecond (or after the clock went backwards) get last+1 instead, so
// ids stay unique and strictly increasing.
type idGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIDGenerator(now func() time.Time) *idGenerator {
	if now == nil {
		now = time.Now
	}
	return &idGenerator{now: now}
}

// observe raises the lower bound to an id that already exists
func (g *idGenerator) observe(id ID) {
	g.mu.Lock()
	if int64(id) > g.last {
		g.last = int64(id)
	}
	g.mu.Unlock()
}

func (g *idGenerator) next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return ID(n)
}

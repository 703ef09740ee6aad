// Package idgen issues post identifiers.
//
// Identifiers keep the historical shape of the blog store (the decimal
// millisecond epoch at creation time) so existing files stay readable, but
// the generator never hands out the same value twice: when the clock has not
// advanced past the last issued value it returns last+1 instead.
package idgen

import (
	"strconv"
	"sync"
	"time"
)

type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock is used by tests to pin the clock.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Observe raises the floor of the generator to id when id is numeric.
// Non-numeric ids are ignored.
func (g *Generator) Observe(id string) {
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if v > g.last {
		g.last = v
	}
	g.mu.Unlock()
}

func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.now().UnixMilli()
	if v <= g.last {
		v = g.last + 1
	}
	g.last = v
	return strconv.FormatInt(v, 10)
}

package model

import (
	"sync"
	"time"
)

// Task is the domain model for a to-do entry.
// The JSON shape matches what the mobile app and the backend already exchange.
type Task struct {
	ID    int64  `json:"id"`
	Title string `json:"titulo"`
}

// IDGen hands out millisecond-shaped ids that never repeat, even when the
// clock does not move between two calls.
type IDGen struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGen returns a generator driven by now (time.Now when nil).
func NewIDGen(now func() time.Time) *IDGen {
	if now == nil {
		now = time.Now
	}
	return &IDGen{now: now}
}

// Next returns max(now in ms, last+1).
func (g *IDGen) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Seed makes sure future ids are greater than every id in tasks.
func (g *IDGen) Seed(tasks []Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range tasks {
		if t.ID > g.last {
			g.last = t.ID
		}
	}
}

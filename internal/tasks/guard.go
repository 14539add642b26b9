package tasks

import (
	"sync"
	"sync/atomic"
)

// Guard allows one in-flight run per task kind. The zero value is idle.
type Guard struct {
	running atomic.Bool
	mu      sync.Mutex
}

// TryAcquire moves the guard to running. It returns false without blocking
// when a run is already in flight.
func (g *Guard) TryAcquire() bool {
	if g.running.Load() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running.Load() {
		return false
	}
	g.running.Store(true)
	return true
}

// Release returns the guard to idle.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running.Store(false)
}

// Running reports whether a run is in flight.
func (g *Guard) Running() bool {
	return g.running.Load()
}

package musiclink

import (
	"context"
	"sync"
)

// Gate is a process-wide open/closed signal. While closed, every Wait call
// blocks until the gate is opened again. The zero value is not usable; use NewGate.
type Gate struct {
	mu     sync.Mutex
	opened chan struct{} // closed while the gate is open
}

// NewGate returns an open gate.
func NewGate() *Gate {
	ch := make(chan struct{})
	close(ch)
	return &Gate{opened: ch}
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.opened
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close blocks subsequent waiters. Closing a closed gate is a no-op.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.opened:
		g.opened = make(chan struct{})
	default:
	}
}

// Open releases every waiter. Opening an open gate is a no-op.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.opened:
	default:
		close(g.opened)
	}
}

// IsOpen reports the current state.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	select {
	case <-g.opened:
		return true
	default:
		return false
	}
}

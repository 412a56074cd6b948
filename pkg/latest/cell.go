// Package latest provides a single-slot "latest value wins" cell.
//
// Producers overwrite the slot on every publish; consumers read the most
// recent value without ever blocking the producer. A monotonic sequence
// number guarantees a reader never observes an older value after a newer
// one, and lets pollers skip values they have already seen.
package latest

import "sync"

// Cell holds the most recently published value of type T.
// Create with NewCell.
type Cell[T any] struct {
	mu    sync.RWMutex
	value T
	seq   uint64

	// waiters are closed-and-replaced on each publish
	notify chan struct{}
}

// NewCell returns an empty cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{notify: make(chan struct{})}
}

// Publish stores v as the latest value, dropping any previous one.
func (c *Cell[T]) Publish(v T) {
	c.mu.Lock()
	c.value = v
	c.seq++
	if c.notify != nil {
		close(c.notify)
	}
	c.notify = make(chan struct{})
	c.mu.Unlock()
}

// Load returns the latest value and its sequence number.
// ok is false while the cell is empty.
func (c *Cell[T]) Load() (v T, seq uint64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.seq, c.seq > 0
}

// LoadNewer returns the latest value only if its sequence is greater
// than after. Used by pollers to skip values they already processed.
func (c *Cell[T]) LoadNewer(after uint64) (v T, seq uint64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.seq <= after {
		var zero T
		return zero, after, false
	}
	return c.value, c.seq, true
}

// Seq returns the current sequence number (0 when empty).
func (c *Cell[T]) Seq() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// Changed returns a channel that is closed on the next publish.
// Callers select on it together with their context.
func (c *Cell[T]) Changed() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notify
}

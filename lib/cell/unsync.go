package cell

import (
	"runtime"
)

// AcceptRaces is the explicit marker required to construct an UnsynchronizedCell.
// Passing it states that the caller knows concurrent use loses updates.
type AcceptRaces struct{}

// UnsynchronizedCell is a mutable value without any coordination.
// Concurrent writers interleave at arbitrary granularity, so N goroutines doing K
// increments each end up with a value <= N*K. Never use it for real shared state.
type UnsynchronizedCell[T any] struct {
	value T
}

// NewUnsynchronized creates an unguarded cell holding the given initial value.
func NewUnsynchronized[T any](_ AcceptRaces, value T) *UnsynchronizedCell[T] {
	return &UnsynchronizedCell[T]{value: value}
}

// Load reads the value without synchronization.
func (c *UnsynchronizedCell[T]) Load() T {
	return c.value
}

// Store writes the value without synchronization.
func (c *UnsynchronizedCell[T]) Store(value T) {
	c.value = value
}

// Update performs a non-atomic read-modify-write.
func (c *UnsynchronizedCell[T]) Update(fn func(T) T) {
	v := c.value
	c.value = fn(v)
}

// UpdateYield is Update with a scheduling yield between the read and the write.
// Any goroutine scheduled in between works on the same stale value, which makes
// lost updates reproducible even with few goroutines.
func (c *UnsynchronizedCell[T]) UpdateYield(fn func(T) T) {
	v := c.value
	runtime.Gosched()
	c.value = fn(v)
}

package cell

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// SharedCell holds a single value of type T behind an exclusive lock.
// The zero value is not usable, create cells with New.
type SharedCell[T any] struct {
	sem      *semaphore.Weighted
	poisoned atomic.Bool
	value    T
}

// New creates a shared cell holding the given initial value.
func New[T any](value T) *SharedCell[T] {
	return &SharedCell[T]{
		sem:   semaphore.NewWeighted(1),
		value: value,
	}
}

// Acquire blocks until the caller has exclusive access to the value or ctx is done.
//
// The guard must be released with `defer guard.Release()` placed right after the
// error check. Only then does a panic of the holder poison the cell. A Release called
// from inside another deferred func frees the lock without poisoning, and a holder
// that panics with no deferred Release leaves the cell locked for good, so every
// later Acquire blocks until its ctx is done. Prefer Do, which gets this right.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *SharedCell[T]) Acquire(ctx context.Context) (*Guard[T], error) {
	if c.poisoned.Load() {
		return nil, NewError(RetCPoisoned, "lock poisoned", nil)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, NewError(RetCCancelled, "acquire cancelled", err)
	}

	// the previous holder may have poisoned the cell while we were waiting
	if c.poisoned.Load() {
		c.sem.Release(1)
		return nil, NewError(RetCPoisoned, "lock poisoned", nil)
	}

	return &Guard[T]{cell: c}, nil
}

// TryAcquire returns a guard if the cell is free right now.
// The boolean is false if another goroutine holds the cell.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *SharedCell[T]) TryAcquire() (*Guard[T], bool, error) {
	if c.poisoned.Load() {
		return nil, false, NewError(RetCPoisoned, "lock poisoned", nil)
	}
	if !c.sem.TryAcquire(1) {
		return nil, false, nil
	}
	if c.poisoned.Load() {
		c.sem.Release(1)
		return nil, false, NewError(RetCPoisoned, "lock poisoned", nil)
	}
	return &Guard[T]{cell: c}, true, nil
}

// Do acquires the cell, calls fn with a pointer to the value and releases the cell
// on every exit path. A panic inside fn poisons the cell and is re-raised. This is
// the recommended way to use a cell, it cannot get the release wrong.
func (c *SharedCell[T]) Do(ctx context.Context, fn func(value *T) error) error {
	guard, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	return fn(guard.Value())
}

// IsPoisoned returns true if a holder panicked while holding the cell.
func (c *SharedCell[T]) IsPoisoned() bool {
	return c.poisoned.Load()
}

// --------------------------------------------------------------------------
// Guard
// --------------------------------------------------------------------------

// Guard is the token granting exclusive access to the value of a SharedCell.
// It is owned by the goroutine that acquired it and is not safe for concurrent use.
//
// Poisoning relies on recover, which only works in a function deferred directly:
//
//	g, err := cell.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer g.Release() // poisons the cell if the holder panics
//
//	defer func() { g.Release() }() // frees the lock, never poisons
type Guard[T any] struct {
	cell     *SharedCell[T]
	released bool
}

// Value returns a pointer to the guarded value. The pointer must not be used after
// Release.
func (g *Guard[T]) Value() *T {
	if g.released {
		panic("cell: guard used after release")
	}
	return &g.cell.value
}

// Load returns a copy of the guarded value.
func (g *Guard[T]) Load() T {
	return *g.Value()
}

// Store replaces the guarded value.
func (g *Guard[T]) Store(value T) {
	*g.Value() = value
}

// Release gives up exclusive access. Calling it more than once is a no-op.
//
// When Release is deferred directly (defer guard.Release()) and the holder is
// panicking, the cell is poisoned before the lock is freed and the panic continues.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true

	// recover only sees the panic if Release is the deferred function itself
	if r := recover(); r != nil {
		g.cell.poisoned.Store(true)
		g.cell.sem.Release(1)
		panic(r)
	}

	g.cell.sem.Release(1)
}

package cell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExclusiveAccess verifies that at most one goroutine holds the guard at a time
func TestExclusiveAccess(t *testing.T) {
	c := New[int](0)

	const workers = 50
	const iterations = 200

	var inside, maxInside int32
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				err := c.Do(context.Background(), func(v *int) error {
					cur := atomic.AddInt32(&inside, 1)
					for {
						prev := atomic.LoadInt32(&maxInside)
						if cur <= prev || atomic.CompareAndSwapInt32(&maxInside, prev, cur) {
							break
						}
					}
					*v++
					atomic.AddInt32(&inside, -1)
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	guard, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer guard.Release()

	assert.Equal(t, workers*iterations, guard.Load())
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

// TestReleaseIdempotent checks that releasing twice does not free the lock twice
func TestReleaseIdempotent(t *testing.T) {
	c := New[string]("a")

	guard, err := c.Acquire(context.Background())
	require.NoError(t, err)
	guard.Store("b")
	guard.Release()
	guard.Release()

	first, ok, err := c.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", first.Load())

	// a second release of the old guard must not unlock the cell held by first
	guard.Release()
	_, ok, err = c.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok, "cell should still be held")

	first.Release()
}

// TestGuardUseAfterRelease ensures a released guard can no longer touch the value
func TestGuardUseAfterRelease(t *testing.T) {
	c := New[int](1)
	guard, err := c.Acquire(context.Background())
	require.NoError(t, err)
	guard.Release()

	assert.Panics(t, func() { guard.Store(2) })
}

// TestAcquireCancelled checks that a blocked acquire returns when its context is done
func TestAcquireCancelled(t *testing.T) {
	c := New[int](0)

	holder, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrPoisoned))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

// TestTryAcquire checks the non-blocking acquire
func TestTryAcquire(t *testing.T) {
	c := New[int](0)

	guard, ok, err := c.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok)

	guard.Release()

	guard, ok, err = c.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	guard.Release()
}

// panicWhileHolding acquires the cell and panics with a deferred release pending.
// It returns the recovered panic value.
func panicWhileHolding(t *testing.T, c *SharedCell[int]) (recovered any) {
	t.Helper()
	defer func() { recovered = recover() }()

	guard, err := c.Acquire(context.Background())
	require.NoError(t, err)
	defer guard.Release()

	*guard.Value() = 42
	panic("worker died")
}

// TestPoisoning verifies that a panic while holding the guard poisons the cell
func TestPoisoning(t *testing.T) {
	c := New[int](0)

	r := panicWhileHolding(t, c)
	assert.Equal(t, "worker died", r, "panic must propagate past Release")
	assert.True(t, c.IsPoisoned())

	_, err := c.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPoisoned))

	_, ok, err := c.TryAcquire()
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrPoisoned))

	err = c.Do(context.Background(), func(*int) error { return nil })
	assert.True(t, errors.Is(err, ErrPoisoned))
}

// TestPoisoningWakesWaiters checks that goroutines already waiting see the poisoning
func TestPoisoningWakesWaiters(t *testing.T) {
	c := New[int](0)

	holder, err := c.Acquire(context.Background())
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, err := c.Acquire(context.Background())
		result <- err
	}()

	// let the waiter block on the lock
	time.Sleep(20 * time.Millisecond)

	func() {
		defer func() { _ = recover() }()
		defer holder.Release()
		panic("holder died")
	}()

	select {
	case err := <-result:
		assert.True(t, errors.Is(err, ErrPoisoned))
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken after poisoning")
	}
}

// TestDoPanicPoisons checks that Do poisons the cell if the callback panics
func TestDoPanicPoisons(t *testing.T) {
	c := New[int](0)

	assert.PanicsWithValue(t, "boom", func() {
		_ = c.Do(context.Background(), func(*int) error { panic("boom") })
	})
	assert.True(t, c.IsPoisoned())
}

// TestDoReturnsCallbackError checks that callback errors pass through and do not poison
func TestDoReturnsCallbackError(t *testing.T) {
	c := New[int](0)
	sentinel := errors.New("intentional")

	err := c.Do(context.Background(), func(*int) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, c.IsPoisoned())
}

// TestErrorString checks the error formatting
func TestErrorString(t *testing.T) {
	err := NewError(RetCCancelled, "acquire cancelled", context.Canceled)
	assert.Equal(t, "CellError (code Cancelled): acquire cancelled: context canceled", err.Error())
	assert.Equal(t, "CellError (code Poisoned): lock poisoned", ErrPoisoned.Error())
}

// TestIndirectReleaseDoesNotPoison pins the documented contract: a Release called from
// inside another deferred func frees the lock but cannot see the panic
func TestIndirectReleaseDoesNotPoison(t *testing.T) {
	c := New[int](0)

	assert.Panics(t, func() {
		g, err := c.Acquire(context.Background())
		require.NoError(t, err)
		defer func() { g.Release() }()
		panic("holder died")
	})

	assert.False(t, c.IsPoisoned())
	g, ok, err := c.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok, "indirect release must still free the lock")
	g.Release()
}

// TestPanicWithoutReleaseKeepsCellLocked shows why the release must be deferred:
// waiters block until their context is done
func TestPanicWithoutReleaseKeepsCellLocked(t *testing.T) {
	c := New[int](0)

	assert.Panics(t, func() {
		_, err := c.Acquire(context.Background())
		require.NoError(t, err)
		panic("holder died")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Acquire(ctx)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.False(t, c.IsPoisoned())
}

// Package cell implements the two leaf primitives every workload of dSync is built on:
// a lock-protected SharedCell and its intentionally broken counterpart, the
// UnsynchronizedCell.
//
// SharedCell:
//
//	A SharedCell owns exactly one value. Access is only possible through a Guard that
//	is obtained with Acquire and given back with Release. While a Guard is held no
//	other goroutine can observe or mutate the value.
//
//	- Blocking: Acquire blocks until the cell is free or the context is done.
//	- Ordering: waiters are served in FIFO order (the lock is a weighted semaphore
//	  of size one), so no worker starves for the bounded worker counts used here.
//	- Release: Release is idempotent. Deferring it covers every exit path.
//	- Poisoning: if the holder panics while a deferred Release is pending, the
//	  cell is marked as poisoned and the panic continues. Every later Acquire
//	  fails with ErrPoisoned. There is no way to recover a poisoned cell.
//
// UnsynchronizedCell:
//
//	An UnsynchronizedCell offers unguarded read-modify-write access to a value and
//	gives no guarantee at all when used from more than one goroutine. It only
//	exists as a negative baseline to demonstrate lost updates. Its constructor
//	requires the AcceptRaces marker so every use is visible at the call site.
//
// Usage Example:
//
//	balance := cell.New[int64](1000)
//
//	guard, err := balance.Acquire(ctx)
//	if err != nil {
//	    return err // cancelled or poisoned
//	}
//	defer guard.Release()
//	*guard.Value() -= 1
//
// Thread Safety:
//
//	SharedCell and its Acquire/TryAcquire/Do methods are safe for concurrent use.
//	A Guard belongs to the goroutine that acquired it and must not be shared.
//	UnsynchronizedCell is not safe for concurrent use, by definition.
package cell

package counter

import (
	"context"

	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("counter")

// ICounter defines the interface of an increment-only integer shared by many workers.
type ICounter interface {
	// Increment adds one to the counter.
	Increment(ctx context.Context) (err error)
	// Load returns the current value.
	Load(ctx context.Context) (value int64, err error)
}

// --------------------------------------------------------------------------
// AtomicCounter
// --------------------------------------------------------------------------

// AtomicCounter is a counter whose every increment goes through a SharedCell.
type AtomicCounter struct {
	value *cell.SharedCell[int64]
}

// NewAtomicCounter creates a counter starting at zero.
func NewAtomicCounter() *AtomicCounter {
	return &AtomicCounter{value: cell.New[int64](0)}
}

// Increment acquires the cell, adds one and releases it.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *AtomicCounter) Increment(ctx context.Context) error {
	return c.value.Do(ctx, func(v *int64) error {
		*v++
		return nil
	})
}

// Load returns the value under the lock.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *AtomicCounter) Load(ctx context.Context) (int64, error) {
	var value int64
	err := c.value.Do(ctx, func(v *int64) error {
		value = *v
		return nil
	})
	return value, err
}

// --------------------------------------------------------------------------
// RacyCounter
// --------------------------------------------------------------------------

// RacyCounter increments an UnsynchronizedCell and loses updates under contention.
type RacyCounter struct {
	value *cell.UnsynchronizedCell[int64]
	widen bool
}

// RacyOption configures a RacyCounter.
type RacyOption func(*RacyCounter)

// WithWidenedWindow yields to the scheduler between the read and the write of every
// increment, which makes lost updates show up reliably.
func WithWidenedWindow() RacyOption {
	return func(c *RacyCounter) {
		c.widen = true
	}
}

// NewRacyCounter creates an unsynchronized counter starting at zero.
func NewRacyCounter(races cell.AcceptRaces, opts ...RacyOption) *RacyCounter {
	c := &RacyCounter{value: cell.NewUnsynchronized[int64](races, 0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Increment performs an unguarded read-modify-write. It never fails.
//
// Thread-safety: NOT thread-safe, this is the point of this type.
func (c *RacyCounter) Increment(_ context.Context) error {
	inc := func(v int64) int64 { return v + 1 }
	if c.widen {
		c.value.UpdateYield(inc)
	} else {
		c.value.Update(inc)
	}
	return nil
}

// Load returns the value without synchronization. Only meaningful once all writers
// have been joined.
func (c *RacyCounter) Load(_ context.Context) (int64, error) {
	return c.value.Load(), nil
}

// --------------------------------------------------------------------------
// Workload
// --------------------------------------------------------------------------

// Run lets every worker of p call Increment increments times and returns the final
// counter value once all workers are joined. Worker errors are returned together with
// the value that was reached.
func Run(ctx context.Context, p *pool.Pool, c ICounter, increments int) (int64, error) {
	runErr := p.Run(ctx, func(ctx context.Context, id int) error {
		for i := 0; i < increments; i++ {
			if err := c.Increment(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	value, err := c.Load(ctx)
	if err != nil {
		if runErr != nil {
			return 0, runErr
		}
		return 0, err
	}

	expected := int64(p.Workers()) * int64(increments)
	if value != expected {
		log.Infof("counter lost %d of %d updates", expected-value, expected)
	}
	return value, runErr
}

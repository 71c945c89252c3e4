package ring

import (
	"context"
	"sync"
	"time"
)

// Timing configures the delays of the philosopher loop.
type Timing struct {
	Think time.Duration // time spent thinking before getting hungry
	Reach time.Duration // time between taking the first and the second fork
	Eat   time.Duration // time spent eating while holding both forks
}

// DefaultTiming returns 500ms thinking, 10ms reaching and 1s eating.
func DefaultTiming() Timing {
	return Timing{Think: 500 * time.Millisecond, Reach: 10 * time.Millisecond, Eat: time.Second}
}

// Hooks are instrumentation points of the philosopher loop.
type Hooks struct {
	// BeforeSecond is called while holding the first fork, right before reaching for
	// the second one. It must return once ctx is done.
	BeforeSecond func(ctx context.Context, seat int)
}

// Philosopher is the state machine of one seat.
type Philosopher struct {
	seat    int
	ring    *ResourceRing
	policy  AcquisitionPolicy
	timing  Timing
	hooks   Hooks
	monitor *Monitor
}

// Dine loops through thinking, hunger and eating until ctx is done. A cancelled
// context ends Dine without error, every fork it held is released by then. Other
// errors, like a poisoned fork, are returned.
func (p *Philosopher) Dine(ctx context.Context) error {
	defer p.monitor.transition(p.seat, Idle)

	p.monitor.transition(p.seat, Thinking)
	for {
		if !pause(ctx, p.timing.Think) {
			return nil
		}

		p.monitor.transition(p.seat, Hungry)
		if err := p.eat(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// eat takes both forks, eats and puts them down again. On success the seat is
// Thinking afterwards.
func (p *Philosopher) eat(ctx context.Context) (err error) {
	if err = p.policy.Enter(ctx, p.seat); err != nil {
		return err
	}
	defer p.policy.Leave(p.seat)

	first, second := p.policy.Order(p.seat)

	g1, err := p.ring.Fork(first).Acquire(ctx)
	if err != nil {
		return err
	}
	defer g1.Release()
	p.monitor.transition(p.seat, HoldingLeft)

	if !pause(ctx, p.timing.Reach) {
		return ctx.Err()
	}
	if p.hooks.BeforeSecond != nil {
		p.hooks.BeforeSecond(ctx, p.seat)
	}

	g2, err := p.ring.Fork(second).Acquire(ctx)
	if err != nil {
		return err
	}
	defer g2.Release()

	p.monitor.transition(p.seat, Eating)
	// runs before the releases above, a neighbour never sees this seat Eating
	// while holding the shared fork itself
	defer func() {
		if err != nil {
			p.monitor.transition(p.seat, Idle)
		} else {
			p.monitor.transition(p.seat, Thinking)
		}
	}()

	*g1.Value()++
	*g2.Value()++

	if !pause(ctx, p.timing.Eat) {
		return ctx.Err()
	}
	p.monitor.meal(p.seat)
	return nil
}

// pause sleeps for d and returns false if ctx was done first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Barrier returns a BeforeSecond hook that holds the first n callers until all n
// arrived. Later callers pass through. Placed on a naive ring of n seats it makes
// every philosopher hold its left fork before anyone reaches for a right one.
func Barrier(n int) func(ctx context.Context, seat int) {
	var arrived int
	var mu sync.Mutex
	release := make(chan struct{})

	return func(ctx context.Context, _ int) {
		mu.Lock()
		arrived++
		if arrived == n {
			close(release)
		}
		mu.Unlock()

		select {
		case <-release:
		case <-ctx.Done():
		}
	}
}

package ring

import (
	"context"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dSync/lib/cell"
	"golang.org/x/sync/semaphore"
)

// AcquisitionPolicy decides how a philosopher takes its two forks.
type AcquisitionPolicy interface {
	// Name identifies the policy in logs and metrics.
	Name() string
	// Order returns the fork to take first and the fork to take second for a seat.
	Order(seat int) (first, second int)
	// Enter is called before the first fork is taken and may block.
	Enter(ctx context.Context, seat int) error
	// Leave is called once both forks were put down. It is only called when Enter
	// succeeded.
	Leave(seat int)
}

// Policy names accepted by ParsePolicy.
const (
	PolicyNaive      = "naive"
	PolicyOrdered    = "ordered"
	PolicyArbitrator = "arbitrator"
)

// ParsePolicy creates the policy with the given name for a ring of n seats.
func ParsePolicy(name string, n int) (AcquisitionPolicy, error) {
	switch strings.ToLower(name) {
	case PolicyNaive:
		return NewNaivePolicy(n), nil
	case PolicyOrdered, "":
		return NewOrderedPolicy(n), nil
	case PolicyArbitrator:
		return NewArbitrator(n), nil
	default:
		return nil, fmt.Errorf("ring: unknown policy %q (want %s, %s or %s)",
			name, PolicyNaive, PolicyOrdered, PolicyArbitrator)
	}
}

// ---- Naive ----

// NaivePolicy always takes the left fork first. It can deadlock.
type NaivePolicy struct {
	n int
}

// NewNaivePolicy creates the left-then-right policy for n seats.
func NewNaivePolicy(n int) *NaivePolicy {
	return &NaivePolicy{n: n}
}

func (p *NaivePolicy) Name() string { return PolicyNaive }

func (p *NaivePolicy) Order(seat int) (first, second int) {
	return seats(seat, p.n)
}

func (p *NaivePolicy) Enter(context.Context, int) error { return nil }

func (p *NaivePolicy) Leave(int) {}

// ---- Ordered ----

// OrderedPolicy takes the fork with the lower index first. All philosophers agree on
// a global fork order, so no cycle of waiters can form.
type OrderedPolicy struct {
	n int
}

// NewOrderedPolicy creates the resource ordering policy for n seats.
func NewOrderedPolicy(n int) *OrderedPolicy {
	return &OrderedPolicy{n: n}
}

func (p *OrderedPolicy) Name() string { return PolicyOrdered }

func (p *OrderedPolicy) Order(seat int) (first, second int) {
	left, right := seats(seat, p.n)
	if right < left {
		return right, left
	}
	return left, right
}

func (p *OrderedPolicy) Enter(context.Context, int) error { return nil }

func (p *OrderedPolicy) Leave(int) {}

// ---- Arbitrator ----

// Arbitrator takes the left fork first but admits at most floor(n/2) philosophers
// between Enter and Leave. Fewer hungry philosophers than forks cannot close the cycle.
type Arbitrator struct {
	n     int
	limit int64
	seats *semaphore.Weighted
}

// NewArbitrator creates an arbitrator for n seats.
func NewArbitrator(n int) *Arbitrator {
	limit := int64(n / 2)
	if limit < 1 {
		limit = 1
	}
	return &Arbitrator{n: n, limit: limit, seats: semaphore.NewWeighted(limit)}
}

func (a *Arbitrator) Name() string { return PolicyArbitrator }

func (a *Arbitrator) Order(seat int) (first, second int) {
	return seats(seat, a.n)
}

// Enter blocks until the arbitrator admits the seat or ctx is done.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (a *Arbitrator) Enter(ctx context.Context, seat int) error {
	if err := a.seats.Acquire(ctx, 1); err != nil {
		return cell.NewError(cell.RetCCancelled, fmt.Sprintf("seat %d not admitted", seat), err)
	}
	return nil
}

// Leave frees the admission of a seat.
func (a *Arbitrator) Leave(int) {
	a.seats.Release(1)
}

// Limit returns how many philosophers are admitted at most.
func (a *Arbitrator) Limit() int {
	return int(a.limit)
}

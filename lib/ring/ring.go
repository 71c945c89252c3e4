package ring

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("ring")

// ErrTooFewSeats is returned for rings with fewer than two seats.
var ErrTooFewSeats = errors.New("ring: a ring needs at least two seats")

// ResourceRing is a ring of N forks shared by N philosophers.
type ResourceRing struct {
	forks []*cell.SharedCell[uint64]
}

// New creates a ring with n forks. n must be at least 2.
func New(n int) (*ResourceRing, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSeats, n)
	}

	forks := make([]*cell.SharedCell[uint64], n)
	for i := range forks {
		forks[i] = cell.New[uint64](0)
	}
	return &ResourceRing{forks: forks}, nil
}

// Len returns the number of forks, which equals the number of seats.
func (r *ResourceRing) Len() int {
	return len(r.forks)
}

// Fork returns the fork with index i. Its value counts how often it was used to eat.
func (r *ResourceRing) Fork(i int) *cell.SharedCell[uint64] {
	return r.forks[i]
}

// Seats returns the left and right fork index of seat i.
func (r *ResourceRing) Seats(i int) (left, right int) {
	return seats(i, len(r.forks))
}

// Uses returns the use count of every fork.
func (r *ResourceRing) Uses(ctx context.Context) ([]uint64, error) {
	uses := make([]uint64, len(r.forks))
	for i, fork := range r.forks {
		g, err := fork.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		uses[i] = g.Load()
		g.Release()
	}
	return uses, nil
}

func seats(i, n int) (left, right int) {
	return i, (i + 1) % n
}

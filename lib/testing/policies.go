package testing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dSync/lib/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PolicyFactory creates a policy for a ring of n seats.
type PolicyFactory func(n int) ring.AcquisitionPolicy

// fastTiming keeps the philosophers busy enough to contend for forks.
var fastTiming = ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: 2 * time.Millisecond}

// RunPolicyTests checks a deadlock free policy: every philosopher eats within a
// bounded window and no two neighbours are ever seen eating at once.
func RunPolicyTests(t *testing.T, name string, factory PolicyFactory) {
	t.Run(name, func(t *testing.T) {
		for _, n := range []int{2, 3, 5, 8} {
			n := n
			t.Run(fmt.Sprintf("Seats%d", n), func(t *testing.T) {
				testEveryoneEats(t, factory, n)
			})
		}

		t.Run("CancelWhileHungry", func(t *testing.T) {
			testCancelWhileHungry(t, factory)
		})
	})
}

func testEveryoneEats(t *testing.T, factory PolicyFactory, n int) {
	r, err := ring.New(n)
	require.NoError(t, err)

	table := ring.NewTable(r, factory(n), ring.Config{Timing: fastTiming})
	monitor := table.Monitor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runErr = table.Run(ctx)
	}()

	var violations atomic.Int64
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			if monitor.AdjacentEating() {
				violations.Add(1)
			}
			time.Sleep(50 * time.Microsecond)
		}
	}()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) && !everyoneAte(monitor.Meals()) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	require.NoError(t, runErr)
	assert.True(t, everyoneAte(monitor.Meals()), "meals: %v", monitor.Meals())
	assert.Zero(t, violations.Load(), "neighbours seen eating at once")

	for seat, s := range monitor.Snapshot() {
		assert.Equal(t, ring.Idle, s, "seat %d", seat)
	}
	assertForksFree(t, r)

	uses, err := r.Uses(context.Background())
	require.NoError(t, err)
	var total uint64
	for _, u := range uses {
		total += u
	}
	// a meal interrupted by the cancellation used its forks without being counted
	assert.GreaterOrEqual(t, total, 2*monitor.Progress())
	assert.LessOrEqual(t, total, 2*(monitor.Progress()+uint64(n)))
}

func testCancelWhileHungry(t *testing.T, factory PolicyFactory) {
	r, err := ring.New(5)
	require.NoError(t, err)

	// long meals keep most philosophers waiting for a fork
	timing := ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	monitor, err := ring.Run(ctx, r, factory(5), ring.Config{Timing: timing})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, monitor.Progress())
	assertForksFree(t, r)
}

func everyoneAte(meals []uint64) bool {
	for _, m := range meals {
		if m == 0 {
			return false
		}
	}
	return true
}

func assertForksFree(t *testing.T, r *ring.ResourceRing) {
	for i := 0; i < r.Len(); i++ {
		g, ok, err := r.Fork(i).TryAcquire()
		require.NoError(t, err)
		if assert.True(t, ok, "fork %d still held", i) {
			g.Release()
		}
	}
}

package ring_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/ring"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := ring.New(1)
	assert.ErrorIs(t, err, ring.ErrTooFewSeats)
	_, err = ring.New(0)
	assert.ErrorIs(t, err, ring.ErrTooFewSeats)

	r, err := ring.New(5)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())

	left, right := r.Seats(0)
	assert.Equal(t, 0, left)
	assert.Equal(t, 1, right)

	left, right = r.Seats(4)
	assert.Equal(t, 4, left)
	assert.Equal(t, 0, right)
}

// TestNaiveDeadlock forces every philosopher to hold its left fork before anyone
// reaches for the right one. The ring must stop making progress, and cancelling the
// context must still free every fork.
func TestNaiveDeadlock(t *testing.T) {
	const n = 5
	r, err := ring.New(n)
	require.NoError(t, err)

	cfg := ring.Config{
		Timing: ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: time.Millisecond},
		Hooks:  ring.Hooks{BeforeSecond: ring.Barrier(n)},
	}
	table := ring.NewTable(r, ring.NewNaivePolicy(n), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- table.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	require.True(t, table.Monitor().AwaitDeadlock(waitCtx, 200*time.Millisecond))

	for seat, s := range table.Monitor().Snapshot() {
		assert.Equal(t, ring.HoldingLeft, s, "seat %d", seat)
	}
	assert.Zero(t, table.Monitor().Progress())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("deadlocked ring did not shut down")
	}

	for seat, s := range table.Monitor().Snapshot() {
		assert.Equal(t, ring.Idle, s, "seat %d", seat)
	}
	for i := 0; i < n; i++ {
		assert.False(t, r.Fork(i).IsPoisoned())
		g, ok, err := r.Fork(i).TryAcquire()
		require.NoError(t, err)
		require.True(t, ok, "fork %d still held", i)
		g.Release()
	}

	m := table.Pool().Metrics()
	assert.Equal(t, uint64(n), m.Succeeded)
}

func TestAwaitDeadlockGivesUp(t *testing.T) {
	r, err := ring.New(3)
	require.NoError(t, err)

	table := ring.NewTable(r, ring.NewOrderedPolicy(3), ring.Config{
		Timing: ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: time.Millisecond},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- table.Run(ctx) }()

	assert.False(t, table.Monitor().AwaitDeadlock(ctx, 50*time.Millisecond))
	require.NoError(t, <-done)
	assert.Positive(t, table.Monitor().Progress())
}

func TestEventsOutput(t *testing.T) {
	r, err := ring.New(2)
	require.NoError(t, err)

	var out bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	cfg := ring.Config{
		Timing: ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: time.Millisecond},
		Events: &out,
	}
	table := ring.NewTable(r, ring.NewOrderedPolicy(2), cfg)

	done := make(chan error, 1)
	go func() { done <- table.Run(ctx) }()

	for {
		meals := table.Monitor().Meals()
		if meals[0] >= 2 && meals[1] >= 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	require.NoError(t, <-done)

	text := out.String()
	for _, line := range []string{"Philosopher 1 is thinking.", "Philosopher 1 is hungry.", "Philosopher 1 is eating.", "Philosopher 2 is eating."} {
		assert.Contains(t, text, line)
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		assert.Regexp(t, `^Philosopher [12] is (thinking|hungry|eating)\.$`, line)
	}
}

func TestPoisonedForkFailsPhilosopher(t *testing.T) {
	r, err := ring.New(3)
	require.NoError(t, err)

	func() {
		defer func() { _ = recover() }()
		_ = r.Fork(1).Do(context.Background(), func(*uint64) error { panic("fork broken") })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = ring.Run(ctx, r, ring.NewOrderedPolicy(3), ring.Config{
		Timing: ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: time.Millisecond},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cell.ErrPoisoned))

	// seats 0 and 1 both need fork 1, seat 2 can keep eating until the deadline
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
}

func TestReport(t *testing.T) {
	r, err := ring.New(3)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	monitor, err := ring.Run(ctx, r, ring.NewArbitrator(3), ring.Config{
		Timing: ring.Timing{Think: time.Millisecond, Reach: time.Millisecond, Eat: time.Millisecond},
		Names:  []string{"Kant", "Hume"},
	})
	require.NoError(t, err)
	defer monitor.Close()

	assert.Equal(t, "Kant", monitor.Name(0))
	assert.Equal(t, "Philosopher 3", monitor.Name(2))

	var out bytes.Buffer
	monitor.WriteReport(&out)
	assert.Contains(t, out.String(), "Kant")
	assert.Contains(t, out.String(), "Fairness: quality=")

	f := monitor.Fairness()
	assert.Equal(t, 3, f.Count)
	assert.Positive(t, f.Quality)
}

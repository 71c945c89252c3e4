package pool

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllWorkersJoined checks that Run only returns after every worker finished
func TestAllWorkersJoined(t *testing.T) {
	const workers = 64

	var done int64
	p := New(Config{Name: "joined", Workers: workers})

	err := p.Run(context.Background(), func(ctx context.Context, id int) error {
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&done, 1)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(workers), atomic.LoadInt64(&done))
	assert.Equal(t, Metrics{Started: workers, Succeeded: workers}, p.Metrics())
}

// TestWorkerIDs checks that every worker receives a distinct id in [0, Workers)
func TestWorkerIDs(t *testing.T) {
	const workers = 16

	var mu sync.Mutex
	seen := make(map[int]bool)

	err := Run(context.Background(), workers, func(ctx context.Context, id int) error {
		mu.Lock()
		defer mu.Unlock()
		seen[id] = true
		return nil
	})

	require.NoError(t, err)
	require.Len(t, seen, workers)
	for id := 0; id < workers; id++ {
		assert.True(t, seen[id], "missing worker id %d", id)
	}
}

// TestErrorsCollected checks that every failure is reported after the join
func TestErrorsCollected(t *testing.T) {
	sentinel := errors.New("intentional")
	var finished int64

	p := New(Config{Name: "errors", Workers: 10})
	err := p.Run(context.Background(), func(ctx context.Context, id int) error {
		defer atomic.AddInt64(&finished, 1)
		if id%2 == 0 {
			return sentinel
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, int64(10), atomic.LoadInt64(&finished))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 5)
	assert.Contains(t, merr.Errors[0].Error(), "worker 0")

	m := p.Metrics()
	assert.Equal(t, uint64(5), m.Failed)
	assert.Equal(t, uint64(5), m.Succeeded)
}

// TestPanicCollected checks that a panicking worker neither crashes the process nor
// stops the other workers
func TestPanicCollected(t *testing.T) {
	var finished int64

	p := New(Config{Name: "panic", Workers: 8})
	err := p.Run(context.Background(), func(ctx context.Context, id int) error {
		if id == 3 {
			panic("worker 3 exploded")
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&finished, 1)
		return nil
	})

	require.Error(t, err)
	var perr *PanicError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Worker)
	assert.Equal(t, "worker 3 exploded", perr.Value)
	assert.NotEmpty(t, perr.Stack)

	assert.Equal(t, int64(7), atomic.LoadInt64(&finished))
	assert.Equal(t, uint64(1), p.Metrics().Panicked)
}

// TestPanicWithErrorUnwraps checks that an error passed to panic can be matched
func TestPanicWithErrorUnwraps(t *testing.T) {
	sentinel := errors.New("fatal")

	err := Run(context.Background(), 1, func(ctx context.Context, id int) error {
		panic(sentinel)
	})

	assert.ErrorIs(t, err, sentinel)
}

// TestCancellation checks that open-ended workers return once the context is done
func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, 4, func(ctx context.Context, id int) error {
			<-ctx.Done()
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// TestDefaults checks the config defaults
func TestDefaults(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, 1, p.Workers())

	var buf bytes.Buffer
	require.NoError(t, p.Run(context.Background(), func(context.Context, int) error { return nil }))
	p.WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `dsync_pool_workers_succeeded_total{pool="default"} 1`)
}

package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPoisonedCounterFailsEveryWorker checks that a poisoned counter surfaces as an
// error of every worker at join time
func TestPoisonedCounterFailsEveryWorker(t *testing.T) {
	c := NewAtomicCounter()

	func() {
		defer func() { _ = recover() }()
		_ = c.value.Do(context.Background(), func(*int64) error { panic("holder died") })
	}()

	p := pool.New(pool.Config{Name: "poisoned", Workers: 4})
	_, err := Run(context.Background(), p, c, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cell.ErrPoisoned))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 4)
}

// TestWorkerPanicPoisonsCounter checks the whole chain: a worker panics while holding
// the counter, the pool collects the panic and the other workers see the poisoning
func TestWorkerPanicPoisonsCounter(t *testing.T) {
	c := NewAtomicCounter()

	err := pool.Run(context.Background(), 1, func(ctx context.Context, id int) error {
		return c.value.Do(ctx, func(v *int64) error {
			*v++
			panic("increment corrupted")
		})
	})
	var perr *pool.PanicError
	require.True(t, errors.As(err, &perr))

	_, err = c.Load(context.Background())
	assert.True(t, errors.Is(err, cell.ErrPoisoned))
}

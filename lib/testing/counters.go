package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dSync/lib/counter"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CounterFactory creates a fresh counter starting at zero.
type CounterFactory func() counter.ICounter

var (
	workerCounts    = []int{1, 10, 100}
	incrementCounts = []int{1, 1000}
)

// RunCounterTests checks that the counter ends at exactly workers*increments.
func RunCounterTests(t *testing.T, name string, factory CounterFactory) {
	t.Run(name, func(t *testing.T) {
		for _, workers := range workerCounts {
			for _, increments := range incrementCounts {
				t.Run(fmt.Sprintf("%dx%d", workers, increments), func(t *testing.T) {
					testExactCount(t, factory(), workers, increments)
				})
			}
		}

		t.Run("StartsAtZero", func(t *testing.T) {
			value, err := factory().Load(context.Background())
			require.NoError(t, err)
			assert.Zero(t, value)
		})

		t.Run("RepeatedRuns", func(t *testing.T) {
			testRepeatedRuns(t, factory())
		})
	})
}

// RunLossyCounterTests checks that the counter never exceeds workers*increments and
// that at least one of `samples` runs ends below it.
func RunLossyCounterTests(t *testing.T, name string, factory CounterFactory, samples int) {
	t.Run(name, func(t *testing.T) {
		const workers, increments = 10, 1000
		expected := int64(workers * increments)

		lossy := 0
		for i := 0; i < samples; i++ {
			p := pool.New(pool.Config{Name: "lossy-counter", Workers: workers})
			value, err := counter.Run(context.Background(), p, factory(), increments)
			require.NoError(t, err)

			assert.LessOrEqual(t, value, expected)
			assert.Positive(t, value)
			if value < expected {
				lossy++
			}
		}

		assert.Greater(t, lossy, 0, "no lost update in %d runs", samples)
	})
}

func testExactCount(t *testing.T, c counter.ICounter, workers, increments int) {
	p := pool.New(pool.Config{Name: "counter", Workers: workers})

	value, err := counter.Run(context.Background(), p, c, increments)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*increments), value)

	m := p.Metrics()
	assert.Equal(t, uint64(workers), m.Succeeded)
}

func testRepeatedRuns(t *testing.T, c counter.ICounter) {
	p := pool.New(pool.Config{Name: "counter", Workers: 8})

	for run := 1; run <= 3; run++ {
		value, err := counter.Run(context.Background(), p, c, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(run*8*100), value)
	}
}

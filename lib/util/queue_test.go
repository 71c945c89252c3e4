package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueueSingleProducerOrder(t *testing.T) {
	var got []int
	q := NewEventQueue(func(v int) { got = append(got, v) })

	for i := 0; i < 1000; i++ {
		require.True(t, q.Push(i))
	}
	q.Close()

	require.Len(t, got, 1000)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestEventQueueManyProducers(t *testing.T) {
	const producers, perProducer = 16, 500

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	total := 0
	q := NewEventQueue(func(v [2]int) {
		total++
		// per producer order must be preserved
		if v[1] <= last[v[0]] {
			t.Errorf("producer %d: %d handled after %d", v[0], v[1], last[v[0]])
		}
		last[v[0]] = v[1]
	})

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push([2]int{p, i})
			}
		}(p)
	}
	wg.Wait()
	q.Close()

	assert.Equal(t, producers*perProducer, total)
	assert.Zero(t, q.Len())
}

func TestEventQueueClosed(t *testing.T) {
	q := NewEventQueue(func(string) {})
	q.Close()
	assert.False(t, q.Push("late"))
	q.Close() // idempotent
}

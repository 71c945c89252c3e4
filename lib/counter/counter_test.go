package counter_test

import (
	"testing"

	"github.com/ValentinKolb/dSync/lib/counter"
	dtesting "github.com/ValentinKolb/dSync/lib/testing"
)

func TestAtomicCounter(t *testing.T) {
	dtesting.RunCounterTests(t, "AtomicCounter", func() counter.ICounter {
		return counter.NewAtomicCounter()
	})
}

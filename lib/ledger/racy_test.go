//go:build !race

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRacyLedgerLosesUpdates checks that the unsynchronized ledger shows anomalies
// (lost debits or credits, or an over-debited account) in at least one of a few runs
func TestRacyLedgerLosesUpdates(t *testing.T) {
	const runs = 10

	anomalies := 0
	for i := 0; i < runs; i++ {
		l := NewRacy(cell.AcceptRaces{}, 1000, 1000, time.Microsecond)
		p := pool.New(pool.Config{Name: "racy-ledger", Workers: 1000})

		balances, err := Run(context.Background(), p, l, A, B)
		require.NoError(t, err)

		if balances != (Balances{A: 0, B: 2000}) {
			anomalies++
		}
	}

	assert.Greater(t, anomalies, 0, "expected the unsynchronized ledger to lose updates")
}

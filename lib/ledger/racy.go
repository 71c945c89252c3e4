package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/dSync/lib/cell"
)

// RacyLedger runs the transfer steps of TransferLedger on unsynchronized cells.
// Concurrent transfers may pass the balance check together, over-debit the account
// and lose debits or credits, so the total drifts. It is a negative baseline.
type RacyLedger struct {
	accounts [2]*cell.UnsynchronizedCell[int64]
	delay    time.Duration
}

// NewRacy creates an unsynchronized ledger.
func NewRacy(races cell.AcceptRaces, initialA, initialB int64, delay time.Duration) *RacyLedger {
	return &RacyLedger{
		accounts: [2]*cell.UnsynchronizedCell[int64]{
			cell.NewUnsynchronized(races, initialA),
			cell.NewUnsynchronized(races, initialB),
		},
		delay: delay,
	}
}

// TransferOne moves one unit without any synchronization.
//
// Thread-safety: NOT thread-safe, this is the point of this type.
func (l *RacyLedger) TransferOne(_ context.Context, from, to Account) (Result, error) {
	if !from.valid() || !to.valid() || from == to {
		return NoOp, fmt.Errorf("%w: %s -> %s", ErrInvalidTransfer, from, to)
	}

	src, dst := l.accounts[from], l.accounts[to]
	if src.Load() <= 0 {
		return NoOp, nil
	}

	src.UpdateYield(func(v int64) int64 { return v - 1 })
	time.Sleep(l.delay)
	dst.UpdateYield(func(v int64) int64 { return v + 1 })
	return Transferred, nil
}

// Snapshot reads both balances without synchronization. Only meaningful once all
// writers have been joined.
func (l *RacyLedger) Snapshot(_ context.Context) (Balances, error) {
	return Balances{A: l.accounts[A].Load(), B: l.accounts[B].Load()}, nil
}

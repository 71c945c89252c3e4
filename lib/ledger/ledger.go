package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dSync/lib/cell"
	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("ledger")

// ErrInvalidTransfer is returned for transfers between the same or unknown accounts.
var ErrInvalidTransfer = errors.New("invalid transfer")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Account names one of the two balances of the ledger.
type Account int

const (
	A Account = iota
	B
)

func (a Account) String() string {
	switch a {
	case A:
		return "A"
	case B:
		return "B"
	default:
		return fmt.Sprintf("Account(%d)", int(a))
	}
}

func (a Account) valid() bool {
	return a == A || a == B
}

// Result tells whether a transfer moved a unit.
type Result int

const (
	NoOp        Result = iota // the debited account had no funds, nothing changed
	Transferred               // one unit was moved
)

func (r Result) String() string {
	if r == Transferred {
		return "Transferred"
	}
	return "NoOp"
}

// LockOrder selects in which order a transfer acquires the two accounts.
type LockOrder int

const (
	LockFromFirst LockOrder = iota // debited account first, then credited account
	LockByAccount                  // A first, then B, regardless of direction
)

// ParseLockOrder converts the CLI representation of a lock order.
func ParseLockOrder(s string) (LockOrder, error) {
	switch s {
	case "from-first", "":
		return LockFromFirst, nil
	case "by-account":
		return LockByAccount, nil
	default:
		return LockFromFirst, fmt.Errorf("invalid lock order %q, must be one of from-first, by-account", s)
	}
}

// Balances is a snapshot of both accounts.
type Balances struct {
	A int64
	B int64
}

// Total returns the sum of both balances.
func (b Balances) Total() int64 {
	return b.A + b.B
}

// ILedger is implemented by TransferLedger and RacyLedger.
type ILedger interface {
	// TransferOne moves one unit from one account to the other.
	TransferOne(ctx context.Context, from, to Account) (res Result, err error)
	// Snapshot returns both balances.
	Snapshot(ctx context.Context) (balances Balances, err error)
}

// --------------------------------------------------------------------------
// TransferLedger
// --------------------------------------------------------------------------

// TransferLedger keeps two balances in SharedCells and preserves their sum.
type TransferLedger struct {
	accounts     [2]*cell.SharedCell[int64]
	delay        time.Duration
	order        LockOrder
	beforeCredit func(from, to Account)

	set         *metrics.Set
	transferred *metrics.Counter
	noops       *metrics.Counter
	aborted     *metrics.Counter
}

// Option configures a TransferLedger.
type Option func(*TransferLedger)

// WithDelay sets the processing delay spent while holding the debited account.
func WithDelay(d time.Duration) Option {
	return func(l *TransferLedger) {
		l.delay = d
	}
}

// WithLockOrder sets the order in which the accounts are acquired.
func WithLockOrder(order LockOrder) Option {
	return func(l *TransferLedger) {
		l.order = order
	}
}

// WithBeforeCredit installs a hook that runs after the debit and the delay, right before
// the credited account is acquired. Tests use it to force interleavings.
func WithBeforeCredit(fn func(from, to Account)) Option {
	return func(l *TransferLedger) {
		l.beforeCredit = fn
	}
}

// New creates a ledger with the given initial balances. The default processing delay
// is one microsecond.
func New(initialA, initialB int64, opts ...Option) *TransferLedger {
	set := metrics.NewSet()
	l := &TransferLedger{
		accounts:    [2]*cell.SharedCell[int64]{cell.New(initialA), cell.New(initialB)},
		delay:       time.Microsecond,
		set:         set,
		transferred: set.GetOrCreateCounter(`dsync_ledger_transfers_total{result="transferred"}`),
		noops:       set.GetOrCreateCounter(`dsync_ledger_transfers_total{result="noop"}`),
		aborted:     set.GetOrCreateCounter(`dsync_ledger_transfers_total{result="aborted"}`),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TransferOne moves one unit from `from` to `to` if `from` has a positive balance.
//
// Thread-safety: This method is thread-safe and meant to be called by many workers at once.
func (l *TransferLedger) TransferOne(ctx context.Context, from, to Account) (Result, error) {
	if !from.valid() || !to.valid() || from == to {
		return NoOp, fmt.Errorf("%w: %s -> %s", ErrInvalidTransfer, from, to)
	}
	if l.order == LockByAccount {
		return l.transferByAccount(ctx, from, to)
	}

	src, err := l.accounts[from].Acquire(ctx)
	if err != nil {
		return NoOp, err
	}
	defer src.Release()

	if src.Load() <= 0 {
		l.noops.Inc()
		return NoOp, nil
	}

	*src.Value()--
	time.Sleep(l.delay) // processing delay, the debited account stays locked

	if l.beforeCredit != nil {
		l.beforeCredit(from, to)
	}

	dst, err := l.accounts[to].Acquire(ctx)
	if err != nil {
		*src.Value()++
		l.aborted.Inc()
		log.Warningf("transfer %s -> %s rolled back: %v", from, to, err)
		return NoOp, err
	}
	defer dst.Release()

	*dst.Value()++
	l.transferred.Inc()
	return Transferred, nil
}

// transferByAccount takes both accounts in account order before touching any balance.
func (l *TransferLedger) transferByAccount(ctx context.Context, from, to Account) (Result, error) {
	first, second := from, to
	if second < first {
		first, second = second, first
	}

	g1, err := l.accounts[first].Acquire(ctx)
	if err != nil {
		return NoOp, err
	}
	defer g1.Release()

	g2, err := l.accounts[second].Acquire(ctx)
	if err != nil {
		return NoOp, err
	}
	defer g2.Release()

	src, dst := g1, g2
	if from != first {
		src, dst = g2, g1
	}

	if src.Load() <= 0 {
		l.noops.Inc()
		return NoOp, nil
	}

	*src.Value()--
	time.Sleep(l.delay)
	if l.beforeCredit != nil {
		l.beforeCredit(from, to)
	}
	*dst.Value()++

	l.transferred.Inc()
	return Transferred, nil
}

// Balance returns the balance of one account.
func (l *TransferLedger) Balance(ctx context.Context, account Account) (int64, error) {
	if !account.valid() {
		return 0, fmt.Errorf("%w: unknown account %s", ErrInvalidTransfer, account)
	}
	guard, err := l.accounts[account].Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer guard.Release()
	return guard.Load(), nil
}

// Snapshot reads both balances while holding both accounts (taken A first), so the
// result is a quiescent point of the ledger.
func (l *TransferLedger) Snapshot(ctx context.Context) (Balances, error) {
	ga, err := l.accounts[A].Acquire(ctx)
	if err != nil {
		return Balances{}, err
	}
	defer ga.Release()

	gb, err := l.accounts[B].Acquire(ctx)
	if err != nil {
		return Balances{}, err
	}
	defer gb.Release()

	return Balances{A: ga.Load(), B: gb.Load()}, nil
}

// Stats returns how many transfers moved a unit, were no-ops and were rolled back.
func (l *TransferLedger) Stats() (transferred, noops, aborted uint64) {
	return l.transferred.Get(), l.noops.Get(), l.aborted.Get()
}

// WritePrometheus writes the ledger counters in Prometheus text format to w.
func (l *TransferLedger) WritePrometheus(w io.Writer) {
	l.set.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Workload
// --------------------------------------------------------------------------

// Run lets every worker of p perform one transfer from `from` to `to` and returns the
// final balances once all workers are joined.
func Run(ctx context.Context, p *pool.Pool, l ILedger, from, to Account) (Balances, error) {
	runErr := p.Run(ctx, func(ctx context.Context, id int) error {
		_, err := l.TransferOne(ctx, from, to)
		return err
	})

	balances, err := l.Snapshot(ctx)
	if err != nil {
		if runErr != nil {
			return Balances{}, runErr
		}
		return Balances{}, err
	}
	return balances, runErr
}

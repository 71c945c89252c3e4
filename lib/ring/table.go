package ring

import (
	"context"
	"fmt"
	"io"

	"github.com/ValentinKolb/dSync/lib/pool"
	"github.com/ValentinKolb/dSync/lib/util"
)

// Config configures a Table.
type Config struct {
	Timing Timing
	Hooks  Hooks
	// Names overrides the display names per seat.
	Names []string
	// Events receives one line per announced transition. Nil disables the output.
	Events io.Writer
}

// Table seats one philosopher per fork of a ring.
type Table struct {
	ring    *ResourceRing
	policy  AcquisitionPolicy
	cfg     Config
	monitor *Monitor
	pool    *pool.Pool
}

// NewTable creates a table. A zero Timing is replaced by DefaultTiming.
func NewTable(r *ResourceRing, policy AcquisitionPolicy, cfg Config) *Table {
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}

	return &Table{
		ring:    r,
		policy:  policy,
		cfg:     cfg,
		monitor: NewMonitor(r.Len(), cfg.Names),
		pool:    pool.New(pool.Config{Name: "ring-" + policy.Name(), Workers: r.Len()}),
	}
}

// Monitor returns the monitor of the table. It can be used while Run is in progress.
func (t *Table) Monitor() *Monitor {
	return t.monitor
}

// Pool returns the worker pool running the philosophers.
func (t *Table) Pool() *pool.Pool {
	return t.pool
}

// Run lets all philosophers dine until ctx is done and returns once every one of
// them has left the table. The error collects the philosophers that failed.
//
// Thread-safety: Run must not be called again before it returned.
func (t *Table) Run(ctx context.Context) error {
	var events *util.EventQueue[Event]
	if t.cfg.Events != nil {
		w := t.cfg.Events
		events = util.NewEventQueue(func(e Event) {
			if e.Announced() {
				fmt.Fprintln(w, e.String())
			}
		})
		t.monitor.sink = func(e Event) { events.Push(e) }
	}

	log.Infof("seating %d philosophers (policy=%s)", t.ring.Len(), t.policy.Name())

	err := t.pool.Run(ctx, func(ctx context.Context, seat int) error {
		p := &Philosopher{
			seat:    seat,
			ring:    t.ring,
			policy:  t.policy,
			timing:  t.cfg.Timing,
			hooks:   t.cfg.Hooks,
			monitor: t.monitor,
		}
		return p.Dine(ctx)
	})

	if events != nil {
		events.Close()
		t.monitor.sink = nil
	}

	log.Infof("table closed after %d meals (policy=%s)", t.monitor.Progress(), t.policy.Name())
	return err
}

// Run seats a philosopher at every fork of r and lets them dine until ctx is done.
// The returned monitor holds the final observations.
func Run(ctx context.Context, r *ResourceRing, policy AcquisitionPolicy, cfg Config) (*Monitor, error) {
	t := NewTable(r, policy, cfg)
	err := t.Run(ctx)
	return t.Monitor(), err
}

package ring

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dSync/lib/util"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
)

// Monitor observes the philosophers of one ring.
type Monitor struct {
	n     int
	names []string

	// snapshot takes the write lock, transitions take the read lock. Transitions of
	// different seats run concurrently, a snapshot sees the states of one instant.
	mu     sync.RWMutex
	states *xsync.MapOf[int, State]

	meals       []atomic.Uint64
	progress    atomic.Uint64
	hungrySince []atomic.Int64 // unix nanos, written by the seat's own philosopher

	registry gometrics.Registry
	hunger   []gometrics.Timer

	sink func(Event)
}

// NewMonitor creates a monitor for n seats. Names default to "Philosopher <seat+1>".
func NewMonitor(n int, names []string) *Monitor {
	m := &Monitor{
		n:           n,
		names:       make([]string, n),
		states:      xsync.NewMapOf[int, State](),
		meals:       make([]atomic.Uint64, n),
		hungrySince: make([]atomic.Int64, n),
		registry:    gometrics.NewRegistry(),
		hunger:      make([]gometrics.Timer, n),
	}

	for i := 0; i < n; i++ {
		if i < len(names) && names[i] != "" {
			m.names[i] = names[i]
		} else {
			m.names[i] = fmt.Sprintf("Philosopher %d", i+1)
		}
		m.states.Store(i, Idle)
		m.hunger[i] = gometrics.GetOrRegisterTimer(fmt.Sprintf("ring.seat.%d.hunger", i), m.registry)
	}
	return m
}

// Name returns the display name of a seat.
func (m *Monitor) Name(seat int) string {
	return m.names[seat]
}

// ---- Recording ----

// transition records the new state of a seat and emits an event if it changed.
func (m *Monitor) transition(seat int, to State) {
	now := time.Now()

	m.mu.RLock()
	from, _ := m.states.LoadAndStore(seat, to)
	m.mu.RUnlock()

	if from == to {
		return
	}

	switch to {
	case Hungry:
		m.hungrySince[seat].Store(now.UnixNano())
	case Eating:
		if since := m.hungrySince[seat].Load(); since != 0 {
			m.hunger[seat].Update(now.Sub(time.Unix(0, since)))
		}
	}

	if m.sink != nil {
		m.sink(Event{Seat: seat, Name: m.names[seat], From: from, To: to, At: now})
	}
}

// meal counts a completed meal of a seat.
func (m *Monitor) meal(seat int) {
	m.meals[seat].Add(1)
	m.progress.Add(1)
}

// ---- Observation ----

// Snapshot returns the state of every seat at one instant.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Monitor) Snapshot() []State {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]State, m.n)
	for i := range states {
		states[i], _ = m.states.Load(i)
	}
	return states
}

// State returns the current state of one seat.
func (m *Monitor) State(seat int) State {
	s, _ := m.states.Load(seat)
	return s
}

// Progress returns the total number of completed meals.
func (m *Monitor) Progress() uint64 {
	return m.progress.Load()
}

// Meals returns the completed meals per seat.
func (m *Monitor) Meals() []uint64 {
	meals := make([]uint64, m.n)
	for i := range meals {
		meals[i] = m.meals[i].Load()
	}
	return meals
}

// AdjacentEating reports whether two neighbours are eating in the current snapshot.
// Neighbours share a fork, so this must never be true.
func (m *Monitor) AdjacentEating() bool {
	return adjacentEating(m.Snapshot())
}

func adjacentEating(states []State) bool {
	for i := range states {
		if states[i] == Eating && states[(i+1)%len(states)] == Eating {
			return true
		}
	}
	return false
}

// AwaitDeadlock polls the monitor until every seat has been HoldingLeft for stall
// without a meal completing, or ctx is done. It returns true if a deadlock was seen.
func (m *Monitor) AwaitDeadlock(ctx context.Context, stall time.Duration) bool {
	interval := stall / 20
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		stuckSince time.Time
		progress   uint64
	)

	for {
		select {
		case <-ctx.Done():
			return false
		case now := <-ticker.C:
			current := m.Progress()
			if !m.allHoldingLeft() || current != progress {
				stuckSince, progress = time.Time{}, current
				continue
			}
			if stuckSince.IsZero() {
				stuckSince = now
				continue
			}
			if now.Sub(stuckSince) >= stall {
				log.Warningf("deadlock: all %d philosophers hold one fork, no meal for %s", m.n, now.Sub(stuckSince))
				return true
			}
		}
	}
}

func (m *Monitor) allHoldingLeft() bool {
	for _, s := range m.Snapshot() {
		if s != HoldingLeft {
			return false
		}
	}
	return true
}

// ---- Reporting ----

// SeatReport summarises one seat.
type SeatReport struct {
	Name       string
	Meals      uint64
	HungerMean time.Duration
	HungerMax  time.Duration
}

// Seats returns a report per seat.
func (m *Monitor) Seats() []SeatReport {
	reports := make([]SeatReport, m.n)
	for i := range reports {
		snap := m.hunger[i].Snapshot()
		reports[i] = SeatReport{
			Name:       m.names[i],
			Meals:      m.meals[i].Load(),
			HungerMean: time.Duration(snap.Mean()),
			HungerMax:  time.Duration(snap.Max()),
		}
	}
	return reports
}

// Fairness computes how evenly the meals were distributed.
func (m *Monitor) Fairness() util.Fairness {
	return util.NewFairness(m.Meals())
}

// WriteReport writes the fairness report to w.
func (m *Monitor) WriteReport(w io.Writer) {
	f := m.Fairness()

	fmt.Fprintf(w, "Meals: %d\n", m.Progress())
	for _, s := range m.Seats() {
		fmt.Fprintf(w, "  %-16s meals=%-5d hunger-mean=%-10s hunger-max=%s\n",
			s.Name, s.Meals, s.HungerMean.Round(time.Millisecond), s.HungerMax.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Fairness: quality=%.3f min=%.0f max=%.0f mean=%.2f stddev=%.2f starved=%d\n",
		f.Quality, f.Min, f.Max, f.Mean, f.StdDeviation, f.Starved)
}

// Close releases the timers of the monitor.
func (m *Monitor) Close() {
	m.registry.UnregisterAll()
}

package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// formatting helpers
// --------------------------------------------------------------------------

type configWriter struct {
	sb strings.Builder
}

func (w *configWriter) section(title string) {
	w.sb.WriteString("\n")
	w.sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func (w *configWriter) field(name, value string) {
	w.sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
}

func (w *configWriter) String() string {
	return w.sb.String()
}

// --------------------------------------------------------------------------
// Counter workload
// --------------------------------------------------------------------------

// CounterConfig configures the shared counter workload.
type CounterConfig struct {
	// Workers is the number of concurrent incrementing goroutines
	Workers int
	// Increments is the number of increments per worker
	Increments int
	// Unsafe selects the unsynchronized baseline counter
	Unsafe bool
}

// DefaultCounterConfig returns 100 workers with 1000 increments each.
func DefaultCounterConfig() CounterConfig {
	return CounterConfig{Workers: 100, Increments: 1000}
}

// Expected returns the final value a correct counter must reach.
func (c *CounterConfig) Expected() int64 {
	return int64(c.Workers) * int64(c.Increments)
}

// String returns a formatted string representation of the configuration
func (c *CounterConfig) String() string {
	var w configWriter
	w.section("Counter Workload")
	w.field("Workers", strconv.Itoa(c.Workers))
	w.field("Increments per Worker", strconv.Itoa(c.Increments))
	w.field("Unsafe", strconv.FormatBool(c.Unsafe))
	return w.String()
}

// --------------------------------------------------------------------------
// Ledger workload
// --------------------------------------------------------------------------

// LedgerConfig configures the transfer ledger workload.
type LedgerConfig struct {
	// Transfers is the number of concurrent one-unit transfers from A to B
	Transfers int
	// InitialA and InitialB are the starting balances
	InitialA int64
	InitialB int64
	// Delay is the simulated processing time spent while holding the debited account
	Delay time.Duration
	// Unsafe selects the unsynchronized baseline ledger
	Unsafe bool
	// LockOrder is one of "from-first" or "by-account"
	LockOrder string
}

// DefaultLedgerConfig returns 1000 transfers between two accounts of 1000 units.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Transfers: 1000,
		InitialA:  1000,
		InitialB:  1000,
		Delay:     time.Microsecond,
		LockOrder: "from-first",
	}
}

// String returns a formatted string representation of the configuration
func (c *LedgerConfig) String() string {
	var w configWriter
	w.section("Ledger Workload")
	w.field("Transfers", strconv.Itoa(c.Transfers))
	w.field("Initial Balance A", strconv.FormatInt(c.InitialA, 10))
	w.field("Initial Balance B", strconv.FormatInt(c.InitialB, 10))
	w.field("Processing Delay", c.Delay.String())
	w.field("Unsafe", strconv.FormatBool(c.Unsafe))
	if !c.Unsafe {
		w.field("Lock Order", c.LockOrder)
	}
	return w.String()
}

// --------------------------------------------------------------------------
// Dining philosophers workload
// --------------------------------------------------------------------------

// DineConfig configures the dining philosophers workload.
type DineConfig struct {
	// Philosophers is the number of seats (and forks) at the table
	Philosophers int
	// Policy is one of "naive", "ordered" or "arbitrator"
	Policy string
	// Think, Reach and Eat are the durations of the respective phases
	Think time.Duration
	Reach time.Duration
	Eat   time.Duration
	// Duration stops the run after the given time, zero means run until interrupted
	Duration time.Duration
	// ForceDeadlock places a barrier between the first and the second fork
	ForceDeadlock bool
	// Stall is how long zero progress must last to be reported as deadlock
	Stall time.Duration
}

// DefaultDineConfig returns five philosophers with the ordered policy.
func DefaultDineConfig() DineConfig {
	return DineConfig{
		Philosophers: 5,
		Policy:       "ordered",
		Think:        500 * time.Millisecond,
		Reach:        10 * time.Millisecond,
		Eat:          1000 * time.Millisecond,
		Stall:        3 * time.Second,
	}
}

// String returns a formatted string representation of the configuration
func (c *DineConfig) String() string {
	var w configWriter
	w.section("Dining Philosophers")
	w.field("Philosophers", strconv.Itoa(c.Philosophers))
	w.field("Policy", c.Policy)
	w.field("Think", c.Think.String())
	w.field("Reach", c.Reach.String())
	w.field("Eat", c.Eat.String())
	if c.Duration > 0 {
		w.field("Duration", c.Duration.String())
	} else {
		w.field("Duration", "until interrupted")
	}
	w.field("Force Deadlock", strconv.FormatBool(c.ForceDeadlock))
	w.field("Stall Window", c.Stall.String())
	return w.String()
}

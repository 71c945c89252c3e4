package ring

import "time"

// State is the activity of a philosopher.
type State int

const (
	// Idle means not seated: before Dine starts or after it returned.
	Idle State = iota
	Thinking
	Hungry
	// HoldingLeft means holding the first fork and reaching for the second. For the
	// naive policy this is always the left fork.
	HoldingLeft
	Eating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Thinking:
		return "thinking"
	case Hungry:
		return "hungry"
	case HoldingLeft:
		return "holding-left"
	case Eating:
		return "eating"
	default:
		return "unknown"
	}
}

// Event describes one state transition of a philosopher.
type Event struct {
	Seat int
	Name string
	From State
	To   State
	At   time.Time
}

// Announced reports whether the transition is one of the three printed ones.
func (e Event) Announced() bool {
	return e.To == Thinking || e.To == Hungry || e.To == Eating
}

// String formats the event as "<name> is <state>."
func (e Event) String() string {
	return e.Name + " is " + e.To.String() + "."
}

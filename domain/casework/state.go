package casework

// State is the lifecycle position of a task. The zero value is not a valid state.
type State string

const (
	StateOpen      State = "open"
	StateClaimed   State = "claimed"
	StateResolved  State = "resolved"
	StateCompleted State = "completed"
)

// Event names a lifecycle transition.
type Event string

const (
	EventCreate   Event = "create"
	EventClaim    Event = "claim"
	EventResolve  Event = "resolve"
	EventComplete Event = "complete"
)

// transition is one row of the lifecycle table.
type transition struct {
	from State
	to   State
}

// transitions is the complete lifecycle table. Create has no source state.
var transitions = map[Event]transition{
	EventCreate:   {from: "", to: StateOpen},
	EventClaim:    {from: StateOpen, to: StateClaimed},
	EventResolve:  {from: StateClaimed, to: StateResolved},
	EventComplete: {from: StateResolved, to: StateCompleted},
}

var stateRank = map[State]int{
	StateOpen:      1,
	StateClaimed:   2,
	StateResolved:  3,
	StateCompleted: 4,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether no further transition is permitted from s.
func (s State) Terminal() bool {
	return s == StateCompleted
}

// Rank orders states along the lifecycle. Unknown states rank 0.
func (s State) Rank() int {
	return stateRank[s]
}

// ParseState converts a label into a State, rejecting anything outside the enum.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", ErrUnknownState
	}
	return st, nil
}

// Source returns the state an event must start from.
func Source(ev Event) (State, bool) {
	t, ok := transitions[ev]
	return t.from, ok
}

// Next returns the target state of ev applied to from, or false when the
// table has no such row.
func Next(from State, ev Event) (State, bool) {
	t, ok := transitions[ev]
	if !ok || t.from != from {
		return "", false
	}
	return t.to, true
}

package casework

import (
	"errors"
	"testing"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		event  Event
		want   State
		wantOK bool
	}{
		{"create", "", EventCreate, StateOpen, true},
		{"claim open", StateOpen, EventClaim, StateClaimed, true},
		{"resolve claimed", StateClaimed, EventResolve, StateResolved, true},
		{"complete resolved", StateResolved, EventComplete, StateCompleted, true},
		{"claim claimed", StateClaimed, EventClaim, "", false},
		{"resolve open", StateOpen, EventResolve, "", false},
		{"complete claimed", StateClaimed, EventComplete, "", false},
		{"complete completed", StateCompleted, EventComplete, "", false},
		{"unknown event", StateOpen, Event("cancel"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.from, tt.event)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Next(%q, %q) = (%q, %v), want (%q, %v)", tt.from, tt.event, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTransitionsOnlyAdvance(t *testing.T) {
	for ev, tr := range transitions {
		if tr.to.Rank() != tr.from.Rank()+1 {
			t.Errorf("%s moves %q -> %q, want a single step forward", ev, tr.from, tr.to)
		}
	}
}

func TestNoTransitionLeavesTerminal(t *testing.T) {
	for ev := range transitions {
		if _, ok := Next(StateCompleted, ev); ok {
			t.Errorf("event %q leaves the terminal state", ev)
		}
	}
	if !StateCompleted.Terminal() {
		t.Error("completed should be terminal")
	}
}

func TestSource(t *testing.T) {
	cases := map[Event]State{
		EventCreate:   "",
		EventClaim:    StateOpen,
		EventResolve:  StateClaimed,
		EventComplete: StateResolved,
	}
	for ev, want := range cases {
		got, ok := Source(ev)
		if !ok || got != want {
			t.Errorf("Source(%q) = %q, %v; want %q, true", ev, got, ok, want)
		}
	}
	if _, ok := Source(Event("reopen")); ok {
		t.Error("Source accepted an unknown event")
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []string{"open", "claimed", "resolved", "completed"} {
		if _, err := ParseState(s); err != nil {
			t.Errorf("ParseState(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "Activo", "pending", "OPEN"} {
		_, err := ParseState(s)
		if !errors.Is(err, ErrUnknownState) {
			t.Errorf("ParseState(%q) error = %v, want ErrUnknownState", s, err)
		}
	}
}

func TestTaskHeldBy(t *testing.T) {
	task := &Task{RequesterID: "r1", MediatorID: "m1"}

	cases := []struct {
		state     State
		requester bool
		mediator  bool
	}{
		{StateOpen, true, false},
		{StateClaimed, true, true},
		{StateResolved, false, false},
		{StateCompleted, false, false},
	}
	for _, c := range cases {
		task.State = c.state
		if got := task.HeldBy("r1", RoleRequester); got != c.requester {
			t.Errorf("%s: requester held = %v, want %v", c.state, got, c.requester)
		}
		if got := task.HeldBy("m1", RoleMediator); got != c.mediator {
			t.Errorf("%s: mediator held = %v, want %v", c.state, got, c.mediator)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	p, err := NormalizePage(0, 0)
	if err != nil || p.Limit != DefaultPageLimit {
		t.Errorf("NormalizePage(0, 0) = %+v, %v", p, err)
	}
	for _, bad := range [][2]int{{-1, 0}, {501, 0}, {10, -1}} {
		if _, err := NormalizePage(bad[0], bad[1]); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("NormalizePage(%d, %d) error = %v, want ErrInvalidInput", bad[0], bad[1], err)
		}
	}
}

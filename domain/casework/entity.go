package casework

import "time"

// Role is fixed when an actor is created.
type Role string

const (
	RoleRequester Role = "requester"
	RoleMediator  Role = "mediator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleMediator, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored or transported label into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Actor is a requester, mediator or admin identity.
//
// ActiveCase is true iff exactly one non-terminal task references the actor in
// its matching role: Open or Claimed for requesters, Claimed for mediators.
type Actor struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	ActiveCase   bool      `json:"active_case"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is an incident report moving through the lifecycle.
type Task struct {
	ID          uint64     `json:"id"`
	RequesterID string     `json:"requester_id"`
	MediatorID  string     `json:"mediator_id,omitempty"`
	Location    string     `json:"location"`
	State       State      `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FinalNote   string     `json:"final_note,omitempty"`
}

// HeldBy reports whether the task counts toward actor's active case.
func (t *Task) HeldBy(actorID string, role Role) bool {
	switch role {
	case RoleRequester:
		return t.RequesterID == actorID && (t.State == StateOpen || t.State == StateClaimed)
	case RoleMediator:
		return t.MediatorID == actorID && t.State == StateClaimed
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate shared snapshots.
func (t *Task) Clone() *Task {
	c := *t
	c.ClaimedAt = cloneTime(t.ClaimedAt)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

package sqlstore

import (
	"fmt"
	"time"

	"github.com/example/incident-desk/domain/casework"
)

// actorRecord is the persisted layout of an actor.
type actorRecord struct {
	ID           string `gorm:"primaryKey;type:text"`
	Code         string `gorm:"uniqueIndex;not null;type:text"`
	Email        string `gorm:"not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	FirstName    string `gorm:"type:text"`
	LastName     string `gorm:"type:text"`
	Role         string `gorm:"not null;index;type:text"`
	ActiveCase   bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (actorRecord) TableName() string {
	return "actors"
}

// taskRecord is the persisted layout of a task.
type taskRecord struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	RequesterID string  `gorm:"not null;index;type:text"`
	MediatorID  *string `gorm:"index;type:text"`
	Location    string  `gorm:"not null;type:text"`
	State       string  `gorm:"not null;index;type:text"`
	CreatedAt   time.Time
	ClaimedAt   *time.Time
	ResolvedAt  *time.Time
	CompletedAt *time.Time
	FinalNote   string `gorm:"type:text"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

func toActorRecord(a *casework.Actor) *actorRecord {
	return &actorRecord{
		ID:           a.ID,
		Code:         a.Code,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Role:         string(a.Role),
		ActiveCase:   a.ActiveCase,
		CreatedAt:    a.CreatedAt,
	}
}

func (r *actorRecord) toDomain() (*casework.Actor, error) {
	role, err := casework.ParseRole(r.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: actor %s has role %q", casework.ErrIntegrity, r.ID, r.Role)
	}
	return &casework.Actor{
		ID:           r.ID,
		Code:         r.Code,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Role:         role,
		ActiveCase:   r.ActiveCase,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}, nil
}

func toTaskRecord(t *casework.Task) *taskRecord {
	rec := &taskRecord{
		ID:          t.ID,
		RequesterID: t.RequesterID,
		Location:    t.Location,
		State:       string(t.State),
		CreatedAt:   t.CreatedAt,
		ClaimedAt:   t.ClaimedAt,
		ResolvedAt:  t.ResolvedAt,
		CompletedAt: t.CompletedAt,
		FinalNote:   t.FinalNote,
	}
	if t.MediatorID != "" {
		m := t.MediatorID
		rec.MediatorID = &m
	}
	return rec
}

func (r *taskRecord) toDomain() (*casework.Task, error) {
	state, err := casework.ParseState(r.State)
	if err != nil {
		return nil, fmt.Errorf("%w: task %d has state %q", casework.ErrIntegrity, r.ID, r.State)
	}
	t := &casework.Task{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		Location:    r.Location,
		State:       state,
		CreatedAt:   r.CreatedAt,
		ClaimedAt:   r.ClaimedAt,
		ResolvedAt:  r.ResolvedAt,
		CompletedAt: r.CompletedAt,
		FinalNote:   r.FinalNote,
	}
	if r.MediatorID != nil {
		t.MediatorID = *r.MediatorID
	}
	return t, nil
}

// transitionColumns lists the columns a transition into t.State may write.
func transitionColumns(t *casework.Task, from casework.State) (map[string]any, error) {
	if t.State.Rank() != from.Rank()+1 {
		return nil, fmt.Errorf("%w: %s -> %s", casework.ErrInvalidState, from, t.State)
	}
	cols := map[string]any{"state": string(t.State)}
	switch t.State {
	case casework.StateClaimed:
		cols["mediator_id"] = t.MediatorID
		cols["claimed_at"] = t.ClaimedAt
	case casework.StateResolved:
		cols["resolved_at"] = t.ResolvedAt
	case casework.StateCompleted:
		cols["completed_at"] = t.CompletedAt
		cols["final_note"] = t.FinalNote
	}
	return cols, nil
}

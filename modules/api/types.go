package api

import (
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/account"
	"github.com/example/incident-desk/modules/audit"
	"github.com/example/incident-desk/modules/lifecycle"
)

// RegisterRequest is the HTTP request for opening a requester account.
type RegisterRequest struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest is the HTTP request for exchanging credentials for tokens.
type LoginRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// RefreshRequest is the HTTP request for renewing a token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// CreateTaskRequest is the HTTP request for filing an incident.
type CreateTaskRequest struct {
	Location string `json:"location"`
}

// CompleteTaskRequest is the HTTP request for closing a resolved incident.
type CompleteTaskRequest struct {
	FinalNote string `json:"final_note"`
}

// TaskResponse is a task with every timestamp also rendered in the desk's
// local zone.
type TaskResponse struct {
	ID          uint64         `json:"id"`
	RequesterID string         `json:"requester_id"`
	MediatorID  string         `json:"mediator_id,omitempty"`
	Location    string         `json:"location"`
	State       casework.State `json:"state"`
	FinalNote   string         `json:"final_note,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Created     clock.Stamp    `json:"created"`
	ClaimedAt   *time.Time     `json:"claimed_at,omitempty"`
	Claimed     *clock.Stamp   `json:"claimed,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Resolved    *clock.Stamp   `json:"resolved,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Completed   *clock.Stamp   `json:"completed,omitempty"`
}

// ListTasksResponse is a page of tasks.
type ListTasksResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ProfileListResponse lists actor profiles.
type ProfileListResponse struct {
	Profiles []*account.Profile `json:"profiles"`
	Total    int                `json:"total"`
}

// IntegrityResponse lists actors whose active-case flag disagrees with the
// task table.
type IntegrityResponse struct {
	Divergences []lifecycle.Divergence `json:"divergences"`
	Total       int                    `json:"total"`
	CheckedAt   time.Time              `json:"checked_at"`
}

// AuditResponse lists trail entries, newest first.
type AuditResponse struct {
	Entries  []audit.Entry `json:"entries"`
	Recorded int64         `json:"recorded"`
}

// HealthResponse is the HTTP response for the health check.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the HTTP response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toTaskResponse(t *casework.Task, loc *time.Location) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		RequesterID: t.RequesterID,
		MediatorID:  t.MediatorID,
		Location:    t.Location,
		State:       t.State,
		FinalNote:   t.FinalNote,
		CreatedAt:   t.CreatedAt,
		Created:     clock.Format(t.CreatedAt, loc),
		ClaimedAt:   t.ClaimedAt,
		Claimed:     stampOf(t.ClaimedAt, loc),
		ResolvedAt:  t.ResolvedAt,
		Resolved:    stampOf(t.ResolvedAt, loc),
		CompletedAt: t.CompletedAt,
		Completed:   stampOf(t.CompletedAt, loc),
	}
}

func toTaskList(tasks []*casework.Task, loc *time.Location, limit, offset int) ListTasksResponse {
	if limit == 0 {
		limit = casework.DefaultPageLimit
	}
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t, loc))
	}
	return ListTasksResponse{
		Tasks:  out,
		Total:  len(out),
		Limit:  limit,
		Offset: offset,
	}
}

func stampOf(t *time.Time, loc *time.Location) *clock.Stamp {
	if t == nil {
		return nil
	}
	s := clock.Format(*t, loc)
	return &s
}

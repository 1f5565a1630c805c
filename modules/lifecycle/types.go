package lifecycle

import (
	"context"
	"time"

	"github.com/example/incident-desk/domain/casework"
)

// CreateTaskRequest is the request for filing a task.
type CreateTaskRequest struct {
	RequesterID string `json:"requester_id"`
	Location    string `json:"location"`
}

// ClaimTaskRequest is the request for claiming an open task.
type ClaimTaskRequest struct {
	MediatorID string `json:"mediator_id"`
	TaskID     uint64 `json:"task_id"`
}

// ResolveTaskRequest is the request for resolving a claimed task.
type ResolveTaskRequest struct {
	MediatorID string `json:"mediator_id"`
	TaskID     uint64 `json:"task_id"`
}

// CompleteTaskRequest is the request for closing a resolved task.
type CompleteTaskRequest struct {
	RequesterID string `json:"requester_id"`
	TaskID      uint64 `json:"task_id"`
	FinalNote   string `json:"final_note"`
}

// GetTaskRequest is the request for a task snapshot.
type GetTaskRequest struct {
	TaskID uint64 `json:"task_id"`
}

// ListOpenTasksRequest is the request for a page of the queue.
type ListOpenTasksRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListActorTasksRequest is the request for an actor's own tasks.
type ListActorTasksRequest struct {
	ActorID string         `json:"actor_id"`
	State   casework.State `json:"state,omitempty"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ActiveCaseRequest is the request for the task an actor currently holds.
type ActiveCaseRequest struct {
	ActorID string `json:"actor_id"`
}

// CheckIntegrityRequest is the request for an integrity sweep.
type CheckIntegrityRequest struct{}

// TaskResponse carries one task or the failure that prevented returning it.
type TaskResponse struct {
	Task  *casework.Task      `json:"task,omitempty"`
	Error *casework.ErrorBody `json:"error,omitempty"`
}

// TaskListResponse carries a page of tasks.
type TaskListResponse struct {
	Tasks []*casework.Task    `json:"tasks"`
	Total int                 `json:"total"`
	Error *casework.ErrorBody `json:"error,omitempty"`
}

// IntegrityResponse lists actors whose flag disagrees with the task table.
type IntegrityResponse struct {
	Divergences []Divergence        `json:"divergences"`
	CheckedAt   time.Time           `json:"checked_at"`
	Error       *casework.ErrorBody `json:"error,omitempty"`
}

// LifecyclePort is the contract driving adapters use to move tasks through
// their lifecycle.
type LifecyclePort interface {
	CreateTask(ctx context.Context, requesterID, location string) (*casework.Task, error)
	ClaimOpenTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error)
	ResolveTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error)
	CompleteTask(ctx context.Context, requesterID string, taskID uint64, finalNote string) (*casework.Task, error)
	GetTask(ctx context.Context, taskID uint64) (*casework.Task, error)
	ListOpenTasks(ctx context.Context, limit, offset int) ([]*casework.Task, error)
	ListActorTasks(ctx context.Context, actorID string, state casework.State, limit, offset int) ([]*casework.Task, error)
	ActiveCase(ctx context.Context, actorID string) (*casework.Task, error)
	CheckIntegrity(ctx context.Context) ([]Divergence, error)
}

// Engine satisfies the port directly for in-process callers and tests.
var _ LifecyclePort = (*Engine)(nil)

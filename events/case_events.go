package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted after a requester files a new report.
type TaskCreatedEvent struct {
	TaskID      uint64    `json:"task_id"`
	RequesterID string    `json:"requester_id"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.lifecycle.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"lifecycle", "TaskCreated", "v1",
)

// TaskClaimedEvent is emitted after a mediator takes an open task.
type TaskClaimedEvent struct {
	TaskID      uint64    `json:"task_id"`
	RequesterID string    `json:"requester_id"`
	MediatorID  string    `json:"mediator_id"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

// TaskClaimedV1 is the typed event definition for task claims.
// Subject: events.lifecycle.v1.task-claimed
var TaskClaimedV1 = helper.EventDefinition[TaskClaimedEvent](
	"lifecycle", "TaskClaimed", "v1",
)

// TaskResolvedEvent is emitted after the owning mediator resolves a task.
type TaskResolvedEvent struct {
	TaskID      uint64    `json:"task_id"`
	RequesterID string    `json:"requester_id"`
	MediatorID  string    `json:"mediator_id"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// TaskResolvedV1 is the typed event definition for task resolution.
// Subject: events.lifecycle.v1.task-resolved
var TaskResolvedV1 = helper.EventDefinition[TaskResolvedEvent](
	"lifecycle", "TaskResolved", "v1",
)

// TaskCompletedEvent is emitted after the requester closes a resolved task.
type TaskCompletedEvent struct {
	TaskID      uint64    `json:"task_id"`
	RequesterID string    `json:"requester_id"`
	FinalNote   string    `json:"final_note"`
	CompletedAt time.Time `json:"completed_at"`
}

// TaskCompletedV1 is the typed event definition for task completion.
// Subject: events.lifecycle.v1.task-completed
var TaskCompletedV1 = helper.EventDefinition[TaskCompletedEvent](
	"lifecycle", "TaskCompleted", "v1",
)

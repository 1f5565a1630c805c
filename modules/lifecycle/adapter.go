package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// lifecycleAdapter implements LifecyclePort over the lifecycle module's
// request-reply services. Failure kinds survive the hop, so callers can still
// match them with errors.Is.
type lifecycleAdapter struct {
	container mono.ServiceContainer
}

// NewLifecycleAdapter creates a new adapter for lifecycle services.
func NewLifecycleAdapter(container mono.ServiceContainer) LifecyclePort {
	if container == nil {
		panic("lifecycle adapter requires non-nil ServiceContainer")
	}
	return &lifecycleAdapter{container: container}
}

// call performs one request-reply hop. A failed hop means the lifecycle
// module could not be reached, which callers see as ErrStoreUnavailable.
func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w: %w", service, casework.ErrStoreUnavailable, err)
	}
	return nil
}

func (a *lifecycleAdapter) task(ctx context.Context, service string, req any) (*casework.Task, error) {
	var resp TaskResponse
	if err := call(ctx, a.container, service, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

func (a *lifecycleAdapter) tasks(ctx context.Context, service string, req any) ([]*casework.Task, error) {
	var resp TaskListResponse
	if err := call(ctx, a.container, service, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask files a task via the create-task service.
func (a *lifecycleAdapter) CreateTask(ctx context.Context, requesterID, location string) (*casework.Task, error) {
	return a.task(ctx, "create-task", &CreateTaskRequest{RequesterID: requesterID, Location: location})
}

// ClaimOpenTask claims a task via the claim-task service.
func (a *lifecycleAdapter) ClaimOpenTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error) {
	return a.task(ctx, "claim-task", &ClaimTaskRequest{MediatorID: mediatorID, TaskID: taskID})
}

// ResolveTask resolves a task via the resolve-task service.
func (a *lifecycleAdapter) ResolveTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error) {
	return a.task(ctx, "resolve-task", &ResolveTaskRequest{MediatorID: mediatorID, TaskID: taskID})
}

// CompleteTask closes a task via the complete-task service.
func (a *lifecycleAdapter) CompleteTask(ctx context.Context, requesterID string, taskID uint64, finalNote string) (*casework.Task, error) {
	return a.task(ctx, "complete-task", &CompleteTaskRequest{RequesterID: requesterID, TaskID: taskID, FinalNote: finalNote})
}

// GetTask fetches a task via the get-task service.
func (a *lifecycleAdapter) GetTask(ctx context.Context, taskID uint64) (*casework.Task, error) {
	return a.task(ctx, "get-task", &GetTaskRequest{TaskID: taskID})
}

// ListOpenTasks reads the queue via the list-open-tasks service.
func (a *lifecycleAdapter) ListOpenTasks(ctx context.Context, limit, offset int) ([]*casework.Task, error) {
	return a.tasks(ctx, "list-open-tasks", &ListOpenTasksRequest{Limit: limit, Offset: offset})
}

// ListActorTasks lists an actor's tasks via the list-actor-tasks service.
func (a *lifecycleAdapter) ListActorTasks(ctx context.Context, actorID string, state casework.State, limit, offset int) ([]*casework.Task, error) {
	return a.tasks(ctx, "list-actor-tasks", &ListActorTasksRequest{ActorID: actorID, State: state, Limit: limit, Offset: offset})
}

// ActiveCase fetches the actor's held task via the active-case service.
func (a *lifecycleAdapter) ActiveCase(ctx context.Context, actorID string) (*casework.Task, error) {
	return a.task(ctx, "active-case", &ActiveCaseRequest{ActorID: actorID})
}

// CheckIntegrity runs a sweep via the check-integrity service.
func (a *lifecycleAdapter) CheckIntegrity(ctx context.Context) ([]Divergence, error) {
	var resp IntegrityResponse
	if err := call(ctx, a.container, "check-integrity", &CheckIntegrityRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Error.Err(); err != nil {
		return nil, err
	}
	return resp.Divergences, nil
}

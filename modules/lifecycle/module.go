// Package lifecycle moves incident tasks from Open to Completed and keeps each
// actor's active-case flag consistent with the tasks it holds.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/events"
	"github.com/example/incident-desk/modules/storage"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// LifecycleModule exposes the Engine as request-reply services and publishes
// an event for every committed transition.
type LifecycleModule struct {
	storage  *storage.StorageModule
	clock    clock.Clock
	timeout  time.Duration
	engine   *Engine
	eventBus mono.EventBus
	logger   types.Logger

	lastDivergences atomic.Int64
}

// Compile-time interface checks.
var _ mono.Module = (*LifecycleModule)(nil)
var _ mono.ServiceProviderModule = (*LifecycleModule)(nil)
var _ mono.EventEmitterModule = (*LifecycleModule)(nil)
var _ mono.HealthCheckableModule = (*LifecycleModule)(nil)
var _ Publisher = (*LifecycleModule)(nil)

// NewModule creates a LifecycleModule. The storage module must be registered
// before it so that its store is open by the time this module starts.
func NewModule(storageModule *storage.StorageModule, clk clock.Clock, storeTimeout time.Duration, logger types.Logger) *LifecycleModule {
	return &LifecycleModule{
		storage: storageModule,
		clock:   clk,
		timeout: storeTimeout,
		logger:  logger,
	}
}

func (m *LifecycleModule) Name() string {
	return "lifecycle"
}

func (m *LifecycleModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *LifecycleModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskClaimedV1.ToBase(),
		events.TaskResolvedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
	}
}

func (m *LifecycleModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "claim-task", json.Unmarshal, json.Marshal, m.claimTask,
	); err != nil {
		return fmt.Errorf("failed to register claim-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "resolve-task", json.Unmarshal, json.Marshal, m.resolveTask,
	); err != nil {
		return fmt.Errorf("failed to register resolve-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "complete-task", json.Unmarshal, json.Marshal, m.completeTask,
	); err != nil {
		return fmt.Errorf("failed to register complete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-open-tasks", json.Unmarshal, json.Marshal, m.listOpenTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-open-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-actor-tasks", json.Unmarshal, json.Marshal, m.listActorTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-actor-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "active-case", json.Unmarshal, json.Marshal, m.activeCase,
	); err != nil {
		return fmt.Errorf("failed to register active-case service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "check-integrity", json.Unmarshal, json.Marshal, m.checkIntegrity,
	); err != nil {
		return fmt.Errorf("failed to register check-integrity service: %w", err)
	}

	m.logger.Info("Registered lifecycle services",
		"services", []string{
			"create-task", "claim-task", "resolve-task", "complete-task", "get-task",
			"list-open-tasks", "list-actor-tasks", "active-case", "check-integrity",
		})
	return nil
}

func (m *LifecycleModule) Start(_ context.Context) error {
	if m.storage == nil || m.storage.Store() == nil {
		return fmt.Errorf("store not initialized: register the storage module first")
	}
	if m.clock == nil {
		return fmt.Errorf("clock not set")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, lifecycle events will not be published")
	}

	m.engine = NewEngine(m.storage.Store(), m.clock, m.logger,
		WithStoreTimeout(m.timeout),
		WithPublisher(m),
	)
	m.logger.Info("Lifecycle module started", "store_timeout", m.engine.timeout)
	return nil
}

func (m *LifecycleModule) Stop(_ context.Context) error {
	m.logger.Info("Lifecycle module stopped")
	return nil
}

// Health reports the outcome of the most recent integrity sweep.
func (m *LifecycleModule) Health(_ context.Context) mono.HealthStatus {
	if m.engine == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "engine not initialized",
		}
	}

	diverged := m.lastDivergences.Load()
	if diverged > 0 {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("%d actors have a diverged active-case flag", diverged),
			Details: map[string]any{"diverged_actors": diverged},
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"diverged_actors": diverged},
	}
}

// Engine returns the engine, or nil before Start.
func (m *LifecycleModule) Engine() *Engine {
	return m.engine
}

// Publish emits the event matching a committed transition. Publishing is best
// effort; a failure is logged and the transition stands.
func (m *LifecycleModule) Publish(_ context.Context, event casework.Event, task *casework.Task) {
	if m.eventBus == nil {
		return
	}

	var err error
	switch event {
	case casework.EventCreate:
		err = events.TaskCreatedV1.Publish(m.eventBus, events.TaskCreatedEvent{
			TaskID:      task.ID,
			RequesterID: task.RequesterID,
			Location:    task.Location,
			CreatedAt:   task.CreatedAt,
		}, nil)
	case casework.EventClaim:
		err = events.TaskClaimedV1.Publish(m.eventBus, events.TaskClaimedEvent{
			TaskID:      task.ID,
			RequesterID: task.RequesterID,
			MediatorID:  task.MediatorID,
			ClaimedAt:   derefTime(task.ClaimedAt),
		}, nil)
	case casework.EventResolve:
		err = events.TaskResolvedV1.Publish(m.eventBus, events.TaskResolvedEvent{
			TaskID:      task.ID,
			RequesterID: task.RequesterID,
			MediatorID:  task.MediatorID,
			ResolvedAt:  derefTime(task.ResolvedAt),
		}, nil)
	case casework.EventComplete:
		err = events.TaskCompletedV1.Publish(m.eventBus, events.TaskCompletedEvent{
			TaskID:      task.ID,
			RequesterID: task.RequesterID,
			FinalNote:   task.FinalNote,
			CompletedAt: derefTime(task.CompletedAt),
		}, nil)
	default:
		return
	}
	if err != nil {
		m.logger.Warn("Failed to publish lifecycle event", "event", string(event), "task_id", task.ID, "error", err)
	}
}

func (m *LifecycleModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.engine.CreateTask(ctx, req.RequesterID, req.Location)
	return TaskResponse{Task: task, Error: casework.NewErrorBody(err)}, nil
}

func (m *LifecycleModule) claimTask(ctx context.Context, req ClaimTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.engine.ClaimOpenTask(ctx, req.MediatorID, req.TaskID)
	return TaskResponse{Task: task, Error: casework.NewErrorBody(err)}, nil
}

func (m *LifecycleModule) resolveTask(ctx context.Context, req ResolveTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.engine.ResolveTask(ctx, req.MediatorID, req.TaskID)
	return TaskResponse{Task: task, Error: casework.NewErrorBody(err)}, nil
}

func (m *LifecycleModule) completeTask(ctx context.Context, req CompleteTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.engine.CompleteTask(ctx, req.RequesterID, req.TaskID, req.FinalNote)
	return TaskResponse{Task: task, Error: casework.NewErrorBody(err)}, nil
}

func (m *LifecycleModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.engine.GetTask(ctx, req.TaskID)
	return TaskResponse{Task: task, Error: casework.NewErrorBody(err)}, nil
}

func (m *LifecycleModule) listOpenTasks(ctx context.Context, req ListOpenTasksRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.engine.ListOpenTasks(ctx, req.Limit, req.Offset)
	return toTaskList(tasks, err), nil
}

func (m *LifecycleModule) listActorTasks(ctx context.Context, req ListActorTasksRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.engine.ListActorTasks(ctx, req.ActorID, req.State, req.Limit, req.Offset)
	return toTaskList(tasks, err), nil
}

func (m *LifecycleModule) activeCase(ctx context.Context, req ActiveCaseRequest, _ *mono.Msg) (TaskResponse, error) {
	task, err := m.engine.ActiveCase(ctx, req.ActorID)
	return TaskResponse{Task: task, Error: casework.NewErrorBody(err)}, nil
}

func (m *LifecycleModule) checkIntegrity(ctx context.Context, _ CheckIntegrityRequest, _ *mono.Msg) (IntegrityResponse, error) {
	divs, err := m.engine.CheckIntegrity(ctx)
	if err != nil {
		return IntegrityResponse{Error: casework.NewErrorBody(err)}, nil
	}
	m.lastDivergences.Store(int64(len(divs)))
	if divs == nil {
		divs = []Divergence{}
	}
	return IntegrityResponse{Divergences: divs, CheckedAt: m.clock.Now()}, nil
}

func toTaskList(tasks []*casework.Task, err error) TaskListResponse {
	if err != nil {
		return TaskListResponse{Tasks: []*casework.Task{}, Error: casework.NewErrorBody(err)}
	}
	if tasks == nil {
		tasks = []*casework.Task{}
	}
	return TaskListResponse{Tasks: tasks, Total: len(tasks)}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

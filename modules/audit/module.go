// Package audit keeps an in-memory trail of committed lifecycle transitions.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Module consumes lifecycle events into a Trail.
type Module struct {
	trail  *Trail
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new audit module keeping at most maxEntries entries.
func NewModule(maxEntries int, logger types.Logger) *Module {
	return &Module{
		trail:  NewTrail(maxEntries),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// RegisterEventConsumers subscribes to every lifecycle event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskClaimedV1, m.handleTaskClaimed, m); err != nil {
		return fmt.Errorf("failed to register TaskClaimed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskResolvedV1, m.handleTaskResolved, m); err != nil {
		return fmt.Errorf("failed to register TaskResolved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"TaskCreated.v1", "TaskClaimed.v1", "TaskResolved.v1", "TaskCompleted.v1"})
	return nil
}

func (m *Module) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.trail.Record(Entry{
		TaskID:     event.TaskID,
		Event:      string(casework.EventCreate),
		ActorID:    event.RequesterID,
		Detail:     event.Location,
		OccurredAt: event.CreatedAt,
	})
	m.logger.Debug("Recorded task creation", "task_id", event.TaskID)
	return nil
}

func (m *Module) handleTaskClaimed(_ context.Context, event events.TaskClaimedEvent, _ *mono.Msg) error {
	m.trail.Record(Entry{
		TaskID:     event.TaskID,
		Event:      string(casework.EventClaim),
		ActorID:    event.MediatorID,
		OccurredAt: event.ClaimedAt,
	})
	m.logger.Debug("Recorded task claim", "task_id", event.TaskID, "mediator_id", event.MediatorID)
	return nil
}

func (m *Module) handleTaskResolved(_ context.Context, event events.TaskResolvedEvent, _ *mono.Msg) error {
	m.trail.Record(Entry{
		TaskID:     event.TaskID,
		Event:      string(casework.EventResolve),
		ActorID:    event.MediatorID,
		OccurredAt: event.ResolvedAt,
	})
	m.logger.Debug("Recorded task resolution", "task_id", event.TaskID)
	return nil
}

func (m *Module) handleTaskCompleted(_ context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	m.trail.Record(Entry{
		TaskID:     event.TaskID,
		Event:      string(casework.EventComplete),
		ActorID:    event.RequesterID,
		Detail:     event.FinalNote,
		OccurredAt: event.CompletedAt,
	})
	m.logger.Debug("Recorded task completion", "task_id", event.TaskID)
	return nil
}

// RegisterServices registers the recent-entries service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "recent-entries", json.Unmarshal, json.Marshal, m.recentEntries,
	); err != nil {
		return fmt.Errorf("failed to register recent-entries service: %w", err)
	}

	m.logger.Info("Registered audit services", "services", []string{"recent-entries"})
	return nil
}

func (m *Module) recentEntries(_ context.Context, req RecentEntriesRequest, _ *mono.Msg) (RecentEntriesResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return RecentEntriesResponse{
		Entries:  m.trail.Recent(limit, req.TaskID),
		Recorded: m.trail.Recorded(),
	}, nil
}

// Start initializes the audit module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Audit module started", "max_entries", m.trail.maxEntries)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Audit module stopped", "recorded", m.trail.Recorded())
	return nil
}

// Health reports how many transitions were recorded.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"recorded": m.trail.Recorded()},
	}
}

// Trail returns the module's trail.
func (m *Module) Trail() *Trail {
	return m.trail
}

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultStoreTimeout bounds every store round trip made by one operation.
const DefaultStoreTimeout = 5 * time.Second

// Publisher is told about every committed transition. Publishing is best
// effort and must not block the caller for long.
type Publisher interface {
	Publish(ctx context.Context, event casework.Event, task *casework.Task)
}

// Option configures an Engine.
type Option func(*Engine)

// WithStoreTimeout sets the deadline applied to each operation's store work.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPublisher registers p to receive committed transitions.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// Engine applies the task lifecycle. Every transition re-reads the task and
// actors inside one store transaction, checks its guard there and writes the
// task and the active-case flags together.
type Engine struct {
	store     casework.Store
	clock     clock.Clock
	guard     *Guard
	queue     *Queue
	publisher Publisher
	timeout   time.Duration
	logger    types.Logger
}

// NewEngine creates an Engine over store.
func NewEngine(store casework.Store, clk clock.Clock, logger types.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		clock:   clk,
		guard:   NewGuard(logger),
		timeout: DefaultStoreTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue = NewQueue(store, e.timeout)
	return e
}

// CreateTask files a new Open task for requesterID.
func (e *Engine) CreateTask(ctx context.Context, requesterID, location string) (*casework.Task, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, casework.ErrEmptyLocation
	}
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester id is required", casework.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var created *casework.Task
	err := e.store.InTx(ctx, func(tx casework.Tx) error {
		requester, err := tx.GetActor(ctx, requesterID)
		if err != nil {
			return err
		}
		if requester.Role != casework.RoleRequester {
			return fmt.Errorf("%w: %s cannot file reports", casework.ErrForbiddenRole, requester.Role)
		}
		if err := e.guard.Acquire(ctx, tx, requester, casework.RoleRequester); err != nil {
			return err
		}

		to, _ := casework.Next("", casework.EventCreate)
		task := &casework.Task{
			RequesterID: requester.ID,
			Location:    location,
			State:       to,
			CreatedAt:   e.clock.Now(),
		}
		if err := tx.InsertTask(ctx, task); err != nil {
			return err
		}
		created = task
		return nil
	})
	if err != nil {
		return nil, e.fail("create task", err, "requester_id", requesterID)
	}

	e.logger.Info("Task created", "task_id", created.ID, "requester_id", requesterID)
	e.publish(ctx, casework.EventCreate, created)
	return created, nil
}

// ClaimOpenTask assigns taskID to mediatorID. Exactly one of any number of
// concurrent claims on the same Open task succeeds; the rest get
// ErrAlreadyClaimed.
func (e *Engine) ClaimOpenTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var claimed *casework.Task
	err := e.store.InTx(ctx, func(tx casework.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		mediator, err := tx.GetActor(ctx, mediatorID)
		if err != nil {
			return err
		}
		if mediator.Role != casework.RoleMediator {
			return fmt.Errorf("%w: %s cannot claim tasks", casework.ErrForbiddenRole, mediator.Role)
		}
		if mediator.ActiveCase {
			return casework.ErrActiveCaseConflict
		}

		from := task.State
		to, ok := casework.Next(from, casework.EventClaim)
		if !ok {
			return stateMismatch(casework.ErrAlreadyClaimed, task, casework.EventClaim)
		}
		if err := e.guard.Acquire(ctx, tx, mediator, casework.RoleMediator); err != nil {
			return err
		}

		now := e.clock.Now()
		task.State = to
		task.MediatorID = mediator.ID
		task.ClaimedAt = &now
		if err := tx.AdvanceTask(ctx, task, from); err != nil {
			if errors.Is(err, casework.ErrStale) {
				return fmt.Errorf("%w: task %d", casework.ErrAlreadyClaimed, task.ID)
			}
			return err
		}
		claimed = task
		return nil
	})
	if err != nil {
		return nil, e.fail("claim task", err, "task_id", taskID, "mediator_id", mediatorID)
	}

	e.logger.Info("Task claimed", "task_id", taskID, "mediator_id", mediatorID)
	e.publish(ctx, casework.EventClaim, claimed)
	return claimed, nil
}

// ResolveTask marks a Claimed task Resolved and releases both the mediator's
// and the requester's active case.
func (e *Engine) ResolveTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var resolved *casework.Task
	err := e.store.InTx(ctx, func(tx casework.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		mediator, err := tx.GetActor(ctx, mediatorID)
		if err != nil {
			return err
		}
		if mediator.Role != casework.RoleMediator {
			return fmt.Errorf("%w: %s cannot resolve tasks", casework.ErrForbiddenRole, mediator.Role)
		}
		if task.MediatorID != "" && task.MediatorID != mediator.ID {
			return fmt.Errorf("%w: task %d is held by another mediator", casework.ErrWrongOwner, task.ID)
		}

		from := task.State
		to, ok := casework.Next(from, casework.EventResolve)
		if !ok {
			return stateMismatch(casework.ErrInvalidState, task, casework.EventResolve)
		}

		now := e.clock.Now()
		task.State = to
		task.ResolvedAt = &now
		if err := tx.AdvanceTask(ctx, task, from); err != nil {
			if errors.Is(err, casework.ErrStale) {
				return fmt.Errorf("%w: task %d changed concurrently", casework.ErrInvalidState, task.ID)
			}
			return err
		}
		if err := e.guard.Release(ctx, tx, mediator.ID, casework.RoleMediator); err != nil {
			return err
		}
		if err := e.guard.Release(ctx, tx, task.RequesterID, casework.RoleRequester); err != nil {
			return err
		}
		resolved = task
		return nil
	})
	if err != nil {
		return nil, e.fail("resolve task", err, "task_id", taskID, "mediator_id", mediatorID)
	}

	e.logger.Info("Task resolved", "task_id", taskID, "mediator_id", mediatorID)
	e.publish(ctx, casework.EventResolve, resolved)
	return resolved, nil
}

// CompleteTask closes a Resolved task with the requester's final note.
// Completing an already Completed task fails with ErrInvalidState and leaves
// it untouched.
func (e *Engine) CompleteTask(ctx context.Context, requesterID string, taskID uint64, finalNote string) (*casework.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var completed *casework.Task
	err := e.store.InTx(ctx, func(tx casework.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		requester, err := tx.GetActor(ctx, requesterID)
		if err != nil {
			return err
		}
		if requester.Role != casework.RoleRequester {
			return fmt.Errorf("%w: %s cannot complete tasks", casework.ErrForbiddenRole, requester.Role)
		}
		if task.RequesterID != requester.ID {
			return fmt.Errorf("%w: task %d was filed by another requester", casework.ErrWrongOwner, task.ID)
		}

		from := task.State
		to, ok := casework.Next(from, casework.EventComplete)
		if !ok {
			return stateMismatch(casework.ErrInvalidState, task, casework.EventComplete)
		}

		now := e.clock.Now()
		task.State = to
		task.CompletedAt = &now
		task.FinalNote = strings.TrimSpace(finalNote)
		if err := tx.AdvanceTask(ctx, task, from); err != nil {
			if errors.Is(err, casework.ErrStale) {
				return fmt.Errorf("%w: task %d changed concurrently", casework.ErrInvalidState, task.ID)
			}
			return err
		}
		completed = task
		return nil
	})
	if err != nil {
		return nil, e.fail("complete task", err, "task_id", taskID, "requester_id", requesterID)
	}

	e.logger.Info("Task completed", "task_id", taskID, "requester_id", requesterID)
	e.publish(ctx, casework.EventComplete, completed)
	return completed, nil
}

// stateMismatch reports that ev cannot start from the task's current state.
func stateMismatch(sentinel error, task *casework.Task, ev casework.Event) error {
	if task.State.Terminal() {
		return fmt.Errorf("%w: task %d is already %s", sentinel, task.ID, task.State)
	}
	want, _ := casework.Source(ev)
	return fmt.Errorf("%w: task %d is %s, %s needs %s", sentinel, task.ID, task.State, ev, want)
}

// GetTask returns the current snapshot of taskID.
func (e *Engine) GetTask(ctx context.Context, taskID uint64) (*casework.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, e.fail("get task", err, "task_id", taskID)
	}
	return task, nil
}

// ListOpenTasks returns a page of the FIFO queue, oldest first.
func (e *Engine) ListOpenTasks(ctx context.Context, limit, offset int) ([]*casework.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tasks, err := e.queue.List(ctx, limit, offset)
	if err != nil {
		return nil, e.fail("list open tasks", err, "limit", limit, "offset", offset)
	}
	return tasks, nil
}

// ListActorTasks returns tasks filed by a requester or claimed by a mediator,
// newest first, optionally restricted to one state. Admins see every task.
func (e *Engine) ListActorTasks(ctx context.Context, actorID string, state casework.State, limit, offset int) ([]*casework.Task, error) {
	page, err := casework.NormalizePage(limit, offset)
	if err != nil {
		return nil, err
	}
	if state != "" && !state.Valid() {
		return nil, casework.ErrUnknownState
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	actor, err := e.store.GetActor(ctx, actorID)
	if err != nil {
		return nil, e.fail("list actor tasks", err, "actor_id", actorID)
	}
	filter := casework.TaskFilter{ActorID: actor.ID, Role: actor.Role, State: state}
	tasks, err := e.store.ListTasksFor(ctx, filter, page)
	if err != nil {
		return nil, e.fail("list actor tasks", err, "actor_id", actorID)
	}
	return tasks, nil
}

// ActiveCase returns the task currently counted against actorID's active
// case. It fails with ErrTaskNotFound when the actor holds none, and with
// ErrActiveCaseDiverged when the flag and the task table disagree.
func (e *Engine) ActiveCase(ctx context.Context, actorID string) (*casework.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var active *casework.Task
	err := e.store.InTx(ctx, func(tx casework.Tx) error {
		actor, err := tx.GetActor(ctx, actorID)
		if err != nil {
			return err
		}
		div, err := e.guard.Inspect(ctx, tx, actor)
		if err != nil {
			return err
		}
		if div != nil {
			e.logger.Warn("Active-case flag does not match tasks",
				"actor_id", div.ActorID, "active_case", div.ActiveCase, "held_tasks", div.HeldTasks)
			return fmt.Errorf("%w: actor %s flag=%v held=%v", casework.ErrActiveCaseDiverged, actor.ID, div.ActiveCase, div.HeldTasks)
		}
		if !actor.ActiveCase {
			return fmt.Errorf("%w: actor %s has no active case", casework.ErrTaskNotFound, actor.ID)
		}
		held, err := tx.HeldTasks(ctx, actor.ID, actor.Role)
		if err != nil {
			return err
		}
		active = held[0]
		return nil
	})
	if err != nil {
		return nil, e.fail("active case", err, "actor_id", actorID)
	}
	return active, nil
}

// CheckIntegrity compares every actor's flag with the tasks it holds and
// reports the mismatches. It changes nothing.
func (e *Engine) CheckIntegrity(ctx context.Context) ([]Divergence, error) {
	listCtx, cancel := context.WithTimeout(ctx, e.timeout)
	actors, err := e.store.ListActors(listCtx, "")
	cancel()
	if err != nil {
		return nil, e.fail("check integrity", err)
	}

	var found []Divergence
	for _, a := range actors {
		actorCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := e.store.InTx(actorCtx, func(tx casework.Tx) error {
			current, err := tx.GetActor(actorCtx, a.ID)
			if err != nil {
				return err
			}
			div, err := e.guard.Inspect(actorCtx, tx, current)
			if err != nil {
				return err
			}
			if div != nil {
				found = append(found, *div)
			}
			return nil
		})
		cancel()
		if err != nil {
			return nil, e.fail("check integrity", err, "actor_id", a.ID)
		}
	}

	if len(found) > 0 {
		e.logger.Error("Integrity check found diverged actors", "count", len(found))
	}
	return found, nil
}

func (e *Engine) publish(ctx context.Context, event casework.Event, task *casework.Task) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(ctx, event, task.Clone())
}

// fail logs err at a level matching its kind and wraps it with op.
func (e *Engine) fail(op string, err error, kv ...any) error {
	kind := casework.KindOf(err)
	args := append([]any{"op", op, "kind", string(kind), "error", err}, kv...)
	switch {
	case casework.IsConflict(err), kind == casework.KindNotFound,
		kind == casework.KindInvalidInput, kind == casework.KindForbiddenRole:
		e.logger.Debug("Lifecycle operation rejected", args...)
	case casework.IsTransient(err):
		e.logger.Warn("Lifecycle operation failed on store", args...)
	default:
		e.logger.Error("Lifecycle operation failed", args...)
	}
	return fmt.Errorf("%s: %w", op, err)
}

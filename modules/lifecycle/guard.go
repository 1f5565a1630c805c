package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
	"github.com/go-monolith/mono/pkg/types"
)

// Guard keeps each actor's active-case flag in step with the task table.
// It only runs inside a transition's transaction and never repairs a
// mismatch it finds.
type Guard struct {
	logger types.Logger
}

// NewGuard creates a Guard that reports divergences to logger.
func NewGuard(logger types.Logger) *Guard {
	return &Guard{logger: logger}
}

// Divergence describes an actor whose flag disagrees with its tasks.
type Divergence struct {
	ActorID    string        `json:"actor_id"`
	Code       string        `json:"code"`
	Role       casework.Role `json:"role"`
	ActiveCase bool          `json:"active_case"`
	HeldTasks  []uint64      `json:"held_tasks"`
}

// Acquire marks actor as holding a case in role. It fails with
// ErrActiveCaseConflict when the actor already holds one.
func (g *Guard) Acquire(ctx context.Context, tx casework.Tx, actor *casework.Actor, role casework.Role) error {
	if actor.ActiveCase {
		return casework.ErrActiveCaseConflict
	}

	held, err := tx.HeldTasks(ctx, actor.ID, role)
	if err != nil {
		return err
	}
	if len(held) > 0 {
		return g.diverged(actor.ID, actor.Code, role, false, held)
	}

	if err := tx.SetActiveCase(ctx, actor.ID, false, true); err != nil {
		if errors.Is(err, casework.ErrStale) {
			return casework.ErrActiveCaseConflict
		}
		return err
	}
	return nil
}

// Release clears actorID's flag after the transition that ended its case has
// been written in the same transaction.
func (g *Guard) Release(ctx context.Context, tx casework.Tx, actorID string, role casework.Role) error {
	held, err := tx.HeldTasks(ctx, actorID, role)
	if err != nil {
		return err
	}
	if len(held) > 0 {
		return g.diverged(actorID, "", role, true, held)
	}

	if err := tx.SetActiveCase(ctx, actorID, true, false); err != nil {
		if errors.Is(err, casework.ErrStale) {
			return g.diverged(actorID, "", role, false, nil)
		}
		return err
	}
	return nil
}

// Inspect compares actor's flag with the tasks it holds. It returns nil when
// they agree.
func (g *Guard) Inspect(ctx context.Context, tx casework.Tx, actor *casework.Actor) (*Divergence, error) {
	role := actor.Role
	if role != casework.RoleRequester && role != casework.RoleMediator {
		if actor.ActiveCase {
			return &Divergence{ActorID: actor.ID, Code: actor.Code, Role: role, ActiveCase: true}, nil
		}
		return nil, nil
	}

	held, err := tx.HeldTasks(ctx, actor.ID, role)
	if err != nil {
		return nil, err
	}
	consistent := (actor.ActiveCase && len(held) == 1) || (!actor.ActiveCase && len(held) == 0)
	if consistent {
		return nil, nil
	}
	return &Divergence{
		ActorID:    actor.ID,
		Code:       actor.Code,
		Role:       role,
		ActiveCase: actor.ActiveCase,
		HeldTasks:  taskIDs(held),
	}, nil
}

func (g *Guard) diverged(actorID, code string, role casework.Role, flag bool, held []*casework.Task) error {
	ids := taskIDs(held)
	g.logger.Error("Active-case flag diverged from task table",
		"actor_id", actorID,
		"code", code,
		"role", string(role),
		"active_case", flag,
		"held_tasks", ids,
	)
	return fmt.Errorf("%w: actor %s (%s) flag=%v held=%v", casework.ErrActiveCaseDiverged, actorID, role, flag, ids)
}

func taskIDs(tasks []*casework.Task) []uint64 {
	ids := make([]uint64, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

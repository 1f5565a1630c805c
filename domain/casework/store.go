package casework

import "context"

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

// NormalizePage applies the default limit and validates the bounds.
func NormalizePage(limit, offset int) (Page, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit < 1 || limit > MaxPageLimit || offset < 0 {
		return Page{}, ErrInvalidPage
	}
	return Page{Limit: limit, Offset: offset}, nil
}

// TaskFilter selects tasks for an actor-scoped listing.
type TaskFilter struct {
	ActorID string
	Role    Role
	State   State // empty means any state
}

// Store is the transactional persistence of actors and tasks.
//
// Read methods on Store run outside any transaction and may observe state that
// is stale by the time the caller acts on it. Every lifecycle decision must go
// through InTx.
type Store interface {
	// InTx runs fn in one isolated transaction. A non-nil return rolls back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetTask(ctx context.Context, id uint64) (*Task, error)
	// ListTasksByState returns tasks in state ordered by ascending id.
	ListTasksByState(ctx context.Context, state State, page Page) ([]*Task, error)
	// ListTasksFor returns tasks referencing the actor, newest first.
	ListTasksFor(ctx context.Context, filter TaskFilter, page Page) ([]*Task, error)

	CreateActor(ctx context.Context, actor *Actor) error
	GetActor(ctx context.Context, id string) (*Actor, error)
	FindActorByCode(ctx context.Context, code string) (*Actor, error)
	// ListActors returns actors with role, or all actors when role is empty.
	ListActors(ctx context.Context, role Role) ([]*Actor, error)

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of primitives available inside a transaction. Backends that
// lock rows take the lock in the Get methods; conditional writes are always
// checked regardless of locking.
type Tx interface {
	GetTask(ctx context.Context, id uint64) (*Task, error)
	GetActor(ctx context.Context, id string) (*Actor, error)

	// InsertTask stores a new task and assigns its id.
	InsertTask(ctx context.Context, task *Task) error
	// AdvanceTask writes the columns set by the transition into task.State,
	// only if the stored row is still in from. Returns ErrStale otherwise.
	AdvanceTask(ctx context.Context, task *Task, from State) error

	// SetActiveCase flips the actor's flag from -> to. Returns ErrStale when
	// the stored flag is not from.
	SetActiveCase(ctx context.Context, actorID string, from, to bool) error
	// HeldTasks returns the non-terminal tasks that count toward the actor's
	// active case in role, oldest first.
	HeldTasks(ctx context.Context, actorID string, role Role) ([]*Task, error)
}

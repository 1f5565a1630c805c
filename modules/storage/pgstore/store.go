// Package pgstore implements casework.Store on PostgreSQL with pgx.
//
// Transactions take row locks with SELECT ... FOR UPDATE when they read the
// task and actors they are about to change. Writes still name their expected
// prior state, so a missing lock degrades to a conflict rather than a double
// assignment.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	taskColumns  = `id, requester_id, mediator_id, location, state, created_at, claimed_at, resolved_at, completed_at, final_note`
	actorColumns = `id, code, email, password_hash, first_name, last_name, role, active_case, created_at`
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed casework.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ casework.Store = (*Store)(nil)

// Open connects to databaseURL, verifies the connection and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// InTx runs fn in a READ COMMITTED transaction; row locks provide isolation
// for the rows a transition touches.
func (s *Store) InTx(ctx context.Context, fn func(tx casework.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&txStore{db: tx})
	})
	return classify("transaction", err)
}

func (s *Store) GetTask(ctx context.Context, id uint64) (*casework.Task, error) {
	return getTask(ctx, s.pool, id, false)
}

func (s *Store) ListTasksByState(ctx context.Context, state casework.State, page casework.Page) ([]*casework.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE state = $1 ORDER BY id ASC LIMIT $2 OFFSET $3`,
		string(state), page.Limit, page.Offset)
	if err != nil {
		return nil, classify("list tasks by state", err)
	}
	return collectTasks(rows)
}

func (s *Store) ListTasksFor(ctx context.Context, filter casework.TaskFilter, page casework.Page) ([]*casework.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE TRUE`
	args := []any{}
	switch filter.Role {
	case casework.RoleRequester:
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(` AND requester_id = $%d`, len(args))
	case casework.RoleMediator:
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(` AND mediator_id = $%d`, len(args))
	}
	if filter.State != "" {
		args = append(args, string(filter.State))
		query += fmt.Sprintf(` AND state = $%d`, len(args))
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list tasks for actor", err)
	}
	return collectTasks(rows)
}

func (s *Store) CreateActor(ctx context.Context, a *casework.Actor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO actors (`+actorColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Code, a.Email, a.PasswordHash, a.FirstName, a.LastName, string(a.Role), a.ActiveCase, a.CreatedAt)
	if err != nil {
		if isPgDuplicateKeyError(err) {
			return casework.ErrActorExists
		}
		return classify("create actor", err)
	}
	return nil
}

func (s *Store) GetActor(ctx context.Context, id string) (*casework.Actor, error) {
	return getActor(ctx, s.pool, `id = $1`, id, false)
}

func (s *Store) FindActorByCode(ctx context.Context, code string) (*casework.Actor, error) {
	return getActor(ctx, s.pool, `code = $1`, code, false)
}

func (s *Store) ListActors(ctx context.Context, role casework.Role) ([]*casework.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, string(role))
	}
	query += ` ORDER BY created_at ASC, code ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list actors", err)
	}
	actors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*casework.Actor, error) {
		return scanActor(row)
	})
	if err != nil {
		return nil, classify("list actors", err)
	}
	return actors, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// txStore runs the transaction primitives on a pgx.Tx, locking rows on read.
type txStore struct {
	db pgx.Tx
}

func (t *txStore) GetTask(ctx context.Context, id uint64) (*casework.Task, error) {
	return getTask(ctx, t.db, id, true)
}

func (t *txStore) GetActor(ctx context.Context, id string) (*casework.Actor, error) {
	return getActor(ctx, t.db, `id = $1`, id, true)
}

func (t *txStore) InsertTask(ctx context.Context, task *casework.Task) error {
	err := t.db.QueryRow(ctx,
		`INSERT INTO tasks (requester_id, location, state, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		task.RequesterID, task.Location, string(task.State), task.CreatedAt,
	).Scan(&task.ID)
	if err != nil {
		return classify("insert task", err)
	}
	return nil
}

func (t *txStore) AdvanceTask(ctx context.Context, task *casework.Task, from casework.State) error {
	if task.State.Rank() != from.Rank()+1 {
		return fmt.Errorf("%w: %s -> %s", casework.ErrInvalidState, from, task.State)
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	switch task.State {
	case casework.StateClaimed:
		tag, err = t.db.Exec(ctx,
			`UPDATE tasks SET state = $3, mediator_id = $4, claimed_at = $5 WHERE id = $1 AND state = $2`,
			task.ID, string(from), string(task.State), task.MediatorID, task.ClaimedAt)
	case casework.StateResolved:
		tag, err = t.db.Exec(ctx,
			`UPDATE tasks SET state = $3, resolved_at = $4 WHERE id = $1 AND state = $2`,
			task.ID, string(from), string(task.State), task.ResolvedAt)
	case casework.StateCompleted:
		tag, err = t.db.Exec(ctx,
			`UPDATE tasks SET state = $3, completed_at = $4, final_note = $5 WHERE id = $1 AND state = $2`,
			task.ID, string(from), string(task.State), task.CompletedAt, task.FinalNote)
	}
	if err != nil {
		return classify("advance task", err)
	}
	if tag.RowsAffected() == 0 {
		return casework.ErrStale
	}
	return nil
}

func (t *txStore) SetActiveCase(ctx context.Context, actorID string, from, to bool) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE actors SET active_case = $3, updated_at = NOW() WHERE id = $1 AND active_case = $2`,
		actorID, from, to)
	if err != nil {
		return classify("set active case", err)
	}
	if tag.RowsAffected() == 0 {
		return casework.ErrStale
	}
	return nil
}

func (t *txStore) HeldTasks(ctx context.Context, actorID string, role casework.Role) ([]*casework.Task, error) {
	var cond string
	switch role {
	case casework.RoleRequester:
		cond = `requester_id = $1 AND state IN ('open', 'claimed')`
	case casework.RoleMediator:
		cond = `mediator_id = $1 AND state = 'claimed'`
	default:
		return nil, nil
	}

	rows, err := t.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+cond+` ORDER BY id ASC`, actorID)
	if err != nil {
		return nil, classify("held tasks", err)
	}
	return collectTasks(rows)
}

func getTask(ctx context.Context, db dbtx, id uint64, lock bool) (*casework.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	task, err := scanTask(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, casework.ErrTaskNotFound
		}
		return nil, classify("get task", err)
	}
	return task, nil
}

func getActor(ctx context.Context, db dbtx, cond string, arg any, lock bool) (*casework.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE ` + cond
	if lock {
		query += ` FOR UPDATE`
	}
	actor, err := scanActor(db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, casework.ErrActorNotFound
		}
		return nil, classify("get actor", err)
	}
	return actor, nil
}

func scanTask(row pgx.Row) (*casework.Task, error) {
	var (
		t          casework.Task
		mediatorID *string
		state      string
	)
	err := row.Scan(&t.ID, &t.RequesterID, &mediatorID, &t.Location, &state,
		&t.CreatedAt, &t.ClaimedAt, &t.ResolvedAt, &t.CompletedAt, &t.FinalNote)
	if err != nil {
		return nil, err
	}
	if mediatorID != nil {
		t.MediatorID = *mediatorID
	}
	if t.State, err = casework.ParseState(state); err != nil {
		return nil, fmt.Errorf("%w: task %d has state %q", casework.ErrIntegrity, t.ID, state)
	}
	return &t, nil
}

func scanActor(row pgx.Row) (*casework.Actor, error) {
	var (
		a    casework.Actor
		role string
	)
	err := row.Scan(&a.ID, &a.Code, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&role, &a.ActiveCase, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if a.Role, err = casework.ParseRole(role); err != nil {
		return nil, fmt.Errorf("%w: actor %s has role %q", casework.ErrIntegrity, a.ID, role)
	}
	return &a, nil
}

func collectTasks(rows pgx.Rows) ([]*casework.Task, error) {
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*casework.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, classify("scan tasks", err)
	}
	return tasks, nil
}

// classify maps pgx failures onto the store taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if pgconn.Timeout(err) && !errors.Is(err, casework.ErrStoreTimeout) {
		return fmt.Errorf("%s: %w: %w", op, casework.ErrStoreTimeout, err)
	}
	return casework.StoreFailure(op, err)
}

// isPgDuplicateKeyError checks if error is a PostgreSQL unique violation.
func isPgDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

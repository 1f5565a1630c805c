// Package sqlstore implements casework.Store on GORM and SQLite.
//
// SQLite has no row locks, so every transition relies on conditional updates:
// a write names the state it expects the row to be in and the caller checks
// RowsAffected. The pool is limited to one connection, which serializes
// transactions and keeps ":memory:" databases shared across calls.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the SQLite-backed casework.Store.
type Store struct {
	db *gorm.DB
}

var _ casework.Store = (*Store)(nil)

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string, debug bool) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New wraps an open GORM handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&actorRecord{}, &taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// InTx runs fn inside a GORM transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx casework.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{q: queries{db: tx}})
	})
	return casework.StoreFailure("transaction", err)
}

func (s *Store) GetTask(ctx context.Context, id uint64) (*casework.Task, error) {
	return s.q(ctx).getTask(id)
}

func (s *Store) ListTasksByState(ctx context.Context, state casework.State, page casework.Page) ([]*casework.Task, error) {
	var recs []*taskRecord
	err := s.db.WithContext(ctx).
		Where("state = ?", string(state)).
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, casework.StoreFailure("list tasks by state", err)
	}
	return tasksToDomain(recs)
}

func (s *Store) ListTasksFor(ctx context.Context, filter casework.TaskFilter, page casework.Page) ([]*casework.Task, error) {
	q := s.db.WithContext(ctx).Model(&taskRecord{})
	switch filter.Role {
	case casework.RoleRequester:
		q = q.Where("requester_id = ?", filter.ActorID)
	case casework.RoleMediator:
		q = q.Where("mediator_id = ?", filter.ActorID)
	}
	if filter.State != "" {
		q = q.Where("state = ?", string(filter.State))
	}

	var recs []*taskRecord
	if err := q.Order("id DESC").Limit(page.Limit).Offset(page.Offset).Find(&recs).Error; err != nil {
		return nil, casework.StoreFailure("list tasks for actor", err)
	}
	return tasksToDomain(recs)
}

func (s *Store) CreateActor(ctx context.Context, actor *casework.Actor) error {
	if err := s.db.WithContext(ctx).Create(toActorRecord(actor)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return casework.ErrActorExists
		}
		return casework.StoreFailure("create actor", err)
	}
	return nil
}

func (s *Store) GetActor(ctx context.Context, id string) (*casework.Actor, error) {
	return s.q(ctx).getActor("id = ?", id)
}

func (s *Store) FindActorByCode(ctx context.Context, code string) (*casework.Actor, error) {
	return s.q(ctx).getActor("code = ?", code)
}

func (s *Store) ListActors(ctx context.Context, role casework.Role) ([]*casework.Actor, error) {
	q := s.db.WithContext(ctx).Order("created_at ASC, code ASC")
	if role != "" {
		q = q.Where("role = ?", string(role))
	}

	var recs []*actorRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, casework.StoreFailure("list actors", err)
	}
	actors := make([]*casework.Actor, 0, len(recs))
	for _, rec := range recs {
		a, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		actors = append(actors, a)
	}
	return actors, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) q(ctx context.Context) queries {
	return queries{db: s.db.WithContext(ctx)}
}

// txStore exposes the transaction primitives on a GORM transaction handle.
type txStore struct {
	q queries
}

func (t *txStore) GetTask(ctx context.Context, id uint64) (*casework.Task, error) {
	return t.q.with(ctx).getTask(id)
}

func (t *txStore) GetActor(ctx context.Context, id string) (*casework.Actor, error) {
	return t.q.with(ctx).getActor("id = ?", id)
}

func (t *txStore) InsertTask(ctx context.Context, task *casework.Task) error {
	rec := toTaskRecord(task)
	rec.ID = 0
	if err := t.q.with(ctx).db.Create(rec).Error; err != nil {
		return casework.StoreFailure("insert task", err)
	}
	task.ID = rec.ID
	return nil
}

func (t *txStore) AdvanceTask(ctx context.Context, task *casework.Task, from casework.State) error {
	cols, err := transitionColumns(task, from)
	if err != nil {
		return err
	}
	res := t.q.with(ctx).db.Model(&taskRecord{}).
		Where("id = ? AND state = ?", task.ID, string(from)).
		Updates(cols)
	if res.Error != nil {
		return casework.StoreFailure("advance task", res.Error)
	}
	if res.RowsAffected == 0 {
		return casework.ErrStale
	}
	return nil
}

func (t *txStore) SetActiveCase(ctx context.Context, actorID string, from, to bool) error {
	res := t.q.with(ctx).db.Model(&actorRecord{}).
		Where("id = ? AND active_case = ?", actorID, from).
		Update("active_case", to)
	if res.Error != nil {
		return casework.StoreFailure("set active case", res.Error)
	}
	if res.RowsAffected == 0 {
		return casework.ErrStale
	}
	return nil
}

func (t *txStore) HeldTasks(ctx context.Context, actorID string, role casework.Role) ([]*casework.Task, error) {
	q := t.q.with(ctx).db
	switch role {
	case casework.RoleRequester:
		q = q.Where("requester_id = ? AND state IN ?", actorID,
			[]string{string(casework.StateOpen), string(casework.StateClaimed)})
	case casework.RoleMediator:
		q = q.Where("mediator_id = ? AND state = ?", actorID, string(casework.StateClaimed))
	default:
		return nil, nil
	}

	var recs []*taskRecord
	if err := q.Order("id ASC").Find(&recs).Error; err != nil {
		return nil, casework.StoreFailure("held tasks", err)
	}
	return tasksToDomain(recs)
}

// queries holds the lookups shared by Store and txStore.
type queries struct {
	db *gorm.DB
}

func (q queries) with(ctx context.Context) queries {
	return queries{db: q.db.WithContext(ctx)}
}

func (q queries) getTask(id uint64) (*casework.Task, error) {
	var rec taskRecord
	if err := q.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, casework.ErrTaskNotFound
		}
		return nil, casework.StoreFailure("get task", err)
	}
	return rec.toDomain()
}

func (q queries) getActor(cond string, arg any) (*casework.Actor, error) {
	var rec actorRecord
	if err := q.db.First(&rec, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, casework.ErrActorNotFound
		}
		return nil, casework.StoreFailure("get actor", err)
	}
	return rec.toDomain()
}

func tasksToDomain(recs []*taskRecord) ([]*casework.Task, error) {
	tasks := make([]*casework.Task, 0, len(recs))
	for _, rec := range recs {
		t, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

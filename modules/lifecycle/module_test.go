package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestModule(t *testing.T) (*LifecycleModule, casework.Store) {
	t.Helper()

	ctx := context.Background()
	store := storage.NewModule(storage.Config{Driver: storage.DriverSQLite, Path: ":memory:"}, &mockLogger{})
	require.NoError(t, store.Start(ctx))
	t.Cleanup(func() { _ = store.Stop(ctx) })

	clk := clock.NewManual(time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC))
	m := NewModule(store, clk, time.Second, &mockLogger{})
	require.NoError(t, m.Start(ctx))
	return m, store.Store()
}

func seedActor(t *testing.T, s casework.Store, code string, role casework.Role) *casework.Actor {
	t.Helper()

	a := &casework.Actor{ID: uuid.New().String(), Code: code, Email: code + "@example.com", Role: role, PasswordHash: "hash"}
	require.NoError(t, s.CreateActor(context.Background(), a))
	return a
}

func TestLifecycleModule_StartRequiresStore(t *testing.T) {
	store := storage.NewModule(storage.Config{Driver: storage.DriverSQLite, Path: ":memory:"}, &mockLogger{})
	m := NewModule(store, clock.NewManual(time.Now()), time.Second, &mockLogger{})

	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}

func TestLifecycleModule_HandlersCarryErrorKinds(t *testing.T) {
	m, s := createTestModule(t)
	ctx := context.Background()
	r := seedActor(t, s, "r", casework.RoleRequester)
	med := seedActor(t, s, "m", casework.RoleMediator)

	created, err := m.createTask(ctx, CreateTaskRequest{RequesterID: r.ID, Location: "Lab 3"}, nil)
	require.NoError(t, err)
	require.Nil(t, created.Error)
	require.NotNil(t, created.Task)
	assert.Equal(t, casework.StateOpen, created.Task.State)

	again, err := m.createTask(ctx, CreateTaskRequest{RequesterID: r.ID, Location: "Lab 4"}, nil)
	require.NoError(t, err)
	require.NotNil(t, again.Error)
	assert.Equal(t, casework.KindActiveCaseConflict, again.Error.Kind)
	assert.ErrorIs(t, again.Error.Err(), casework.ErrActiveCaseConflict)

	claimed, err := m.claimTask(ctx, ClaimTaskRequest{MediatorID: med.ID, TaskID: created.Task.ID}, nil)
	require.NoError(t, err)
	require.Nil(t, claimed.Error)
	assert.Equal(t, med.ID, claimed.Task.MediatorID)

	missing, err := m.getTask(ctx, GetTaskRequest{TaskID: 404}, nil)
	require.NoError(t, err)
	require.NotNil(t, missing.Error)
	assert.Equal(t, casework.KindNotFound, missing.Error.Kind)

	queue, err := m.listOpenTasks(ctx, ListOpenTasksRequest{Limit: 10}, nil)
	require.NoError(t, err)
	assert.Nil(t, queue.Error)
	assert.NotNil(t, queue.Tasks)
	assert.Zero(t, queue.Total)

	bad, err := m.listOpenTasks(ctx, ListOpenTasksRequest{Limit: -1}, nil)
	require.NoError(t, err)
	require.NotNil(t, bad.Error)
	assert.Equal(t, casework.KindInvalidInput, bad.Error.Kind)

	mine, err := m.listActorTasks(ctx, ListActorTasksRequest{ActorID: r.ID, Limit: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)

	active, err := m.activeCase(ctx, ActiveCaseRequest{ActorID: med.ID}, nil)
	require.NoError(t, err)
	require.Nil(t, active.Error)
	assert.Equal(t, created.Task.ID, active.Task.ID)
}

func TestLifecycleModule_IntegrityFeedsHealth(t *testing.T) {
	m, s := createTestModule(t)
	ctx := context.Background()
	med := seedActor(t, s, "m", casework.RoleMediator)

	resp, err := m.checkIntegrity(ctx, CheckIntegrityRequest{}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Divergences)
	assert.True(t, m.Health(ctx).Healthy)

	require.NoError(t, s.InTx(ctx, func(tx casework.Tx) error {
		return tx.SetActiveCase(ctx, med.ID, false, true)
	}))

	resp, err = m.checkIntegrity(ctx, CheckIntegrityRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Divergences, 1)
	assert.Equal(t, med.ID, resp.Divergences[0].ActorID)

	h := m.Health(ctx)
	assert.False(t, h.Healthy)
	assert.EqualValues(t, 1, h.Details["diverged_actors"])
}

func TestLifecycleModule_PublishWithoutBus(t *testing.T) {
	m, _ := createTestModule(t)

	assert.NotPanics(t, func() {
		m.Publish(context.Background(), casework.EventClaim, &casework.Task{ID: 1})
	})
}

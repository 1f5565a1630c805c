package account

import (
	"context"
	"testing"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

func startModule(t *testing.T, config Config) *AccountModule {
	t.Helper()

	ctx := context.Background()
	store := storage.NewModule(storage.Config{Driver: storage.DriverSQLite, Path: ":memory:"}, &mockLogger{})
	require.NoError(t, store.Start(ctx))
	t.Cleanup(func() { _ = store.Stop(ctx) })

	config.BcryptCost = 4
	m := NewModule(config, store, clock.NewManual(time.Now()), &mockLogger{})
	require.NoError(t, m.Start(ctx))
	return m
}

func TestAccountModule_SeedsDemoActors(t *testing.T) {
	m := startModule(t, Config{JWT: testJWTConfig(), SeedDemo: true})
	ctx := context.Background()

	assert.True(t, m.Health(ctx).Healthy)

	resp, err := m.handleListMediators(ctx, ListMediatorsRequest{}, nil)
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
	assert.Len(t, resp.Profiles, 2)

	login, err := m.handleLogin(ctx, LoginRequest{Code: "mediador2", Password: DemoPassword}, nil)
	require.NoError(t, err)
	require.Nil(t, login.Error)

	valid, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: login.Tokens.AccessToken}, nil)
	require.NoError(t, err)
	assert.True(t, valid.Valid)
	assert.Equal(t, casework.RoleMediator, valid.Claims.Role)
}

func TestAccountModule_HandlersReturnKinds(t *testing.T) {
	m := startModule(t, Config{JWT: testJWTConfig()})
	ctx := context.Background()

	reg, err := m.handleRegister(ctx, RegisterRequest{Code: "r1", Email: "r1@example.com", Password: "password123"}, nil)
	require.NoError(t, err)
	require.Nil(t, reg.Error)
	assert.Equal(t, casework.RoleRequester, reg.Profile.Role)

	dup, err := m.handleRegister(ctx, RegisterRequest{Code: "r1", Email: "r1@example.com", Password: "password123"}, nil)
	require.NoError(t, err)
	require.NotNil(t, dup.Error)
	assert.Equal(t, casework.KindDuplicate, dup.Error.Kind)

	login, err := m.handleLogin(ctx, LoginRequest{Code: "r1", Password: "nope-nope"}, nil)
	require.NoError(t, err)
	require.NotNil(t, login.Error)
	assert.Equal(t, KindInvalidCredentials, login.Error.Kind)

	invalid, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: "junk"}, nil)
	require.NoError(t, err)
	assert.False(t, invalid.Valid)
	assert.Equal(t, KindInvalidToken, invalid.Error.Kind)

	missing, err := m.handleGetActor(ctx, GetActorRequest{ActorID: "missing"}, nil)
	require.NoError(t, err)
	assert.Equal(t, casework.KindNotFound, missing.Error.Kind)
}

func TestAccountModule_StartFailsOnBadSeedFile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewModule(storage.Config{Driver: storage.DriverSQLite, Path: ":memory:"}, &mockLogger{})
	require.NoError(t, store.Start(ctx))
	t.Cleanup(func() { _ = store.Stop(ctx) })

	m := NewModule(Config{SeedFile: "/nonexistent/actors.yaml"}, store, clock.NewManual(time.Now()), &mockLogger{})
	assert.Error(t, m.Start(ctx))
}

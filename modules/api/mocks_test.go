package api

import (
	"context"
	"errors"

	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/account"
	"github.com/example/incident-desk/modules/audit"
	"github.com/example/incident-desk/modules/lifecycle"
	"github.com/go-monolith/mono/pkg/types"
)

var errNotImplemented = errors.New("not implemented")

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)          {}
func (m *mockLogger) Info(msg string, args ...any)           {}
func (m *mockLogger) Warn(msg string, args ...any)           {}
func (m *mockLogger) Error(msg string, args ...any)          {}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// mockAccountPort implements account.AccountPort for testing
type mockAccountPort struct {
	registerFunc      func(ctx context.Context, req *account.RegisterRequest) (*account.Profile, error)
	loginFunc         func(ctx context.Context, code, password string) (*account.TokenPair, error)
	refreshFunc       func(ctx context.Context, refreshToken string) (*account.TokenPair, error)
	validateTokenFunc func(ctx context.Context, token string) (*account.Claims, error)
	getActorFunc      func(ctx context.Context, actorID string) (*account.Profile, error)
	listMediatorsFunc func(ctx context.Context) ([]*account.Profile, error)
}

func (m *mockAccountPort) Register(ctx context.Context, req *account.RegisterRequest) (*account.Profile, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAccountPort) Login(ctx context.Context, code, password string) (*account.TokenPair, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, code, password)
	}
	return nil, errNotImplemented
}

func (m *mockAccountPort) RefreshTokens(ctx context.Context, refreshToken string) (*account.TokenPair, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, refreshToken)
	}
	return nil, errNotImplemented
}

func (m *mockAccountPort) ValidateToken(ctx context.Context, token string) (*account.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockAccountPort) GetActor(ctx context.Context, actorID string) (*account.Profile, error) {
	if m.getActorFunc != nil {
		return m.getActorFunc(ctx, actorID)
	}
	return nil, errNotImplemented
}

func (m *mockAccountPort) ListMediators(ctx context.Context) ([]*account.Profile, error) {
	if m.listMediatorsFunc != nil {
		return m.listMediatorsFunc(ctx)
	}
	return nil, errNotImplemented
}

// mockLifecyclePort implements lifecycle.LifecyclePort for testing
type mockLifecyclePort struct {
	createFunc         func(ctx context.Context, requesterID, location string) (*casework.Task, error)
	claimFunc          func(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error)
	resolveFunc        func(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error)
	completeFunc       func(ctx context.Context, requesterID string, taskID uint64, finalNote string) (*casework.Task, error)
	getFunc            func(ctx context.Context, taskID uint64) (*casework.Task, error)
	listOpenFunc       func(ctx context.Context, limit, offset int) ([]*casework.Task, error)
	listActorFunc      func(ctx context.Context, actorID string, state casework.State, limit, offset int) ([]*casework.Task, error)
	activeCaseFunc     func(ctx context.Context, actorID string) (*casework.Task, error)
	checkIntegrityFunc func(ctx context.Context) ([]lifecycle.Divergence, error)
}

func (m *mockLifecyclePort) CreateTask(ctx context.Context, requesterID, location string) (*casework.Task, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, requesterID, location)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) ClaimOpenTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error) {
	if m.claimFunc != nil {
		return m.claimFunc(ctx, mediatorID, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) ResolveTask(ctx context.Context, mediatorID string, taskID uint64) (*casework.Task, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, mediatorID, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) CompleteTask(ctx context.Context, requesterID string, taskID uint64, finalNote string) (*casework.Task, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, requesterID, taskID, finalNote)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) GetTask(ctx context.Context, taskID uint64) (*casework.Task, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) ListOpenTasks(ctx context.Context, limit, offset int) ([]*casework.Task, error) {
	if m.listOpenFunc != nil {
		return m.listOpenFunc(ctx, limit, offset)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) ListActorTasks(ctx context.Context, actorID string, state casework.State, limit, offset int) ([]*casework.Task, error) {
	if m.listActorFunc != nil {
		return m.listActorFunc(ctx, actorID, state, limit, offset)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) ActiveCase(ctx context.Context, actorID string) (*casework.Task, error) {
	if m.activeCaseFunc != nil {
		return m.activeCaseFunc(ctx, actorID)
	}
	return nil, errNotImplemented
}

func (m *mockLifecyclePort) CheckIntegrity(ctx context.Context) ([]lifecycle.Divergence, error) {
	if m.checkIntegrityFunc != nil {
		return m.checkIntegrityFunc(ctx)
	}
	return nil, errNotImplemented
}

// mockAuditPort implements audit.AuditPort for testing
type mockAuditPort struct {
	recentFunc func(ctx context.Context, limit int, taskID uint64) (*audit.RecentEntriesResponse, error)
}

func (m *mockAuditPort) RecentEntries(ctx context.Context, limit int, taskID uint64) (*audit.RecentEntriesResponse, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, limit, taskID)
	}
	return nil, errNotImplemented
}

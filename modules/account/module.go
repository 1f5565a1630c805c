// Package account registers actors, issues JWTs and answers identity lookups.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/modules/storage"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Config configures the account module.
type Config struct {
	JWT        JWTConfig
	BcryptCost int
	SeedFile   string
	SeedDemo   bool
}

// AccountModule provides identity services backed by the shared store.
type AccountModule struct {
	config  Config
	storage *storage.StorageModule
	clock   clock.Clock
	service *AccountService
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*AccountModule)(nil)
var _ mono.ServiceProviderModule = (*AccountModule)(nil)
var _ mono.HealthCheckableModule = (*AccountModule)(nil)

// NewModule creates a new AccountModule.
func NewModule(config Config, storageModule *storage.StorageModule, clk clock.Clock, logger types.Logger) *AccountModule {
	if config.JWT.SecretKey == "" {
		config.JWT = DefaultJWTConfig()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultBcryptCost
	}
	return &AccountModule{
		config:  config,
		storage: storageModule,
		clock:   clk,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *AccountModule) Name() string {
	return "account"
}

// Start builds the service and provisions seed actors.
func (m *AccountModule) Start(ctx context.Context) error {
	if m.storage == nil || m.storage.Store() == nil {
		return fmt.Errorf("store not initialized: register the storage module first")
	}

	m.service = NewAccountService(
		m.storage.Store(),
		NewPasswordHasherWithCost(m.config.BcryptCost),
		NewJWTManager(m.config.JWT),
		m.clock,
	)

	var seeds []SeedActor
	switch {
	case m.config.SeedFile != "":
		loaded, err := LoadSeedFile(m.config.SeedFile)
		if err != nil {
			return err
		}
		seeds = loaded
	case m.config.SeedDemo:
		seeds = DemoSeeds()
	}
	if len(seeds) > 0 {
		seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		created, err := m.service.Seed(seedCtx, seeds)
		if err != nil {
			return fmt.Errorf("failed to seed actors: %w", err)
		}
		m.logger.Info("Seeded actors", "created", created, "listed", len(seeds))
	}

	m.logger.Info("Account module started", "issuer", m.config.JWT.Issuer)
	return nil
}

// Stop shuts down the module.
func (m *AccountModule) Stop(_ context.Context) error {
	m.logger.Info("Account module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AccountModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"issuer":            m.config.JWT.Issuer,
			"access_token_ttl":  m.config.JWT.AccessTokenDuration.String(),
			"refresh_token_ttl": m.config.JWT.RefreshTokenDuration.String(),
		},
	}
}

// Service returns the account service, or nil before Start.
func (m *AccountModule) Service() *AccountService {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
func (m *AccountModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"register",
		json.Unmarshal,
		json.Marshal,
		m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"login",
		json.Unmarshal,
		json.Marshal,
		m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"refresh-token",
		json.Unmarshal,
		json.Marshal,
		m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"validate-token",
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"get-actor",
		json.Unmarshal,
		json.Marshal,
		m.handleGetActor,
	); err != nil {
		return fmt.Errorf("failed to register get-actor service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"list-mediators",
		json.Unmarshal,
		json.Marshal,
		m.handleListMediators,
	); err != nil {
		return fmt.Errorf("failed to register list-mediators service: %w", err)
	}

	m.logger.Info("Registered account services",
		"services", []string{"register", "login", "refresh-token", "validate-token", "get-actor", "list-mediators"})
	return nil
}

func (m *AccountModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (ProfileResponse, error) {
	actor, err := m.service.Register(ctx, &req)
	if err != nil {
		m.logger.Debug("Registration rejected", "code", req.Code, "error", err)
		return ProfileResponse{Error: newErrorBody(err)}, nil
	}
	m.logger.Info("Requester registered", "actor_id", actor.ID, "code", actor.Code)
	return ProfileResponse{Profile: NewProfile(actor)}, nil
}

func (m *AccountModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.Login(ctx, req.Code, req.Password)
	if err != nil {
		m.logger.Debug("Login rejected", "code", req.Code, "error", err)
		return TokenResponse{Error: newErrorBody(err)}, nil
	}
	return TokenResponse{Tokens: tokens}, nil
}

func (m *AccountModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return TokenResponse{Error: newErrorBody(err)}, nil
	}
	return TokenResponse{Tokens: tokens}, nil
}

// handleValidateToken returns validation failures as data, not transport errors.
func (m *AccountModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: newErrorBody(err)}, nil
	}
	return ValidateTokenResponse{Valid: true, Claims: claims}, nil
}

func (m *AccountModule) handleGetActor(ctx context.Context, req GetActorRequest, _ *mono.Msg) (ProfileResponse, error) {
	actor, err := m.service.GetActor(ctx, req.ActorID)
	if err != nil {
		return ProfileResponse{Error: newErrorBody(err)}, nil
	}
	return ProfileResponse{Profile: NewProfile(actor)}, nil
}

func (m *AccountModule) handleListMediators(ctx context.Context, _ ListMediatorsRequest, _ *mono.Msg) (ProfileListResponse, error) {
	actors, err := m.service.ListMediators(ctx)
	if err != nil {
		return ProfileListResponse{Profiles: []*Profile{}, Error: newErrorBody(err)}, nil
	}
	profiles := make([]*Profile, 0, len(actors))
	for _, a := range actors {
		profiles = append(profiles, NewProfile(a))
	}
	return ProfileListResponse{Profiles: profiles}, nil
}

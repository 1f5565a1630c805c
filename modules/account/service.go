package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/google/uuid"
)

// AccountService handles registration, login and actor lookups.
type AccountService struct {
	store  casework.Store
	hasher *PasswordHasher
	jwt    *JWTManager
	clock  clock.Clock
}

// NewAccountService creates a new AccountService.
func NewAccountService(store casework.Store, hasher *PasswordHasher, jwt *JWTManager, clk clock.Clock) *AccountService {
	return &AccountService{
		store:  store,
		hasher: hasher,
		jwt:    jwt,
		clock:  clk,
	}
}

// Register creates a requester account. Mediators and admins are only
// provisioned through seeding.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*casework.Actor, error) {
	return s.create(ctx, req, casework.RoleRequester)
}

func (s *AccountService) create(ctx context.Context, req *RegisterRequest, role casework.Role) (*casework.Actor, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(req.Password) > 72 {
		return nil, ErrPasswordTooLong
	}

	if _, err := s.store.FindActorByCode(ctx, code); err == nil {
		return nil, casework.ErrActorExists
	} else if !errors.Is(err, casework.ErrNotFound) {
		return nil, fmt.Errorf("failed to check code: %w", err)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	actor := &casework.Actor{
		ID:           uuid.New().String(),
		Code:         code,
		Email:        strings.TrimSpace(req.Email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.CreateActor(ctx, actor); err != nil {
		return nil, fmt.Errorf("failed to create actor: %w", err)
	}
	return actor, nil
}

// Login checks code and password and issues a token pair.
func (s *AccountService) Login(ctx context.Context, code, password string) (*TokenPair, error) {
	actor, err := s.store.FindActorByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, casework.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}

	if !s.hasher.Verify(password, actor.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.generateTokenPair(actor)
}

// RefreshTokens exchanges a refresh token for a new pair. The role is re-read
// from the store so a changed role takes effect on refresh.
func (s *AccountService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	actor, err := s.store.GetActor(ctx, claims.ActorID)
	if err != nil {
		if errors.Is(err, casework.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}
	return s.generateTokenPair(actor)
}

// ValidateToken validates an access token and returns its claims.
func (s *AccountService) ValidateToken(_ context.Context, token string) (*Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &Claims{ActorID: claims.ActorID, Code: claims.Code, Role: claims.Role}, nil
}

// GetActor retrieves an actor by id.
func (s *AccountService) GetActor(ctx context.Context, actorID string) (*casework.Actor, error) {
	return s.store.GetActor(ctx, actorID)
}

// ListMediators returns every mediator, oldest account first.
func (s *AccountService) ListMediators(ctx context.Context) ([]*casework.Actor, error) {
	return s.store.ListActors(ctx, casework.RoleMediator)
}

func (s *AccountService) generateTokenPair(actor *casework.Actor) (*TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(actor)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(actor)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

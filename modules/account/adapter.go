package account

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AccountAdapter implements AccountPort using the service container.
type AccountAdapter struct {
	container mono.ServiceContainer
}

// NewAccountAdapter creates a new AccountAdapter.
func NewAccountAdapter(container mono.ServiceContainer) *AccountAdapter {
	if container == nil {
		panic("account adapter requires non-nil ServiceContainer")
	}
	return &AccountAdapter{container: container}
}

var _ AccountPort = (*AccountAdapter)(nil)

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w: %w", service, casework.ErrStoreUnavailable, err)
	}
	return nil
}

// Register creates a requester account.
func (a *AccountAdapter) Register(ctx context.Context, req *RegisterRequest) (*Profile, error) {
	var resp ProfileResponse
	if err := call(ctx, a.container, "register", req, &resp); err != nil {
		return nil, err
	}
	if err := bodyErr(resp.Error); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// Login exchanges credentials for a token pair.
func (a *AccountAdapter) Login(ctx context.Context, code, password string) (*TokenPair, error) {
	var resp TokenResponse
	if err := call(ctx, a.container, "login", &LoginRequest{Code: code, Password: password}, &resp); err != nil {
		return nil, err
	}
	if err := bodyErr(resp.Error); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// RefreshTokens renews a token pair.
func (a *AccountAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var resp TokenResponse
	if err := call(ctx, a.container, "refresh-token", &RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	if err := bodyErr(resp.Error); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// ValidateToken validates an access token and returns claims.
func (a *AccountAdapter) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	var resp ValidateTokenResponse
	if err := call(ctx, a.container, "validate-token", &ValidateTokenRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		if err := bodyErr(resp.Error); err != nil {
			return nil, err
		}
		return nil, ErrInvalidToken
	}
	return resp.Claims, nil
}

// GetActor retrieves a profile by actor id.
func (a *AccountAdapter) GetActor(ctx context.Context, actorID string) (*Profile, error) {
	var resp ProfileResponse
	if err := call(ctx, a.container, "get-actor", &GetActorRequest{ActorID: actorID}, &resp); err != nil {
		return nil, err
	}
	if err := bodyErr(resp.Error); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// ListMediators returns every mediator profile.
func (a *AccountAdapter) ListMediators(ctx context.Context) ([]*Profile, error) {
	var resp ProfileListResponse
	if err := call(ctx, a.container, "list-mediators", &ListMediatorsRequest{}, &resp); err != nil {
		return nil, err
	}
	if err := bodyErr(resp.Error); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

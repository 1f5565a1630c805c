package account

import (
	"context"
	"time"

	"github.com/example/incident-desk/domain/casework"
)

// TokenPair is an access token together with the refresh token that renews it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims identifies the caller of an authenticated request.
type Claims struct {
	ActorID string        `json:"actor_id"`
	Code    string        `json:"code"`
	Role    casework.Role `json:"role"`
}

// Profile is the public view of an actor.
type Profile struct {
	ID         string        `json:"id"`
	Code       string        `json:"code"`
	Email      string        `json:"email"`
	FirstName  string        `json:"first_name"`
	LastName   string        `json:"last_name"`
	Role       casework.Role `json:"role"`
	ActiveCase bool          `json:"active_case"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewProfile strips credentials from a.
func NewProfile(a *casework.Actor) *Profile {
	return &Profile{
		ID:         a.ID,
		Code:       a.Code,
		Email:      a.Email,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Role:       a.Role,
		ActiveCase: a.ActiveCase,
		CreatedAt:  a.CreatedAt,
	}
}

// RegisterRequest is the request for creating a requester account.
type RegisterRequest struct {
	Code      string `json:"code"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest is the request for exchanging credentials for tokens.
type LoginRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// RefreshRequest is the request for renewing a token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidateTokenRequest is the request for checking an access token.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// GetActorRequest is the request for an actor profile.
type GetActorRequest struct {
	ActorID string `json:"actor_id"`
}

// ListMediatorsRequest is the request for every mediator profile.
type ListMediatorsRequest struct{}

// ProfileResponse carries one profile or the failure.
type ProfileResponse struct {
	Profile *Profile            `json:"profile,omitempty"`
	Error   *casework.ErrorBody `json:"error,omitempty"`
}

// TokenResponse carries a token pair or the failure.
type TokenResponse struct {
	Tokens *TokenPair          `json:"tokens,omitempty"`
	Error  *casework.ErrorBody `json:"error,omitempty"`
}

// ValidateTokenResponse carries the claims of a valid token.
type ValidateTokenResponse struct {
	Valid  bool                `json:"valid"`
	Claims *Claims             `json:"claims,omitempty"`
	Error  *casework.ErrorBody `json:"error,omitempty"`
}

// ProfileListResponse carries a list of profiles.
type ProfileListResponse struct {
	Profiles []*Profile          `json:"profiles"`
	Error    *casework.ErrorBody `json:"error,omitempty"`
}

// AccountPort is the contract other modules use for identity operations.
type AccountPort interface {
	Register(ctx context.Context, req *RegisterRequest) (*Profile, error)
	Login(ctx context.Context, code, password string) (*TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	GetActor(ctx context.Context, actorID string) (*Profile, error)
	ListMediators(ctx context.Context) ([]*Profile, error)
}

package account

import (
	"errors"
	"testing"
	"time"

	"github.com/example/incident-desk/domain/casework"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "test-secret-key",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "test-issuer",
	}
}

var testActor = &casework.Actor{ID: "actor-123", Code: "mediador1", Role: casework.RoleMediator}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	config := testJWTConfig()
	manager := NewJWTManager(config)

	token, err := manager.GenerateAccessToken(testActor)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.ActorID != testActor.ID {
		t.Errorf("claims.ActorID = %v, want %v", claims.ActorID, testActor.ID)
	}
	if claims.Code != testActor.Code {
		t.Errorf("claims.Code = %v, want %v", claims.Code, testActor.Code)
	}
	if claims.Role != casework.RoleMediator {
		t.Errorf("claims.Role = %v, want %v", claims.Role, casework.RoleMediator)
	}
	if claims.Issuer != config.Issuer {
		t.Errorf("claims.Issuer = %v, want %v", claims.Issuer, config.Issuer)
	}
}

func TestJWTManager_TokenTypesAreNotInterchangeable(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	access, _ := manager.GenerateAccessToken(testActor)
	refresh, _ := manager.GenerateRefreshToken(testActor)

	if _, err := manager.ValidateRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken(refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := manager.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("ValidateRefreshToken(refresh) error = %v", err)
	}
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	otherSecret := testJWTConfig()
	otherSecret.SecretKey = "another-secret"
	forged, _ := NewJWTManager(otherSecret).GenerateAccessToken(testActor)

	otherIssuer := testJWTConfig()
	otherIssuer.Issuer = "someone-else"
	foreign, _ := NewJWTManager(otherIssuer).GenerateAccessToken(testActor)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: forged},
		{name: "wrong issuer", token: foreign},
		{name: "garbage", token: "not.a.jwt"},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.ValidateAccessToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateAccessToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	config := testJWTConfig()
	config.AccessTokenDuration = -time.Minute
	manager := NewJWTManager(config)

	token, err := manager.GenerateAccessToken(testActor)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := manager.ValidateAccessToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateAccessToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestJWTManager_AccessTokenDuration(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())
	if got := manager.AccessTokenDuration(); got != 900 {
		t.Errorf("AccessTokenDuration() = %d, want 900", got)
	}
}

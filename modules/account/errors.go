package account

import (
	"errors"
	"fmt"

	"github.com/example/incident-desk/domain/casework"
)

var (
	// ErrInvalidCredentials is returned when the code or password does not match.
	ErrInvalidCredentials = errors.New("invalid code or password")
	// ErrInvalidToken is returned when a token fails signature or type checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is past its expiry.
	ErrExpiredToken = errors.New("token has expired")

	// ErrInvalidEmail is returned when the email does not parse.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email format", casework.ErrInvalidInput)
	// ErrInvalidCode is returned when the actor code is empty.
	ErrInvalidCode = fmt.Errorf("%w: code must not be empty", casework.ErrInvalidInput)
	// ErrWeakPassword is returned when the password is shorter than 8 bytes.
	ErrWeakPassword = fmt.Errorf("%w: password must be at least 8 characters", casework.ErrInvalidInput)
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = fmt.Errorf("%w: password must be at most 72 characters", casework.ErrInvalidInput)
)

// Failure kinds specific to authentication.
const (
	KindInvalidCredentials casework.Kind = "invalid_credentials"
	KindInvalidToken       casework.Kind = "invalid_token"
	KindExpiredToken       casework.Kind = "token_expired"
)

var authKinds = map[casework.Kind]error{
	KindInvalidCredentials: ErrInvalidCredentials,
	KindInvalidToken:       ErrInvalidToken,
	KindExpiredToken:       ErrExpiredToken,
}

// KindOf classifies err, recognising the authentication failures before
// falling back to the casework kinds.
func KindOf(err error) casework.Kind {
	for kind, sentinel := range authKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return casework.KindOf(err)
}

func newErrorBody(err error) *casework.ErrorBody {
	if err == nil {
		return nil
	}
	return &casework.ErrorBody{Kind: KindOf(err), Message: err.Error()}
}

// bodyErr rebuilds a typed error from a service response.
func bodyErr(b *casework.ErrorBody) error {
	if b == nil {
		return nil
	}
	if sentinel, ok := authKinds[b.Kind]; ok {
		if b.Message == "" || b.Message == sentinel.Error() {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, b.Message)
	}
	return b.Err()
}

package api

import (
	"errors"

	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/account"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[casework.Kind]int{
	casework.KindInvalidInput:       fiber.StatusBadRequest,
	casework.KindNotFound:           fiber.StatusNotFound,
	casework.KindDuplicate:          fiber.StatusConflict,
	casework.KindActiveCaseConflict: fiber.StatusConflict,
	casework.KindAlreadyClaimed:     fiber.StatusConflict,
	casework.KindWrongOwner:         fiber.StatusConflict,
	casework.KindInvalidState:       fiber.StatusConflict,
	casework.KindForbiddenRole:      fiber.StatusForbidden,
	casework.KindStoreTimeout:       fiber.StatusGatewayTimeout,
	casework.KindStoreUnavailable:   fiber.StatusServiceUnavailable,
	casework.KindIntegrity:          fiber.StatusInternalServerError,
	account.KindInvalidCredentials:  fiber.StatusUnauthorized,
	account.KindInvalidToken:        fiber.StatusUnauthorized,
	account.KindExpiredToken:        fiber.StatusUnauthorized,
}

// statusFor maps a failure kind to its HTTP status. Unknown kinds are 500.
func statusFor(kind casework.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// writeError renders err with the status of its kind. Internal failures are
// logged and their text is not sent to the client.
func writeError(c *fiber.Ctx, logger types.Logger, err error) error {
	kind := account.KindOf(err)
	status := statusFor(kind)

	if kind == casework.KindInternal {
		logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(ErrorResponse{
			Error:   string(casework.KindInternal),
			Message: "An internal error occurred",
		})
	}
	if status >= fiber.StatusInternalServerError {
		logger.Warn("Request failed", "method", c.Method(), "path", c.Path(), "kind", string(kind), "error", err)
	}
	if casework.IsTransient(err) {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   string(kind),
		Message: err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   string(casework.KindInvalidInput),
		Message: message,
	})
}

// customErrorHandler handles errors returned by Fiber itself, such as an
// unmatched route or a panic caught by recover.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

var (
	errInvalidLimit  = errors.New("limit must be an integer")
	errInvalidOffset = errors.New("offset must be an integer")
)

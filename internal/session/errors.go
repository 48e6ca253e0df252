package session

import (
	"errors"
	"net/http"

	"github.com/noah-isme/toko-checkout/internal/common"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrInvalidToken is returned when a session token fails validation.
	ErrInvalidToken = errors.New("session: invalid token")
	// ErrUnknownIntent is returned when a command names no known intent.
	ErrUnknownIntent = errors.New("session: unknown intent")
)

func notFoundError(id string) error {
	return common.NewAppError("SESSION_NOT_FOUND", "session not found or expired", http.StatusNotFound, ErrSessionNotFound).
		WithDetails(map[string]string{"sessionId": id})
}

func invalidTokenError(err error) error {
	return &common.AppError{
		Code:       "UNAUTHORIZED",
		Message:    "invalid session token",
		HTTPStatus: http.StatusUnauthorized,
		Err:        errors.Join(ErrInvalidToken, err),
	}
}

func unknownIntentError(intent string) error {
	return common.NewAppError("BAD_REQUEST", "unknown intent", http.StatusBadRequest, ErrUnknownIntent).
		WithDetails(map[string]string{"intent": intent})
}

package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/passage/pkg/slogx"
)

var (
	// ErrInvalidCredentials is the single error for every authentication
	// failure. The specific reason is only logged.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrAlreadyExists       = errors.New("already_exists")
	ErrInvalidInput        = errors.New("invalid_input")
	ErrUnsupportedProvider = errors.New("unsupported_provider")
	ErrMissingEmail        = errors.New("missing_email")
)

// Rejection reasons. They appear in logs, never in responses.
const (
	reasonMissing        = "missing_value"
	reasonUnknownEmail   = "unknown_email"
	reasonNoPassword     = "no_password"
	reasonBadPassword    = "bad_password"
	reasonRefreshUnknown = "refresh_not_found"
	reasonRefreshExpired = "refresh_expired"
	reasonCodeUnknown    = "code_not_found"
	reasonCodeExpired    = "code_expired"
	reasonDanglingUser   = "dangling_user"
)

// reject logs a security rejection at WARN and returns ErrInvalidCredentials.
func reject(ctx context.Context, flow, reason string, args ...any) error {
	args = append([]any{"flow", flow, "reason", reason}, args...)
	slogx.FromContext(ctx).Warn("authentication rejected", args...)
	return ErrInvalidCredentials
}

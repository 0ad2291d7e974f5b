package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/gatekeeper/internal/domain/activity"
	"github.com/rpggio/gatekeeper/internal/domain/checkin"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/roster"
	"github.com/rpggio/gatekeeper/internal/persist"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unrecognized errors are
// returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var validation *roster.ValidationError
	var ioErr *persist.IOError
	switch {
	case errors.As(err, &validation):
		return &APIError{
			Code:         "VALIDATION_FAILED",
			Message:      validation.Error(),
			Details:      validation,
			RecoveryHint: "Fix the roster file; the previous roster is still active",
		}
	case errors.Is(err, ledger.ErrNotFound):
		return &APIError{Code: "NO_ROSTER", Message: "no roster loaded", RecoveryHint: "Call load_roster first"}
	case errors.As(err, &ioErr):
		return &APIError{
			Code:         "IO_ERROR",
			Message:      ioErr.Error(),
			Details:      map[string]string{"op": ioErr.Op, "path": ioErr.Path},
			RecoveryHint: "Check the path and its permissions",
		}
	case errors.Is(err, checkin.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return err
	}
}

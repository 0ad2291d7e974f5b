package roster

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRoster is matched by every *ValidationError via errors.Is.
var ErrInvalidRoster = errors.New("invalid roster")

// ValidationError reports why a roster source was rejected. Nothing is
// loaded when it is returned.
type ValidationError struct {
	Missing   []string
	Duplicate []string
	Invalid   []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate columns: "+strings.Join(e.Duplicate, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid rows: "+strings.Join(e.Invalid, "; "))
	}
	if len(parts) == 0 {
		return ErrInvalidRoster.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRoster, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRoster
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Duplicate) == 0 && len(e.Invalid) == 0
}

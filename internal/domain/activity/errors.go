package activity

import "errors"

var (
	// ErrInvalidInput indicates a missing or malformed activity entry.
	ErrInvalidInput = errors.New("invalid activity input")
)

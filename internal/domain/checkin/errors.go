package checkin

import "errors"

var (
	// ErrInvalidInput indicates a missing path or search query.
	ErrInvalidInput = errors.New("invalid check-in input")
)

package ledger

import "errors"

var (
	// ErrNotFound indicates no roster is loaded.
	ErrNotFound = errors.New("no roster loaded")
)

package persist

import "fmt"

// IOError reports a backing file that could not be read or written. The
// in-memory roster stays valid when a flush fails.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

package engine

import "fmt"

// ValidationError reports malformed input: bad ids, out-of-range team
// counts, access codes that are not six digits.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// ConflictError reports a state clash, such as exhausting access-code
// re-rolls against currently active sessions.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string { return e.Msg }

// StorageError wraps a photo store I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string { return fmt.Sprintf("photo store %s: %v", e.Op, e.Err) }
func (e StorageError) Unwrap() error { return e.Err }

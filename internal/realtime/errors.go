package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("credential rejected")
	ErrUnreachable  = errors.New("server unreachable")
	ErrTimeout      = errors.New("connection timed out")
)

// SessionError tags a transport failure with the operation that produced it.
type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

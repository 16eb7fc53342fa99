package dashboard

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by a search or history fetch whose result was
// discarded because a newer search started while it was in flight.
var ErrSuperseded = errors.New("superseded by a newer search")

// ValidationError reports a well-formed answer whose content is unusable,
// such as a weather snapshot without numeric coordinates.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// FetchError reports a transport failure, an error status or a body that
// could not be decoded. Message is what the dashboard shows the user.
type FetchError struct {
	Op      string
	Status  int // 0 when no status was received
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Unwrap() error { return e.Err }

// Detail includes the operation, status and cause, for logs.
func (e *FetchError) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %s: %v", e.Op, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

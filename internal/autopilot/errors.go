package autopilot

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means the user has no usable platform credentials.
	ErrConfiguration = errors.New("invalid configuration: missing credentials")
	// ErrInvalidTransition is returned for a session state change the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid session state transition")

	errNoMatch = errors.New("no element matches selector")
)

// RequiredElementError reports that an element the flow cannot continue
// without never appeared.
type RequiredElementError struct {
	Selector string
	Err      error
}

func (e *RequiredElementError) Error() string {
	return fmt.Sprintf("required element %q not found: %v", e.Selector, e.Err)
}

func (e *RequiredElementError) Unwrap() error { return e.Err }

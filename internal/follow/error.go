package follow

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget is returned when a target specifier cannot be parsed.
var ErrInvalidTarget = errors.New("invalid target")

// ContainerNotFoundError indicates that the container runtime does not know
// the container anymore, usually because it was removed between a probe
// and the attachment.
type ContainerNotFoundError struct {
	// Name is the container name that was not found
	Name string

	// Err is the underlying error that caused the not found condition.
	// This field is optional and may be nil.
	Err error
}

func (e *ContainerNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("container %s not found: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("container %s not found", e.Name)
}

// Unwrap returns the underlying error, enabling error chain traversal
// with errors.Is and errors.As.
func (e *ContainerNotFoundError) Unwrap() error {
	return e.Err
}

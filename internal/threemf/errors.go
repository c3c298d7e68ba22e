package threemf

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when a container lacks a node the
	// assembly depends on (model document, object, mesh, resources, build)
	ErrMalformedInput = errors.New("malformed input")

	// ErrIO is returned for archive and filesystem failures
	ErrIO = errors.New("i/o failure")
)

// ContainerError ties a failure to the 3MF file it was raised for
type ContainerError struct {
	Container string
	Err       error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Container, e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

func malformed(container, format string, args ...any) error {
	return &ContainerError{
		Container: container,
		Err:       fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...)),
	}
}

func ioFailure(container, action string, err error) error {
	return &ContainerError{
		Container: container,
		Err:       fmt.Errorf("%w: %s: %w", ErrIO, action, err),
	}
}

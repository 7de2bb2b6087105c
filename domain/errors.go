package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required input is missing. It is
	// always raised before any I/O takes place.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidOperation is returned when an operation is not permitted in the
	// current state of the entity.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrNotSupported is returned by operations the store never allows.
	ErrNotSupported = errors.New("operation not supported")
	// ErrNotImplemented is returned by operations that are intentionally left out.
	ErrNotImplemented = errors.New("not implemented")
	// ErrNotFound is the parent of every lookup miss.
	ErrNotFound = errors.New("not found")

	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrRoleNotFound   = fmt.Errorf("role %w", ErrNotFound)
	ErrAlreadyDeleted = fmt.Errorf("%w: already deleted", ErrInvalidOperation)
)

// ArgumentRequired builds an ErrInvalidArgument for the named input.
func ArgumentRequired(name string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
}

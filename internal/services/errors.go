package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden marks an action the caller is not allowed to perform.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState marks an action that does not fit the current state
	// of the target, such as borrowing a book that is already out.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict marks a write rejected by a uniqueness rule.
	ErrConflict = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrStorageDisabled = fmt.Errorf("%w: cover storage is not configured", ErrInvalidState)
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to the request boundary. Everything else is an
// internal fault.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrLimitExceeded       = errors.New("limit exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyProcessed    = errors.New("already processed")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidState(operation string, status any) error {
	return fmt.Errorf("%w: cannot %s while %v", ErrInvalidState, operation, status)
}

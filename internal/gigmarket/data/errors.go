package data

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrUniqueConstraintViolation = errors.New("unique constraint violation")
	// ErrStaleState is returned by conditional updates when the stored row no
	// longer matches the expected prior state.
	ErrStaleState        = errors.New("stale state")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

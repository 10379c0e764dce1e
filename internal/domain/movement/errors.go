package movement

import (
	"errors"
	"fmt"
)

var (
	// ErrSameAccountTransfer rejects transfers whose source and destination
	// are the same account, before any record is created.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrDuplicateReference indicates the reference generator exhausted its
	// retries. Surfaces to callers as service unavailable.
	ErrDuplicateReference = errors.New("could not generate a unique reference")

	// ErrCurrencyMismatch rejects transfers between accounts that hold
	// different currencies.
	ErrCurrencyMismatch = errors.New("accounts use different currencies")
)

// ErrMovementNotFound indicates a missing movement record
type ErrMovementNotFound struct {
	Reference string
}

func (e ErrMovementNotFound) Error() string {
	return "movement not found: " + e.Reference
}

// Is implements the errors.Is interface for ErrMovementNotFound
func (e ErrMovementNotFound) Is(target error) bool {
	t, ok := target.(ErrMovementNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrInvalidStateTransition rejects a status change the transition table
// does not permit
type ErrInvalidStateTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid movement status transition: %s -> %s", e.From, e.To)
}

// Is implements the errors.Is interface for ErrInvalidStateTransition
func (e ErrInvalidStateTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidStateTransition)
	if !ok {
		return false
	}
	if t.From == "" && t.To == "" {
		return true
	}
	return e.From == t.From && e.To == t.To
}

// OperationFailedError wraps an infrastructure failure that occurred after
// the movement record was staged. The movement is marked FAILED with the
// cause before this is returned.
type OperationFailedError struct {
	Reference string
	Err       error
}

func (e OperationFailedError) Error() string {
	return fmt.Sprintf("movement %s failed: %v", e.Reference, e.Err)
}

func (e OperationFailedError) Unwrap() error {
	return e.Err
}

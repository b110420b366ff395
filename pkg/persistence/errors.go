// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrNotFound indicates no record exists for the given key.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a unique key (draft or user) is already taken.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInsufficientBalance indicates a debit would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateLedgerEntry indicates the idempotency key was used for a different movement.
	ErrDuplicateLedgerEntry = errors.New("duplicate ledger entry")

	// ErrInvalidAmount indicates a non-positive ledger amount.
	ErrInvalidAmount = errors.New("ledger amount must be positive")
)

// EntityError wraps record-related errors with additional context.
type EntityError struct {
	Op   string // Operation being performed (e.g., "FindByDraft", "Create")
	Kind string
	Key  string // draft, user or record id the operation was keyed by
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.Key, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewEntityError(op, kind, key string, err error) *EntityError {
	return &EntityError{Op: op, Kind: kind, Key: key, Err: err}
}

// LedgerError wraps wallet errors with the user and idempotency key involved.
type LedgerError struct {
	Op             string
	UserID         int64
	IdempotencyKey string
	Err            error
}

func (e *LedgerError) Error() string {
	if e.IdempotencyKey != "" {
		return fmt.Sprintf("%s operation failed for user %d (key %s): %v", e.Op, e.UserID, e.IdempotencyKey, e.Err)
	}

	return fmt.Sprintf("%s operation failed for user %d: %v", e.Op, e.UserID, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func (e *LedgerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewLedgerError(op string, userID int64, key string, err error) *LedgerError {
	return &LedgerError{Op: op, UserID: userID, IdempotencyKey: key, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

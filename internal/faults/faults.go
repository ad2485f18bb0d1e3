// Package faults defines the domain error taxonomy shared by the accrual,
// withdrawal and referral services, plus retryability classification for
// transient storage failures.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InvalidStateError indicates an illegal state machine transition was attempted.
type InvalidStateError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s transition %s -> %s: %s", e.Entity, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Entity, e.From, e.To)
}

// InsufficientBalanceError indicates a withdrawal request exceeds eligibility.
type InsufficientBalanceError struct {
	Requested float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("requested %.2f exceeds available %.2f", e.Requested, e.Available)
}

// ValidationError indicates malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AlreadyProcessedError is the idempotency short-circuit. Callers treat it as
// a "skipped" outcome, not a failure; batch summaries count it separately.
type AlreadyProcessedError struct {
	Key string
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("already processed: %s", e.Key)
}

// StorageError wraps a transient backing-store failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var is *InvalidStateError
	return errors.As(err, &is)
}

// IsInsufficientBalance reports whether err is an InsufficientBalanceError.
func IsInsufficientBalance(err error) bool {
	var ib *InsufficientBalanceError
	return errors.As(err, &ib)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAlreadyProcessed reports whether err is an AlreadyProcessedError.
func IsAlreadyProcessed(err error) bool {
	var ap *AlreadyProcessedError
	return errors.As(err, &ap)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsRetryable determines if an error should trigger a retry. Only transient
// storage conditions qualify; domain errors never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if !IsStorage(err) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"deadlock",
		"lock timeout",
		"serialization failure",
		"too many connections",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

/*
errors.go - Centralized error types for the banking engine

PURPOSE:
  All error types in one place. Callers classify with errors.Is / errors.As
  or the Is* helpers at the bottom of this file.

ERROR CATEGORIES:
  1. Validation errors - detected before any lock or store access
     (ErrInvalidAmount, ErrSameAccountTransfer, ErrInvalidDirection, ...)
  2. State errors - abort the whole atomic unit with no partial effect
     (ErrAccountNotFound, ErrAccountInactive, ErrInsufficientFunds)
  3. Contention - retried internally, surfaced only once retries run out
     (ErrConcurrentModification)
  4. Internal - never surfaced while a retry can still resolve them
     (ErrReferenceCollision)

SEE ALSO:
  - api/handlers.go: Maps these errors to HTTP statuses
*/
package banking

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrAccountNotFound = errors.New("account not found")

	ErrAccountInactive = errors.New("account is inactive")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	ErrInvalidDirection = errors.New("direction must be CREDIT or DEBIT")

	ErrInvalidAccountType = errors.New("account type must be CHECKING, SAVINGS or BUSINESS")

	ErrInvalidCardType = errors.New("card type must be DEBIT or CREDIT")

	ErrInvalidPagination = errors.New("invalid pagination: offset must be >= 0 and limit > 0")

	// ErrConcurrentModification is returned when mutation rights on an account
	// could not be obtained in time, or the store reported a busy/locked
	// condition. Retryable.
	ErrConcurrentModification = errors.New("concurrent modification conflict")

	// ErrReferenceCollision is returned by stores when a freshly minted
	// reference token (or account/card number) already exists. Callers mint a
	// new token and retry.
	ErrReferenceCollision = errors.New("reference collision")

	// ErrTransactionFailed wraps unexpected failures of an atomic unit.
	ErrTransactionFailed = errors.New("transaction failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a rejected debit.
type InsufficientFundsError struct {
	AccountID AccountID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %d: available %s, requested %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// Leg names one half of a transfer.
type Leg string

const (
	LegDebit  Leg = "debit"
	LegCredit Leg = "credit"
)

// LegError reports which side of a transfer failed. The whole transfer has
// been rolled back when this is returned.
type LegError struct {
	Leg       Leg
	AccountID AccountID
	Err       error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("transfer %s leg on account %d: %v", e.Leg, e.AccountID, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input
// or a business rule the caller can act on.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSameAccountTransfer) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrInvalidAccountType) ||
		errors.Is(err, ErrInvalidCardType) ||
		errors.Is(err, ErrInvalidPagination)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

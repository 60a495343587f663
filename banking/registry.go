package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT REGISTRY - Source of truth for existence, active flag and balance
// =============================================================================

// Registry is the single choke point for balance changes. It holds no state
// of its own; every method runs against the Store handle it is given, which
// inside an atomic unit is the transactional handle.
type Registry struct {
	Refs  *ReferenceGenerator
	Clock func() time.Time
}

func NewRegistry(refs *ReferenceGenerator, clock func() time.Time) *Registry {
	return &Registry{Refs: refs, Clock: clock}
}

// Get returns the account or ErrAccountNotFound.
func (r *Registry) Get(ctx context.Context, s Store, id AccountID) (*Account, error) {
	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// AdjustBalance re-reads the account and applies delta.
//
// Rejections, in order:
//   - ErrAccountNotFound
//   - ErrAccountInactive
//   - *InsufficientFundsError when the result would be negative
//
// The caller must hold mutation rights on id and run this inside the same
// WithTx as the ledger append.
func (r *Registry) AdjustBalance(ctx context.Context, s Store, id AccountID, delta decimal.Decimal) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if !acc.Active {
		return decimal.Zero, fmt.Errorf("%w: account %d", ErrAccountInactive, id)
	}

	next := acc.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, &InsufficientFundsError{
			AccountID: id,
			Available: acc.Balance,
			Requested: delta.Neg(),
		}
	}

	acc.Balance = next
	acc.UpdatedAt = r.now()
	if err := s.UpdateAccount(ctx, acc); err != nil {
		return decimal.Zero, fmt.Errorf("update balance of account %d: %w", id, err)
	}
	return next, nil
}

// OpenAccountInput describes a new account.
type OpenAccountInput struct {
	OwnerID OwnerID
	Type    AccountType

	// InitialBalance, when positive, is booked as an opening credit.
	InitialBalance decimal.Decimal
}

// Open creates an active account with a zero balance and a freshly minted
// account number. Opening balances are booked by the caller through the
// Processor so the ledger accounts for them.
func (r *Registry) Open(ctx context.Context, s Store, owner OwnerID, typ AccountType) (*Account, error) {
	if !typ.Valid() {
		return nil, ErrInvalidAccountType
	}

	now := r.now()
	var acc *Account
	err := mintReference(r.Refs, KindAccountNumber, func(number string) error {
		candidate := &Account{
			OwnerID:       owner,
			AccountNumber: number,
			Type:          typ,
			Balance:       decimal.Zero,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.CreateAccount(ctx, candidate); err != nil {
			return err
		}
		acc = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// SetActive flips the active flag. Accounts are never deleted.
func (r *Registry) SetActive(ctx context.Context, s Store, id AccountID, active bool) (*Account, error) {
	acc, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Active == active {
		return acc, nil
	}
	acc.Active = active
	acc.UpdatedAt = r.now()
	if err := s.UpdateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("update account %d: %w", id, err)
	}
	return acc, nil
}

func (r *Registry) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock()
}

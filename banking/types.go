/*
Package banking provides the account and ledger engine.

PURPOSE:
  This package owns every balance-affecting operation in the system.
  Accounts hold a decimal balance, every movement is recorded as an
  immutable Transaction, and two-account moves are recorded as a Transfer
  backed by exactly two Transaction legs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account:     Balance holder, never deleted, only deactivated
  - Transaction: One credit or debit on one account (a ledger entry)
  - Transfer:    A debit leg + credit leg committed as one unit
  - Card:        Payment card issued against an account
  - LedgerEvent: Outbox record written alongside every committed movement

DESIGN PRINCIPLES:
  1. Immutability: Transactions and Transfers are never updated or deleted
  2. Precision: All money is decimal.Decimal, never a float
  3. Explicit references: records point at accounts by AccountID only,
     lookups always go through the Registry
  4. Reconstructibility: Account.Balance == sum(credits) - sum(debits)

SEE ALSO:
  - store.go: Persistence interfaces
  - registry.go: The single writer of Account.Balance
  - processor.go / transfer.go: The atomic units
*/
package banking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// AccountID identifies an account. Lock ordering sorts on it.
type AccountID int64

type OwnerID string

type TransactionID int64
type TransferID int64
type CardID int64

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
	AccountBusiness AccountType = "BUSINESS"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountBusiness:
		return true
	}
	return false
}

type Account struct {
	ID            AccountID
	OwnerID       OwnerID
	AccountNumber string
	Type          AccountType
	Balance       decimal.Decimal
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// =============================================================================
// TRANSACTION - One ledger entry on one account
// =============================================================================

type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

func (d Direction) Valid() bool { return d == Credit || d == Debit }

// Signed returns amount with the sign this direction applies to a balance.
func (d Direction) Signed(amount decimal.Decimal) decimal.Decimal {
	if d == Debit {
		return amount.Neg()
	}
	return amount
}

type Transaction struct {
	ID          TransactionID
	AccountID   AccountID
	Direction   Direction
	Amount      decimal.Decimal // always positive
	Description string
	Reference   string // TXN-...

	// TransferReference links a leg to its Transfer. Empty for
	// standalone credits and debits.
	TransferReference string

	Timestamp time.Time
}

// =============================================================================
// TRANSFER - Two legs, one unit
// =============================================================================

type Transfer struct {
	ID                   TransferID
	SourceAccountID      AccountID
	DestinationAccountID AccountID
	Amount               decimal.Decimal
	Description          string
	Reference            string // TRF-...
	Timestamp            time.Time
}

// =============================================================================
// CARD
// =============================================================================

type CardType string

const (
	CardDebit  CardType = "DEBIT"
	CardCredit CardType = "CREDIT"
)

func (t CardType) Valid() bool { return t == CardDebit || t == CardCredit }

type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardBlocked CardStatus = "BLOCKED"
	CardExpired CardStatus = "EXPIRED"
)

type Card struct {
	ID          CardID
	AccountID   AccountID
	CardNumber  string
	Type        CardType
	Status      CardStatus
	CreditLimit decimal.Decimal
	ExpiresAt   time.Time
	CVV         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// LEDGER EVENTS - Outbox rows, written in the same unit as the movement
// =============================================================================

type EventType string

const (
	EventTransactionCommitted EventType = "transaction.committed"
	EventTransferCommitted    EventType = "transfer.committed"
)

type LedgerEvent struct {
	ID          int64
	Type        EventType
	Reference   string
	AccountID   AccountID
	Payload     []byte // JSON
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// =============================================================================
// QUERIES
// =============================================================================

// StatementRange bounds a statement. Nil means unbounded on that side.
// Both bounds are inclusive.
type StatementRange struct {
	Start *time.Time
	End   *time.Time
}

func (r StatementRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Empty reports whether the range cannot contain anything (start after end).
func (r StatementRange) Empty() bool {
	return r.Start != nil && r.End != nil && r.Start.After(*r.End)
}

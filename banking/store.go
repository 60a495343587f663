/*
store.go - Persistence interface for accounts, ledger and outbox

PURPOSE:
  Defines the boundary between the engine and the database. The engine never
  holds a process-wide session: every call receives the Store handle it must
  run on, and atomic units receive a transactional handle from WithTx.

KEY INTERFACES:
  Store:      Accounts, ledger (transactions + transfers), cards, outbox
  TxStore:    Store + WithTx for all-or-nothing units
  EventStore: Outbox reads for the event dispatcher

APPEND-ONLY CONTRACT:
  Transactions and transfers have Append* and read methods only.
  UpdateAccount is the one mutating method and only Registry calls it.

UNIQUENESS:
  CreateAccount, CreateCard, AppendTransaction and AppendTransfer return
  ErrReferenceCollision when the account number, card number or reference
  already exists. The store never invents tokens itself.

IMPLEMENTATIONS:
  - banking/store/memory.go: In-memory, undo-log rollback
  - store/sqlite/sqlite.go:  SQLite, database transactions

SEE ALSO:
  - registry.go: The only caller of UpdateAccount
*/
package banking

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// CreateAccount persists a new account and assigns acc.ID.
	CreateAccount(ctx context.Context, acc *Account) error

	// GetAccount returns ErrAccountNotFound when id does not exist.
	GetAccount(ctx context.Context, id AccountID) (*Account, error)

	// ListAccounts returns accounts ordered by ID. An empty owner lists all.
	ListAccounts(ctx context.Context, owner OwnerID) ([]Account, error)

	// UpdateAccount writes Balance, Active and UpdatedAt.
	UpdateAccount(ctx context.Context, acc *Account) error

	// AppendTransaction persists an immutable ledger entry and assigns tx.ID.
	AppendTransaction(ctx context.Context, tx *Transaction) error

	// AppendTransfer persists an immutable transfer and assigns tr.ID.
	AppendTransfer(ctx context.Context, tr *Transfer) error

	// ListTransactions returns an account's entries in insertion order
	// (most recent last), skipping offset and returning at most limit.
	ListTransactions(ctx context.Context, id AccountID, offset, limit int) ([]Transaction, error)

	// TransactionsInRange returns an account's entries within rng,
	// newest first.
	TransactionsInRange(ctx context.Context, id AccountID, rng StatementRange) ([]Transaction, error)

	// ListTransfers returns transfers where id is source or destination,
	// in insertion order.
	ListTransfers(ctx context.Context, id AccountID) ([]Transfer, error)

	CreateCard(ctx context.Context, card *Card) error
	ListCards(ctx context.Context, id AccountID) ([]Card, error)

	// AppendEvent writes an outbox row and assigns ev.ID.
	AppendEvent(ctx context.Context, ev *LedgerEvent) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the handle is rolled back.
	// If fn returns nil, the writes are committed together.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// EventStore exposes the outbox to the dispatcher.
type EventStore interface {
	// PendingEvents returns unpublished events, oldest first.
	PendingEvents(ctx context.Context, limit int) ([]LedgerEvent, error)

	MarkEventsPublished(ctx context.Context, ids []int64, at time.Time) error
}

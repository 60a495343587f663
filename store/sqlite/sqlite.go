/*
Package sqlite provides a SQLite-backed implementation of the banking storage
interfaces.

PURPOSE:
  Implements banking.TxStore and banking.EventStore using SQLite. Every
  atomic unit of the engine maps to one database transaction.

INTERFACES IMPLEMENTED:
  banking.Store:      Accounts, ledger, cards, outbox writes
  banking.TxStore:    WithTx over *sql.Tx
  banking.EventStore: Outbox reads for the dispatcher

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on transactions or transfers
  - accounts is the only table whose rows change (balance, active flag)
  - ledger_events rows change once, when published_at is set

KEY TABLES:
  accounts:          Balance holders, unique account_number
  transactions:      Immutable ledger, unique reference
  transfers:         Immutable transfer records, unique reference
  ledger_references: Shared namespace for TXN- and TRF- tokens
  cards:             Issued cards, unique card_number
  ledger_events:     Outbox

SCHEMA:
  Versioned migrations under migrations/, embedded into the binary and
  applied by golang-migrate on New().

CONCURRENCY:
  The pool is capped at one connection. Units are serialized by the
  database and ":memory:" databases stay a single shared database.
  Busy/locked errors surface as banking.ErrConcurrentModification.

TIME ENCODING:
  Timestamps are stored as fixed-width UTC text so that lexical order in
  SQL equals chronological order.

USAGE:
  store, err := sqlite.New("./data/bank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := banking.NewService(store, banking.Options{}, logger)

SEE ALSO:
  - banking/store.go: Interface definitions
  - banking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/bank-engine/banking"
)

//go:embed migrations/*.sql
var migrations embed.FS

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements banking.TxStore and banking.EventStore using SQLite.
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrateUp applies embedded migrations. The migrate instance is not closed
// because its driver would close db with it.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) CreateAccount(ctx context.Context, acc *banking.Account) error {
	return createAccount(ctx, s.db, acc)
}

func createAccount(ctx context.Context, db execer, acc *banking.Account) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, account_number, account_type, balance, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(acc.OwnerID),
		acc.AccountNumber,
		string(acc.Type),
		acc.Balance.String(),
		acc.Active,
		formatTime(acc.CreatedAt),
		formatTime(acc.UpdatedAt),
	)
	if err != nil {
		return classify(err, "create account")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	acc.ID = banking.AccountID(id)
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id banking.AccountID) (*banking.Account, error) {
	return getAccount(ctx, s.db, id)
}

const accountColumns = `id, owner_id, account_number, account_type, balance, active, created_at, updated_at`

func getAccount(ctx context.Context, db execer, id banking.AccountID) (*banking.Account, error) {
	row := db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, int64(id))
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, banking.ErrAccountNotFound
	}
	if err != nil {
		return nil, classify(err, "get account")
	}
	return &acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, owner banking.OwnerID) ([]banking.Account, error) {
	return listAccounts(ctx, s.db, owner)
}

func listAccounts(ctx context.Context, db execer, owner banking.OwnerID) ([]banking.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any
	if owner != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, string(owner))
	}
	query += ` ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "list accounts")
	}
	defer rows.Close()

	accounts := []banking.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, acc *banking.Account) error {
	return updateAccount(ctx, s.db, acc)
}

func updateAccount(ctx context.Context, db execer, acc *banking.Account) error {
	res, err := db.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, active = ?, updated_at = ? WHERE id = ?`,
		acc.Balance.String(), acc.Active, formatTime(acc.UpdatedAt), int64(acc.ID))
	if err != nil {
		return classify(err, "update account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return banking.ErrAccountNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (banking.Account, error) {
	var (
		acc                  banking.Account
		id                   int64
		owner, number, typ   string
		balance              string
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &owner, &number, &typ, &balance, &acc.Active, &createdAt, &updatedAt); err != nil {
		return acc, err
	}
	acc.ID = banking.AccountID(id)
	acc.OwnerID = banking.OwnerID(owner)
	acc.AccountNumber = number
	acc.Type = banking.AccountType(typ)

	var err error
	if acc.Balance, err = decimal.NewFromString(balance); err != nil {
		return acc, fmt.Errorf("account %d balance %q: %w", id, balance, err)
	}
	if acc.CreatedAt, err = parseTime(createdAt); err != nil {
		return acc, err
	}
	if acc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return acc, err
	}
	return acc, nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx *banking.Transaction) error {
	return s.inTx(ctx, func(db execer) error { return appendTransaction(ctx, db, tx) })
}

func appendTransaction(ctx context.Context, db execer, tx *banking.Transaction) error {
	if err := claimReference(ctx, db, tx.Reference); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO transactions (account_id, direction, amount, description, reference, transfer_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(tx.AccountID),
		string(tx.Direction),
		tx.Amount.String(),
		tx.Description,
		tx.Reference,
		nullString(tx.TransferReference),
		formatTime(tx.Timestamp),
	)
	if err != nil {
		return classify(err, "append transaction")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	tx.ID = banking.TransactionID(id)
	return nil
}

func (s *Store) AppendTransfer(ctx context.Context, tr *banking.Transfer) error {
	return s.inTx(ctx, func(db execer) error { return appendTransfer(ctx, db, tr) })
}

func appendTransfer(ctx context.Context, db execer, tr *banking.Transfer) error {
	if err := claimReference(ctx, db, tr.Reference); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO transfers (source_account_id, destination_account_id, amount, description, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int64(tr.SourceAccountID),
		int64(tr.DestinationAccountID),
		tr.Amount.String(),
		tr.Description,
		tr.Reference,
		formatTime(tr.Timestamp),
	)
	if err != nil {
		return classify(err, "append transfer")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append transfer: %w", err)
	}
	tr.ID = banking.TransferID(id)
	return nil
}

// claimReference reserves ref in the namespace shared by transactions and
// transfers.
func claimReference(ctx context.Context, db execer, ref string) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO ledger_references (reference) VALUES (?)`, ref); err != nil {
		return classify(err, "claim reference")
	}
	return nil
}

const transactionColumns = `id, account_id, direction, amount, description, reference, transfer_reference, created_at`

func (s *Store) ListTransactions(ctx context.Context, id banking.AccountID, offset, limit int) ([]banking.Transaction, error) {
	return listTransactions(ctx, s.db, id, offset, limit)
}

func listTransactions(ctx context.Context, db execer, id banking.AccountID, offset, limit int) ([]banking.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	return queryTransactions(ctx, db, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?`,
		int64(id), limit, offset)
}

func (s *Store) TransactionsInRange(ctx context.Context, id banking.AccountID, rng banking.StatementRange) ([]banking.Transaction, error) {
	return transactionsInRange(ctx, s.db, id, rng)
}

func transactionsInRange(ctx context.Context, db execer, id banking.AccountID, rng banking.StatementRange) ([]banking.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = ?`)
	args := []any{int64(id)}
	if rng.Start != nil {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, formatTime(*rng.Start))
	}
	if rng.End != nil {
		sb.WriteString(` AND created_at <= ?`)
		args = append(args, formatTime(*rng.End))
	}
	sb.WriteString(` ORDER BY created_at DESC, id DESC`)

	return queryTransactions(ctx, db, sb.String(), args...)
}

func queryTransactions(ctx context.Context, db execer, query string, args ...any) ([]banking.Transaction, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "query transactions")
	}
	defer rows.Close()

	transactions := []banking.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (banking.Transaction, error) {
	var (
		tx                banking.Transaction
		id, accountID     int64
		direction, amount string
		transferRef       sql.NullString
		createdAt         string
	)
	err := rows.Scan(&id, &accountID, &direction, &amount, &tx.Description, &tx.Reference, &transferRef, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.ID = banking.TransactionID(id)
	tx.AccountID = banking.AccountID(accountID)
	tx.Direction = banking.Direction(direction)
	tx.TransferReference = transferRef.String
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("transaction %d amount %q: %w", id, amount, err)
	}
	if tx.Timestamp, err = parseTime(createdAt); err != nil {
		return tx, err
	}
	return tx, nil
}

func (s *Store) ListTransfers(ctx context.Context, id banking.AccountID) ([]banking.Transfer, error) {
	return listTransfers(ctx, s.db, id)
}

func listTransfers(ctx context.Context, db execer, id banking.AccountID) ([]banking.Transfer, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source_account_id, destination_account_id, amount, description, reference, created_at
		FROM transfers
		WHERE source_account_id = ? OR destination_account_id = ?
		ORDER BY id ASC`,
		int64(id), int64(id))
	if err != nil {
		return nil, classify(err, "list transfers")
	}
	defer rows.Close()

	transfers := []banking.Transfer{}
	for rows.Next() {
		var (
			tr                banking.Transfer
			trID, src, dst    int64
			amount, createdAt string
		)
		if err := rows.Scan(&trID, &src, &dst, &amount, &tr.Description, &tr.Reference, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		tr.ID = banking.TransferID(trID)
		tr.SourceAccountID = banking.AccountID(src)
		tr.DestinationAccountID = banking.AccountID(dst)
		if tr.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transfer %d amount %q: %w", trID, amount, err)
		}
		if tr.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, tr)
	}
	return transfers, rows.Err()
}

// =============================================================================
// CARDS
// =============================================================================

func (s *Store) CreateCard(ctx context.Context, card *banking.Card) error {
	return createCard(ctx, s.db, card)
}

func createCard(ctx context.Context, db execer, card *banking.Card) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO cards (account_id, card_number, card_type, status, credit_limit, expires_at, cvv, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(card.AccountID),
		card.CardNumber,
		string(card.Type),
		string(card.Status),
		card.CreditLimit.String(),
		formatTime(card.ExpiresAt),
		card.CVV,
		formatTime(card.CreatedAt),
		formatTime(card.UpdatedAt),
	)
	if err != nil {
		return classify(err, "create card")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	card.ID = banking.CardID(id)
	return nil
}

func (s *Store) ListCards(ctx context.Context, id banking.AccountID) ([]banking.Card, error) {
	return listCards(ctx, s.db, id)
}

func listCards(ctx context.Context, db execer, id banking.AccountID) ([]banking.Card, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, account_id, card_number, card_type, status, credit_limit, expires_at, cvv, created_at, updated_at
		FROM cards WHERE account_id = ? ORDER BY id ASC`, int64(id))
	if err != nil {
		return nil, classify(err, "list cards")
	}
	defer rows.Close()

	cards := []banking.Card{}
	for rows.Next() {
		var (
			c                               banking.Card
			cardID, accountID               int64
			typ, status, limit              string
			expiresAt, createdAt, updatedAt string
		)
		if err := rows.Scan(&cardID, &accountID, &c.CardNumber, &typ, &status, &limit,
			&expiresAt, &c.CVV, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c.ID = banking.CardID(cardID)
		c.AccountID = banking.AccountID(accountID)
		c.Type = banking.CardType(typ)
		c.Status = banking.CardStatus(status)
		if c.CreditLimit, err = decimal.NewFromString(limit); err != nil {
			return nil, fmt.Errorf("card %d credit limit %q: %w", cardID, limit, err)
		}
		if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// =============================================================================
// OUTBOX (banking.EventStore)
// =============================================================================

func (s *Store) AppendEvent(ctx context.Context, ev *banking.LedgerEvent) error {
	return appendEvent(ctx, s.db, ev)
}

func appendEvent(ctx context.Context, db execer, ev *banking.LedgerEvent) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO ledger_events (event_type, reference, account_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(ev.Type), ev.Reference, int64(ev.AccountID), string(ev.Payload), formatTime(ev.CreatedAt))
	if err != nil {
		return classify(err, "append event")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	ev.ID = id
	return nil
}

// PendingEvents returns unpublished events, oldest first.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]banking.LedgerEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, reference, account_id, payload, created_at
		FROM ledger_events
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, classify(err, "pending events")
	}
	defer rows.Close()

	events := []banking.LedgerEvent{}
	for rows.Next() {
		var (
			ev           banking.LedgerEvent
			typ, payload string
			accountID    int64
			createdAt    string
		)
		if err := rows.Scan(&ev.ID, &typ, &ev.Reference, &accountID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = banking.EventType(typ)
		ev.AccountID = banking.AccountID(accountID)
		ev.Payload = []byte(payload)
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) MarkEventsPublished(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.inTx(ctx, func(db execer) error {
		for _, id := range ids {
			if _, err := db.ExecContext(ctx,
				`UPDATE ledger_events SET published_at = ? WHERE id = ? AND published_at IS NULL`,
				formatTime(at), id); err != nil {
				return classify(err, "mark event published")
			}
		}
		return nil
	})
}

// =============================================================================
// TRANSACTIONAL STORE (banking.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store banking.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(err, "commit")
	}
	return nil
}

// inTx runs a multi-statement write outside WithTx as its own transaction.
func (s *Store) inTx(ctx context.Context, fn func(db execer) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify(err, "commit")
	}
	return nil
}

// txStore reads and writes through the open transaction only. Going back to
// the parent pool would wait on the single connection this tx holds.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateAccount(ctx context.Context, acc *banking.Account) error {
	return createAccount(ctx, ts.tx, acc)
}

func (ts *txStore) GetAccount(ctx context.Context, id banking.AccountID) (*banking.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) ListAccounts(ctx context.Context, owner banking.OwnerID) ([]banking.Account, error) {
	return listAccounts(ctx, ts.tx, owner)
}

func (ts *txStore) UpdateAccount(ctx context.Context, acc *banking.Account) error {
	return updateAccount(ctx, ts.tx, acc)
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx *banking.Transaction) error {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) AppendTransfer(ctx context.Context, tr *banking.Transfer) error {
	return appendTransfer(ctx, ts.tx, tr)
}

func (ts *txStore) ListTransactions(ctx context.Context, id banking.AccountID, offset, limit int) ([]banking.Transaction, error) {
	return listTransactions(ctx, ts.tx, id, offset, limit)
}

func (ts *txStore) TransactionsInRange(ctx context.Context, id banking.AccountID, rng banking.StatementRange) ([]banking.Transaction, error) {
	return transactionsInRange(ctx, ts.tx, id, rng)
}

func (ts *txStore) ListTransfers(ctx context.Context, id banking.AccountID) ([]banking.Transfer, error) {
	return listTransfers(ctx, ts.tx, id)
}

func (ts *txStore) CreateCard(ctx context.Context, card *banking.Card) error {
	return createCard(ctx, ts.tx, card)
}

func (ts *txStore) ListCards(ctx context.Context, id banking.AccountID) ([]banking.Card, error) {
	return listCards(ctx, ts.tx, id)
}

func (ts *txStore) AppendEvent(ctx context.Context, ev *banking.LedgerEvent) error {
	return appendEvent(ctx, ts.tx, ev)
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// classify maps driver errors onto banking sentinels.
func classify(err error, op string) error {
	switch {
	case isUniqueConstraintError(err):
		return banking.ErrReferenceCollision
	case isForeignKeyError(err):
		return fmt.Errorf("%s: %w", op, banking.ErrAccountNotFound)
	case isBusyError(err):
		return fmt.Errorf("%s: %w: %v", op, banking.ErrConcurrentModification, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func isBusyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked)
}

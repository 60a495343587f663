/*
service.go - The core's boundary

PURPOSE:
  Service is the narrow interface the HTTP layer (or any other adapter)
  calls. It wires the Registry, Processor, Orchestrator, StatementAssembler,
  CardIssuer and Reconciler around one TxStore and one LockManager.

  The core checks existence and the active flag only. Ownership of an
  account by the calling principal is the caller's job.

USAGE:
  svc := banking.NewService(store, banking.Options{}, logger)
  acc, _ := svc.OpenAccount(ctx, banking.OpenAccountInput{
      OwnerID: "alice", Type: banking.AccountChecking,
      InitialBalance: decimal.NewFromInt(1000),
  })
  tr, err := svc.CreateTransfer(ctx, acc.ID, other.ID, decimal.NewFromInt(200), "rent")

SEE ALSO:
  - processor.go, transfer.go: The atomic units
  - api/handlers.go: HTTP adapter
*/
package banking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OpeningBalanceDescription labels the credit that books an initial balance.
const OpeningBalanceDescription = "Opening balance"

type Options struct {
	// LockTimeout bounds the wait for account mutation rights. Zero means
	// DefaultLockTimeout.
	LockTimeout time.Duration

	// Retry governs ErrConcurrentModification retries. The zero value means
	// DefaultRetryPolicy.
	Retry RetryPolicy

	// Clock stamps accounts, transactions and transfers. Defaults to UTC now.
	Clock func() time.Time

	// Refs mints tokens. Defaults to NewReferenceGenerator().
	Refs *ReferenceGenerator
}

const DefaultLockTimeout = 5 * time.Second

type Service struct {
	store  TxStore
	locks  *LockManager
	logger *zap.Logger

	registry   *Registry
	processor  *Processor
	transfers  *Orchestrator
	statements *StatementAssembler
	cards      *CardIssuer
	reconciler *Reconciler
}

func NewService(store TxStore, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Refs == nil {
		opts.Refs = NewReferenceGenerator()
	}

	locks := NewLockManager(opts.LockTimeout)
	registry := NewRegistry(opts.Refs, opts.Clock)
	processor := &Processor{
		Store:    store,
		Locks:    locks,
		Registry: registry,
		Refs:     opts.Refs,
		Retry:    opts.Retry,
		Clock:    opts.Clock,
		Logger:   logger.With(zap.String("component", "processor")),
	}

	return &Service{
		store:      store,
		locks:      locks,
		logger:     logger,
		registry:   registry,
		processor:  processor,
		transfers:  &Orchestrator{Processor: processor},
		statements: &StatementAssembler{Store: store},
		cards:      &CardIssuer{Store: store, Refs: opts.Refs, Clock: opts.Clock},
		reconciler: &Reconciler{Store: store, Locks: locks, Clock: opts.Clock},
	}
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func (s *Service) ProcessTransaction(ctx context.Context, id AccountID, dir Direction, amount decimal.Decimal, description string) (*Transaction, error) {
	return s.processor.Process(ctx, id, dir, amount, description)
}

func (s *Service) CreateTransfer(ctx context.Context, src, dst AccountID, amount decimal.Decimal, description string) (*Transfer, error) {
	return s.transfers.Transfer(ctx, src, dst, amount, description)
}

// =============================================================================
// READS
// =============================================================================

// ListTransactions returns entries in insertion order, most recent last.
func (s *Service) ListTransactions(ctx context.Context, id AccountID, offset, limit int) ([]Transaction, error) {
	return s.statements.History(ctx, id, offset, limit)
}

// GetStatement returns entries within [start, end], newest first. Either
// bound may be nil.
func (s *Service) GetStatement(ctx context.Context, id AccountID, start, end *time.Time) ([]Transaction, error) {
	return s.statements.Statement(ctx, id, StatementRange{Start: start, End: end})
}

func (s *Service) GetAccount(ctx context.Context, id AccountID) (*Account, error) {
	return s.registry.Get(ctx, s.store, id)
}

func (s *Service) ListAccounts(ctx context.Context, owner OwnerID) ([]Account, error) {
	accounts, err := s.store.ListAccounts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

func (s *Service) ListTransfers(ctx context.Context, id AccountID) ([]Transfer, error) {
	if _, err := s.store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	transfers, err := s.store.ListTransfers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transfers for account %d: %w", id, err)
	}
	if transfers == nil {
		transfers = []Transfer{}
	}
	return transfers, nil
}

// ListOwnerTransfers gathers the transfers touching any of owner's accounts,
// oldest first. A transfer between two of the owner's accounts appears once.
func (s *Service) ListOwnerTransfers(ctx context.Context, owner OwnerID) ([]Transfer, error) {
	accounts, err := s.ListAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}
	seen := make(map[TransferID]bool)
	transfers := []Transfer{}
	for _, acc := range accounts {
		found, err := s.store.ListTransfers(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("list transfers for owner %s: %w", owner, err)
		}
		for _, tr := range found {
			if !seen[tr.ID] {
				seen[tr.ID] = true
				transfers = append(transfers, tr)
			}
		}
	}
	sort.SliceStable(transfers, func(i, j int) bool {
		if !transfers[i].Timestamp.Equal(transfers[j].Timestamp) {
			return transfers[i].Timestamp.Before(transfers[j].Timestamp)
		}
		return transfers[i].ID < transfers[j].ID
	})
	return transfers, nil
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

// OpenAccount creates an account. A positive InitialBalance is booked as an
// opening credit in the same atomic unit, so the account never exists with
// a balance its ledger does not explain.
func (s *Service) OpenAccount(ctx context.Context, in OpenAccountInput) (*Account, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidAccountType
	}
	if in.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance %s", ErrInvalidAmount, in.InitialBalance)
	}

	var opened *Account
	unit := context.WithoutCancel(ctx)
	err := s.store.WithTx(unit, func(tx Store) error {
		acc, err := s.registry.Open(unit, tx, in.OwnerID, in.Type)
		if err != nil {
			return err
		}
		// The account is invisible to everyone else until commit, so the
		// opening credit needs no lock.
		if in.InitialBalance.IsPositive() {
			if _, err := s.processor.leg(unit, tx, legInput{
				AccountID:   acc.ID,
				Direction:   Credit,
				Amount:      in.InitialBalance,
				Description: OpeningBalanceDescription,
			}); err != nil {
				return err
			}
		}
		opened, err = tx.GetAccount(unit, acc.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account opened",
		zap.Int64("account_id", int64(opened.ID)),
		zap.String("owner_id", string(opened.OwnerID)),
		zap.String("account_type", string(opened.Type)),
		zap.String("balance", opened.Balance.String()))
	return opened, nil
}

// DeactivateAccount takes the account's mutation rights so no movement is
// half-way through when the flag flips.
func (s *Service) DeactivateAccount(ctx context.Context, id AccountID) (*Account, error) {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var acc *Account
	unit := context.WithoutCancel(ctx)
	err = s.store.WithTx(unit, func(tx Store) error {
		a, err := s.registry.SetActive(unit, tx, id, false)
		if err != nil {
			return err
		}
		acc = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account deactivated", zap.Int64("account_id", int64(id)))
	return acc, nil
}

// =============================================================================
// CARDS & RECONCILIATION
// =============================================================================

func (s *Service) IssueCard(ctx context.Context, in IssueCardInput) (*Card, error) {
	card, err := s.cards.Issue(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("card issued",
		zap.Int64("account_id", int64(card.AccountID)),
		zap.String("card_type", string(card.Type)))
	return card, nil
}

func (s *Service) ListCards(ctx context.Context, id AccountID) ([]Card, error) {
	return s.cards.List(ctx, id)
}

func (s *Service) Reconcile(ctx context.Context, id AccountID) (*ReconciliationReport, error) {
	report, err := s.reconciler.Reconcile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.Consistent() {
		s.logger.Warn("ledger drift detected",
			zap.Int64("account_id", int64(id)),
			zap.String("balance", report.Balance.String()),
			zap.String("ledger_balance", report.LedgerBalance.String()),
			zap.String("drift", report.Drift.String()))
	}
	return report, nil
}

/*
processor.go - Single-account credit and debit

PURPOSE:
  The Processor is the only component that creates Transaction records.
  A standalone Process call and each leg of a transfer go through the same
  leg routine, so both share the balance rules and the ledger format.

ATOMIC UNIT:
  Inside one TxStore.WithTx:
    1. Registry.AdjustBalance (re-read, active check, non-negative check, write)
    2. AppendTransaction with a fresh TXN- reference
    3. AppendEvent (transaction.committed) for the outbox
  If any step fails, all three roll back together.

CANCELLATION:
  The caller's ctx governs only the wait for mutation rights. Once rights
  are held the unit runs to commit or rollback on a context detached from
  the caller's cancellation, and rights are released by defer.

SEE ALSO:
  - transfer.go: Composes two legs into one unit
  - registry.go: Balance rules
*/
package banking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Processor struct {
	Store    TxStore
	Locks    *LockManager
	Registry *Registry
	Refs     *ReferenceGenerator
	Retry    RetryPolicy
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Process credits or debits one account.
//
// Errors:
//   - ErrInvalidAmount, ErrInvalidDirection: before any lock or store access
//   - ErrAccountNotFound, ErrAccountInactive, ErrInsufficientFunds: unit rolled back
//   - ErrConcurrentModification: after the retry budget is spent
func (p *Processor) Process(ctx context.Context, id AccountID, dir Direction, amount decimal.Decimal, description string) (*Transaction, error) {
	if err := validateMovement(dir, amount); err != nil {
		return nil, err
	}

	var result *Transaction
	err := p.Retry.Do(ctx, func() error {
		release, err := p.Locks.Acquire(ctx, id)
		if err != nil {
			return err
		}
		defer release()

		unit := context.WithoutCancel(ctx)
		return p.Store.WithTx(unit, func(s Store) error {
			tx, err := p.leg(unit, s, legInput{
				AccountID:   id,
				Direction:   dir,
				Amount:      amount,
				Description: description,
			})
			if err != nil {
				return err
			}
			result = tx
			return nil
		})
	})
	if err != nil {
		p.logger().Debug("transaction rejected",
			zap.Int64("account_id", int64(id)),
			zap.String("direction", string(dir)),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return nil, err
	}

	p.logger().Info("transaction committed",
		zap.Int64("account_id", int64(id)),
		zap.String("direction", string(dir)),
		zap.String("amount", amount.String()),
		zap.String("reference", result.Reference))
	return result, nil
}

type legInput struct {
	AccountID         AccountID
	Direction         Direction
	Amount            decimal.Decimal
	Description       string
	TransferReference string
}

// leg applies one movement on an open atomic unit. The caller holds
// mutation rights on in.AccountID.
func (p *Processor) leg(ctx context.Context, s Store, in legInput) (*Transaction, error) {
	if _, err := p.Registry.AdjustBalance(ctx, s, in.AccountID, in.Direction.Signed(in.Amount)); err != nil {
		return nil, err
	}

	var tx *Transaction
	err := mintReference(p.Refs, KindTransaction, func(ref string) error {
		candidate := &Transaction{
			AccountID:         in.AccountID,
			Direction:         in.Direction,
			Amount:            in.Amount,
			Description:       in.Description,
			Reference:         ref,
			TransferReference: in.TransferReference,
			Timestamp:         p.now(),
		}
		if err := s.AppendTransaction(ctx, candidate); err != nil {
			return err
		}
		tx = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := appendEvent(ctx, s, EventTransactionCommitted, tx.Reference, tx.AccountID, tx.Timestamp, transactionPayload(tx)); err != nil {
		return nil, err
	}
	return tx, nil
}

func (p *Processor) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock()
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func validateMovement(dir Direction, amount decimal.Decimal) error {
	if !dir.Valid() {
		return ErrInvalidDirection
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}
	return nil
}

// =============================================================================
// OUTBOX PAYLOADS
// =============================================================================

type transactionEvent struct {
	Reference         string          `json:"reference"`
	AccountID         int64           `json:"account_id"`
	Direction         string          `json:"direction"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	TransferReference string          `json:"transfer_reference,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

func transactionPayload(tx *Transaction) any {
	return transactionEvent{
		Reference:         tx.Reference,
		AccountID:         int64(tx.AccountID),
		Direction:         string(tx.Direction),
		Amount:            tx.Amount,
		Description:       tx.Description,
		TransferReference: tx.TransferReference,
		Timestamp:         tx.Timestamp,
	}
}

func appendEvent(ctx context.Context, s Store, typ EventType, ref string, account AccountID, at time.Time, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	ev := &LedgerEvent{
		Type:      typ,
		Reference: ref,
		AccountID: account,
		Payload:   body,
		CreatedAt: at,
	}
	if err := s.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("append %s event: %w", typ, err)
	}
	return nil
}

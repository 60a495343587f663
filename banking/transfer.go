/*
transfer.go - Two-account transfers

PURPOSE:
  Moves money from one account to another as a single atomic unit made of
  a debit leg on the source and a credit leg on the destination.

LOCK ORDERING:
  Mutation rights on both accounts are taken in ascending AccountID order,
  regardless of which one is the source. Two transfers moving money in
  opposite directions between the same pair therefore queue on the same
  first lock instead of holding one each.

ATOMIC UNIT:
  Inside one TxStore.WithTx:
    1. debit leg on source      (Processor.leg)
    2. credit leg on destination (Processor.leg)
    3. AppendTransfer with a fresh TRF- reference
    4. AppendEvent (transfer.committed)
  A failing leg is returned as *LegError and nothing is persisted.

AUDIT TRAIL:
  Both legs carry the transfer's reference in TransferReference and name
  the counterpart account number in their description.

SEE ALSO:
  - processor.go: The leg routine
  - locks.go: Lock ordering
*/
package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Orchestrator struct {
	Processor *Processor
}

// Transfer moves amount from src to dst.
//
// Errors:
//   - ErrSameAccountTransfer, ErrInvalidAmount: before any lock or store access
//   - ErrAccountNotFound: either side missing
//   - *LegError wrapping ErrInsufficientFunds / ErrAccountInactive: unit rolled back
//   - ErrConcurrentModification: after the retry budget is spent
func (o *Orchestrator) Transfer(ctx context.Context, src, dst AccountID, amount decimal.Decimal, description string) (*Transfer, error) {
	if src == dst {
		return nil, ErrSameAccountTransfer
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}

	p := o.Processor
	if _, err := p.Store.GetAccount(ctx, src); err != nil {
		return nil, fmt.Errorf("source account %d: %w", src, err)
	}
	if _, err := p.Store.GetAccount(ctx, dst); err != nil {
		return nil, fmt.Errorf("destination account %d: %w", dst, err)
	}

	var result *Transfer
	err := p.Retry.Do(ctx, func() error {
		release, err := p.Locks.Acquire(ctx, src, dst)
		if err != nil {
			return err
		}
		defer release()

		tr, err := o.commit(context.WithoutCancel(ctx), src, dst, amount, description)
		if err != nil {
			return err
		}
		result = tr
		return nil
	})
	if err != nil {
		p.logger().Debug("transfer rejected",
			zap.Int64("source_account_id", int64(src)),
			zap.Int64("destination_account_id", int64(dst)),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return nil, err
	}

	p.logger().Info("transfer committed",
		zap.Int64("source_account_id", int64(src)),
		zap.Int64("destination_account_id", int64(dst)),
		zap.String("amount", amount.String()),
		zap.String("reference", result.Reference))
	return result, nil
}

// commit runs the unit with rights on both accounts held. The transfer
// reference is minted before the legs so both can point at it; a collision
// on AppendTransfer discards the whole unit and starts over with a new one.
func (o *Orchestrator) commit(ctx context.Context, src, dst AccountID, amount decimal.Decimal, description string) (*Transfer, error) {
	p := o.Processor

	var result *Transfer
	err := mintReference(p.Refs, KindTransfer, func(ref string) error {
		return p.Store.WithTx(ctx, func(s Store) error {
			srcAcc, err := s.GetAccount(ctx, src)
			if err != nil {
				return &LegError{Leg: LegDebit, AccountID: src, Err: err}
			}
			dstAcc, err := s.GetAccount(ctx, dst)
			if err != nil {
				return &LegError{Leg: LegCredit, AccountID: dst, Err: err}
			}

			debit, err := p.leg(ctx, s, legInput{
				AccountID:         src,
				Direction:         Debit,
				Amount:            amount,
				Description:       fmt.Sprintf("Transfer to account %s: %s", dstAcc.AccountNumber, description),
				TransferReference: ref,
			})
			if err != nil {
				return &LegError{Leg: LegDebit, AccountID: src, Err: err}
			}

			if _, err := p.leg(ctx, s, legInput{
				AccountID:         dst,
				Direction:         Credit,
				Amount:            amount,
				Description:       fmt.Sprintf("Transfer from account %s: %s", srcAcc.AccountNumber, description),
				TransferReference: ref,
			}); err != nil {
				return &LegError{Leg: LegCredit, AccountID: dst, Err: err}
			}

			tr := &Transfer{
				SourceAccountID:      src,
				DestinationAccountID: dst,
				Amount:               amount,
				Description:          description,
				Reference:            ref,
				Timestamp:            debit.Timestamp,
			}
			if err := s.AppendTransfer(ctx, tr); err != nil {
				return err
			}
			if err := appendEvent(ctx, s, EventTransferCommitted, tr.Reference, src, tr.Timestamp, transferPayload(tr)); err != nil {
				return err
			}
			result = tr
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type transferEvent struct {
	Reference            string          `json:"reference"`
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	Timestamp            time.Time       `json:"timestamp"`
}

func transferPayload(tr *Transfer) any {
	return transferEvent{
		Reference:            tr.Reference,
		SourceAccountID:      int64(tr.SourceAccountID),
		DestinationAccountID: int64(tr.DestinationAccountID),
		Amount:               tr.Amount,
		Description:          tr.Description,
		Timestamp:            tr.Timestamp,
	}
}

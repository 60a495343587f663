package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationReport compares an account's stored balance with the sum of
// its ledger. Drift is Balance - LedgerBalance.
type ReconciliationReport struct {
	AccountID     AccountID
	Balance       decimal.Decimal
	LedgerBalance decimal.Decimal
	Drift         decimal.Decimal
	Entries       int
	CheckedAt     time.Time
}

func (r ReconciliationReport) Consistent() bool {
	return r.Drift.IsZero()
}

// LedgerBalance folds transactions into the balance they imply.
func LedgerBalance(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Direction.Signed(tx.Amount))
	}
	return sum
}

// Reconciler recomputes balances from the ledger. It holds the account's
// mutation rights while reading so no movement lands between the balance
// read and the ledger read.
type Reconciler struct {
	Store Store
	Locks *LockManager
	Clock func() time.Time
}

func (r *Reconciler) Reconcile(ctx context.Context, id AccountID) (*ReconciliationReport, error) {
	release, err := r.Locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	acc, err := r.Store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	txs, err := r.Store.TransactionsInRange(ctx, id, StatementRange{})
	if err != nil {
		return nil, fmt.Errorf("reconcile account %d: %w", id, err)
	}

	ledger := LedgerBalance(txs)
	checkedAt := time.Now().UTC()
	if r.Clock != nil {
		checkedAt = r.Clock()
	}
	return &ReconciliationReport{
		AccountID:     id,
		Balance:       acc.Balance,
		LedgerBalance: ledger,
		Drift:         acc.Balance.Sub(ledger),
		Entries:       len(txs),
		CheckedAt:     checkedAt,
	}, nil
}

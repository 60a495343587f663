package banking

import (
	"context"
	"fmt"
)

// StatementAssembler builds read-only, date-bounded views of an account's
// ledger. It takes no account locks and never writes.
type StatementAssembler struct {
	Store Store
}

// Statement returns the account's transactions within rng, newest first.
// Transfers appear only through their legs. A range whose start is after its
// end yields an empty statement.
func (a *StatementAssembler) Statement(ctx context.Context, id AccountID, rng StatementRange) ([]Transaction, error) {
	if _, err := a.Store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	if rng.Empty() {
		return []Transaction{}, nil
	}

	txs, err := a.Store.TransactionsInRange(ctx, id, rng)
	if err != nil {
		return nil, fmt.Errorf("statement for account %d: %w", id, err)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

// History returns the account's transactions in insertion order, most
// recent last.
func (a *StatementAssembler) History(ctx context.Context, id AccountID, offset, limit int) ([]Transaction, error) {
	if offset < 0 || limit <= 0 {
		return nil, ErrInvalidPagination
	}
	if _, err := a.Store.GetAccount(ctx, id); err != nil {
		return nil, err
	}

	txs, err := a.Store.ListTransactions(ctx, id, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions for account %d: %w", id, err)
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

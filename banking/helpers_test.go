package banking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/bank-engine/banking"
	"github.com/warp/bank-engine/banking/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// stepClock advances one second per reading so every stamp is distinct and
// ordered.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T) (*banking.Service, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	svc := banking.NewService(mem, banking.Options{
		LockTimeout: 2 * time.Second,
		Clock:       newStepClock().Now,
	}, nil)
	return svc, mem
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openAccount(t *testing.T, svc *banking.Service, owner string, balance string) *banking.Account {
	t.Helper()
	acc, err := svc.OpenAccount(context.Background(), banking.OpenAccountInput{
		OwnerID:        banking.OwnerID(owner),
		Type:           banking.AccountChecking,
		InitialBalance: dec(balance),
	})
	require.NoError(t, err)
	return acc
}

func balanceOf(t *testing.T, svc *banking.Service, id banking.AccountID) decimal.Decimal {
	t.Helper()
	acc, err := svc.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func allTransactions(t *testing.T, svc *banking.Service, id banking.AccountID) []banking.Transaction {
	t.Helper()
	txs, err := svc.ListTransactions(context.Background(), id, 0, 10_000)
	require.NoError(t, err)
	return txs
}

// =============================================================================
// FAULT INJECTION
// =============================================================================

var errInjected = errors.New("injected storage failure")

// failingCreditStore fails every credit ledger append made inside an atomic
// unit, after the debit side has already been written.
type failingCreditStore struct {
	*store.TxMemory
}

func (f failingCreditStore) WithTx(ctx context.Context, fn func(banking.Store) error) error {
	return f.TxMemory.WithTx(ctx, func(s banking.Store) error {
		return fn(failingCreditView{Store: s})
	})
}

type failingCreditView struct {
	banking.Store
}

func (v failingCreditView) AppendTransaction(ctx context.Context, tx *banking.Transaction) error {
	if tx.Direction == banking.Credit {
		return errInjected
	}
	return v.Store.AppendTransaction(ctx, tx)
}

package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bank-engine/banking"
)

var t0 = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, s banking.Store, number string) *banking.Account {
	t.Helper()
	acc := &banking.Account{
		OwnerID:       "alice",
		AccountNumber: number,
		Type:          banking.AccountChecking,
		Balance:       decimal.Zero,
		Active:        true,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func entry(id banking.AccountID, ref string, at time.Time) *banking.Transaction {
	return &banking.Transaction{
		AccountID: id,
		Direction: banking.Credit,
		Amount:    decimal.NewFromInt(10),
		Reference: ref,
		Timestamp: at,
	}
}

func TestMemory_AccountNumbersAreUnique(t *testing.T) {
	m := NewMemory()
	first := newAccount(t, m, "ACC0000000001")
	assert.Equal(t, banking.AccountID(1), first.ID)

	dup := &banking.Account{AccountNumber: "ACC0000000001"}
	err := m.CreateAccount(context.Background(), dup)

	assert.ErrorIs(t, err, banking.ErrReferenceCollision)
}

func TestMemory_ReferencesSharedAcrossTransactionsAndTransfers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := newAccount(t, m, "ACC0000000001")

	require.NoError(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-1", t0)))
	assert.ErrorIs(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-1", t0)), banking.ErrReferenceCollision)

	err := m.AppendTransfer(ctx, &banking.Transfer{Reference: "TXN-1"})
	assert.ErrorIs(t, err, banking.ErrReferenceCollision)
}

func TestMemory_AppendTransaction_UnknownAccount(t *testing.T) {
	m := NewMemory()

	err := m.AppendTransaction(context.Background(), entry(9, "TXN-1", t0))

	assert.ErrorIs(t, err, banking.ErrAccountNotFound)
}

func TestMemory_ListTransactions_HugeLimit(t *testing.T) {
	// GIVEN: An account with two entries
	m := NewMemory()
	ctx := context.Background()
	a := newAccount(t, m, "ACC0000000001")
	require.NoError(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-1", t0)))
	require.NoError(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-2", t0)))

	// WHEN: Paging with a limit that overflows offset+limit
	page, err := m.ListTransactions(ctx, a.ID, 1, math.MaxInt)

	// THEN: The rest of the history comes back
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "TXN-2", page[0].Reference)

	page, err = m.ListTransactions(ctx, a.ID, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "TXN-1", page[0].Reference)
}

func TestMemory_TransactionsInRange_NewestFirstWithTieBreak(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := newAccount(t, m, "ACC0000000001")

	require.NoError(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-A", t0)))
	require.NoError(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-B", t0.Add(time.Hour))))
	require.NoError(t, m.AppendTransaction(ctx, entry(a.ID, "TXN-C", t0)))

	got, err := m.TransactionsInRange(ctx, a.ID, banking.StatementRange{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "TXN-B", got[0].Reference)
	assert.Equal(t, "TXN-C", got[1].Reference, "same instant: later insertion first")
	assert.Equal(t, "TXN-A", got[2].Reference)

	history, err := m.ListTransactions(ctx, a.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "TXN-A", history[0].Reference)
	assert.Equal(t, "TXN-C", history[2].Reference)
}

func TestTxMemory_RollbackUndoesEveryWrite(t *testing.T) {
	// GIVEN: A store with one account
	tm := NewTxMemory()
	ctx := context.Background()
	a := newAccount(t, tm, "ACC0000000001")
	boom := errors.New("boom")

	// WHEN: A unit writes everywhere, then fails
	err := tm.WithTx(ctx, func(s banking.Store) error {
		upd := *a
		upd.Balance = decimal.NewFromInt(999)
		require.NoError(t, s.UpdateAccount(ctx, &upd))
		require.NoError(t, s.AppendTransaction(ctx, entry(a.ID, "TXN-1", t0)))
		require.NoError(t, s.AppendTransfer(ctx, &banking.Transfer{Reference: "TRF-1"}))
		require.NoError(t, s.CreateCard(ctx, &banking.Card{AccountID: a.ID, CardNumber: "4111111111111111"}))
		require.NoError(t, s.AppendEvent(ctx, &banking.LedgerEvent{Type: banking.EventTransferCommitted}))
		newAccount(t, s, "ACC0000000002")
		return boom
	})

	// THEN: Nothing is visible and tokens are free again
	require.ErrorIs(t, err, boom)

	got, err := tm.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	txs, _ := tm.ListTransactions(ctx, a.ID, 0, 10)
	assert.Empty(t, txs)
	transfers, _ := tm.ListTransfers(ctx, a.ID)
	assert.Empty(t, transfers)
	cards, _ := tm.ListCards(ctx, a.ID)
	assert.Empty(t, cards)
	events, _ := tm.PendingEvents(ctx, 0)
	assert.Empty(t, events)
	accounts, _ := tm.ListAccounts(ctx, "")
	assert.Len(t, accounts, 1)

	require.NoError(t, tm.AppendTransaction(ctx, entry(a.ID, "TXN-1", t0)))
	second := newAccount(t, tm, "ACC0000000002")
	assert.Equal(t, banking.AccountID(2), second.ID)
}

func TestTxMemory_CommitKeepsWrites(t *testing.T) {
	tm := NewTxMemory()
	ctx := context.Background()
	a := newAccount(t, tm, "ACC0000000001")

	err := tm.WithTx(ctx, func(s banking.Store) error {
		return s.AppendTransaction(ctx, entry(a.ID, "TXN-1", t0))
	})
	require.NoError(t, err)

	txs, _ := tm.ListTransactions(ctx, a.ID, 0, 10)
	assert.Len(t, txs, 1)
}

func TestMemory_OutboxPublishCycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendEvent(ctx, &banking.LedgerEvent{Type: banking.EventTransactionCommitted}))
	}

	batch, err := m.PendingEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(1), batch[0].ID)

	require.NoError(t, m.MarkEventsPublished(ctx, []int64{batch[0].ID, batch[1].ID, 42}, t0))

	rest, err := m.PendingEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(3), rest[0].ID)
}

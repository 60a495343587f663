package banking_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bank-engine/banking"
)

func TestProcess_CreditAndDebit_UpdateBalanceAndLedger(t *testing.T) {
	// GIVEN: An account with 100
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc := openAccount(t, svc, "alice", "100")

	// WHEN: Crediting 25.50 then debiting 40
	credit, err := svc.ProcessTransaction(ctx, acc.ID, banking.Credit, dec("25.50"), "salary")
	require.NoError(t, err)
	debit, err := svc.ProcessTransaction(ctx, acc.ID, banking.Debit, dec("40"), "groceries")
	require.NoError(t, err)

	// THEN: Balance reflects both, ledger holds opening + 2 entries
	assert.True(t, dec("85.50").Equal(balanceOf(t, svc, acc.ID)))

	txs := allTransactions(t, svc, acc.ID)
	require.Len(t, txs, 3)
	assert.Equal(t, banking.OpeningBalanceDescription, txs[0].Description)
	assert.Equal(t, credit.Reference, txs[1].Reference)
	assert.Equal(t, debit.Reference, txs[2].Reference)

	assert.True(t, strings.HasPrefix(credit.Reference, banking.TransactionPrefix))
	assert.Equal(t, banking.Debit, debit.Direction)
	assert.True(t, dec("40").Equal(debit.Amount), "amount is stored unsigned")
	assert.True(t, debit.Timestamp.After(credit.Timestamp))
	assert.Empty(t, credit.TransferReference)
}

func TestProcess_InsufficientFunds_NoEffect(t *testing.T) {
	// GIVEN: Account A with balance 50
	svc, mem := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, svc, "alice", "50")
	eventsBefore, _ := mem.PendingEvents(ctx, 0)

	// WHEN: Debiting 100 ("atm")
	tx, err := svc.ProcessTransaction(ctx, a.ID, banking.Debit, dec("100"), "atm")

	// THEN: InsufficientFunds, balance stays 50, no Transaction created
	require.Error(t, err)
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, banking.ErrInsufficientFunds))

	var details *banking.InsufficientFundsError
	require.True(t, errors.As(err, &details))
	assert.True(t, dec("50").Equal(details.Available))
	assert.True(t, dec("100").Equal(details.Requested))

	assert.True(t, dec("50").Equal(balanceOf(t, svc, a.ID)))
	assert.Len(t, allTransactions(t, svc, a.ID), 1, "only the opening credit")

	eventsAfter, _ := mem.PendingEvents(ctx, 0)
	assert.Len(t, eventsAfter, len(eventsBefore))
}

func TestProcess_DebitToExactlyZero_Allowed(t *testing.T) {
	svc, _ := newTestService(t)
	a := openAccount(t, svc, "alice", "10.01")

	_, err := svc.ProcessTransaction(context.Background(), a.ID, banking.Debit, dec("10.01"), "close out")

	require.NoError(t, err)
	assert.True(t, balanceOf(t, svc, a.ID).IsZero())
}

func TestProcess_InvalidAmount_RejectedBeforeStore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "-0.01"} {
		// Account 999 does not exist: validation must fire before any lookup.
		_, err := svc.ProcessTransaction(ctx, 999, banking.Credit, dec(amount), "bad")
		assert.ErrorIs(t, err, banking.ErrInvalidAmount, "amount %s", amount)
	}
}

func TestProcess_InvalidDirection(t *testing.T) {
	svc, _ := newTestService(t)
	a := openAccount(t, svc, "alice", "10")

	_, err := svc.ProcessTransaction(context.Background(), a.ID, banking.Direction("REFUND"), dec("1"), "")

	assert.ErrorIs(t, err, banking.ErrInvalidDirection)
	assert.True(t, banking.IsClientError(err))
}

func TestProcess_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ProcessTransaction(context.Background(), 42, banking.Credit, dec("1"), "")

	assert.ErrorIs(t, err, banking.ErrAccountNotFound)
	assert.True(t, banking.IsNotFound(err))
}

func TestProcess_InactiveAccount_Rejected(t *testing.T) {
	// GIVEN: A deactivated account with 100
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, svc, "alice", "100")
	_, err := svc.DeactivateAccount(ctx, a.ID)
	require.NoError(t, err)

	// WHEN: Crediting it
	_, err = svc.ProcessTransaction(ctx, a.ID, banking.Credit, dec("5"), "late deposit")

	// THEN: AccountInactive, nothing changes
	assert.ErrorIs(t, err, banking.ErrAccountInactive)
	assert.True(t, dec("100").Equal(balanceOf(t, svc, a.ID)))
	assert.Len(t, allTransactions(t, svc, a.ID), 1)
}

func TestProcess_WritesOutboxEvent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, svc, "alice", "0")

	tx, err := svc.ProcessTransaction(ctx, a.ID, banking.Credit, dec("7"), "gift")
	require.NoError(t, err)

	events, err := mem.PendingEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1, "zero opening balance books no credit")
	assert.Equal(t, banking.EventTransactionCommitted, events[0].Type)
	assert.Equal(t, tx.Reference, events[0].Reference)
	assert.Equal(t, a.ID, events[0].AccountID)
	assert.Contains(t, string(events[0].Payload), `"amount":"7"`)
}

func TestProcess_CancelledContext_BeforeLock(t *testing.T) {
	svc, _ := newTestService(t)
	a := openAccount(t, svc, "alice", "10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ProcessTransaction(ctx, a.ID, banking.Debit, dec("1"), "")

	require.Error(t, err)
	assert.True(t, dec("10").Equal(balanceOf(t, svc, a.ID)))
}

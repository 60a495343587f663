package banking_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bank-engine/banking"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestOpenAccount_InitialBalanceIsBookedAsCredit(t *testing.T) {
	svc, _ := newTestService(t)

	acc := openAccount(t, svc, "alice", "250.75")

	assert.True(t, acc.Active)
	assert.Equal(t, banking.OwnerID("alice"), acc.OwnerID)
	assert.True(t, strings.HasPrefix(acc.AccountNumber, banking.AccountNumberPrefix))
	assert.Len(t, acc.AccountNumber, len(banking.AccountNumberPrefix)+10)
	assert.True(t, dec("250.75").Equal(acc.Balance))

	txs := allTransactions(t, svc, acc.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, banking.Credit, txs[0].Direction)
	assert.Equal(t, banking.OpeningBalanceDescription, txs[0].Description)
	assert.True(t, dec("250.75").Equal(txs[0].Amount))
}

func TestOpenAccount_ZeroBalance_EmptyLedger(t *testing.T) {
	svc, _ := newTestService(t)

	acc := openAccount(t, svc, "alice", "0")

	assert.True(t, acc.Balance.IsZero())
	assert.Empty(t, allTransactions(t, svc, acc.ID))
}

func TestOpenAccount_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.OpenAccount(ctx, banking.OpenAccountInput{OwnerID: "alice", Type: "PIGGY"})
	assert.ErrorIs(t, err, banking.ErrInvalidAccountType)

	_, err = svc.OpenAccount(ctx, banking.OpenAccountInput{
		OwnerID: "alice", Type: banking.AccountSavings, InitialBalance: dec("-1"),
	})
	assert.ErrorIs(t, err, banking.ErrInvalidAmount)

	accounts, err := svc.ListAccounts(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestListAccounts_FiltersByOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a1 := openAccount(t, svc, "alice", "1")
	openAccount(t, svc, "bob", "1")
	a2 := openAccount(t, svc, "alice", "2")

	mine, err := svc.ListAccounts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a1.ID, mine[0].ID)
	assert.Equal(t, a2.ID, mine[1].ID)

	none, err := svc.ListAccounts(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeactivateAccount_KeepsHistoryAndBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc := openAccount(t, svc, "alice", "75")

	got, err := svc.DeactivateAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	again, err := svc.DeactivateAccount(ctx, acc.ID)
	require.NoError(t, err, "deactivating twice is a no-op")
	assert.False(t, again.Active)

	assert.True(t, dec("75").Equal(balanceOf(t, svc, acc.ID)))
	assert.Len(t, allTransactions(t, svc, acc.ID), 1)

	_, err = svc.DeactivateAccount(ctx, 999)
	assert.ErrorIs(t, err, banking.ErrAccountNotFound)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile_ConsistentAfterActivity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, svc, "alice", "500")
	b := openAccount(t, svc, "bob", "0")

	_, err := svc.ProcessTransaction(ctx, a.ID, banking.Debit, dec("120.40"), "rent share")
	require.NoError(t, err)
	_, err = svc.CreateTransfer(ctx, a.ID, b.ID, dec("79.60"), "loan")
	require.NoError(t, err)

	report, err := svc.Reconcile(ctx, a.ID)

	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 3, report.Entries)
	assert.True(t, dec("300").Equal(report.Balance))
	assert.True(t, dec("300").Equal(report.LedgerBalance))
	assert.False(t, report.CheckedAt.IsZero())
}

func TestReconcile_DetectsDrift(t *testing.T) {
	// GIVEN: A balance written behind the ledger's back
	svc, mem := newTestService(t)
	ctx := context.Background()
	acc := openAccount(t, svc, "alice", "100")

	tampered := *acc
	tampered.Balance = dec("130")
	require.NoError(t, mem.UpdateAccount(ctx, &tampered))

	// WHEN: Reconciling
	report, err := svc.Reconcile(ctx, acc.ID)

	// THEN: Drift is the unexplained 30
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.True(t, dec("30").Equal(report.Drift))
}

func TestReconcile_UnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Reconcile(context.Background(), 12)

	assert.ErrorIs(t, err, banking.ErrAccountNotFound)
}

// =============================================================================
// CARDS
// =============================================================================

func TestIssueCard_Debit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc := openAccount(t, svc, "alice", "10")

	card, err := svc.IssueCard(ctx, banking.IssueCardInput{
		AccountID: acc.ID, Type: banking.CardDebit, CreditLimit: dec("500"),
	})

	require.NoError(t, err)
	assert.Len(t, card.CardNumber, 16)
	assert.True(t, banking.ValidLuhn(card.CardNumber))
	assert.Len(t, card.CVV, 3)
	assert.Equal(t, banking.CardActive, card.Status)
	assert.True(t, card.CreditLimit.IsZero(), "debit cards carry no credit line")
	assert.Equal(t, card.CreatedAt.Add(banking.CardValidity), card.ExpiresAt)

	cards, err := svc.ListCards(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, card.CardNumber, cards[0].CardNumber)
}

func TestIssueCard_CreditKeepsLimit(t *testing.T) {
	svc, _ := newTestService(t)
	acc := openAccount(t, svc, "alice", "10")

	card, err := svc.IssueCard(context.Background(), banking.IssueCardInput{
		AccountID: acc.ID, Type: banking.CardCredit, CreditLimit: dec("1500"),
	})

	require.NoError(t, err)
	assert.True(t, dec("1500").Equal(card.CreditLimit))
}

func TestIssueCard_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	acc := openAccount(t, svc, "alice", "10")

	_, err := svc.IssueCard(ctx, banking.IssueCardInput{AccountID: acc.ID, Type: "PREPAID"})
	assert.ErrorIs(t, err, banking.ErrInvalidCardType)

	_, err = svc.IssueCard(ctx, banking.IssueCardInput{
		AccountID: acc.ID, Type: banking.CardCredit, CreditLimit: dec("-5"),
	})
	assert.ErrorIs(t, err, banking.ErrInvalidAmount)

	_, err = svc.IssueCard(ctx, banking.IssueCardInput{AccountID: 999, Type: banking.CardDebit})
	assert.ErrorIs(t, err, banking.ErrAccountNotFound)

	_, err = svc.DeactivateAccount(ctx, acc.ID)
	require.NoError(t, err)
	_, err = svc.IssueCard(ctx, banking.IssueCardInput{AccountID: acc.ID, Type: banking.CardDebit})
	assert.ErrorIs(t, err, banking.ErrAccountInactive)
}

// =============================================================================
// TRANSFERS LISTING
// =============================================================================

func TestListTransfers_BothSidesSeeTheTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, svc, "alice", "100")
	b := openAccount(t, svc, "bob", "100")
	c := openAccount(t, svc, "carol", "100")

	first, err := svc.CreateTransfer(ctx, a.ID, b.ID, dec("1"), "one")
	require.NoError(t, err)
	second, err := svc.CreateTransfer(ctx, c.ID, a.ID, dec("2"), "two")
	require.NoError(t, err)

	forA, err := svc.ListTransfers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, first.Reference, forA[0].Reference)
	assert.Equal(t, second.Reference, forA[1].Reference)

	forB, err := svc.ListTransfers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, forB, 1)

	_, err = svc.ListTransfers(ctx, 999)
	assert.ErrorIs(t, err, banking.ErrAccountNotFound)
}

func TestListOwnerTransfers_AcrossAccounts(t *testing.T) {
	// GIVEN: Alice holds two accounts; transfers touch them from both sides
	svc, _ := newTestService(t)
	ctx := context.Background()
	a1 := openAccount(t, svc, "alice", "100")
	a2 := openAccount(t, svc, "alice", "100")
	b := openAccount(t, svc, "bob", "100")

	own, err := svc.CreateTransfer(ctx, a1.ID, a2.ID, dec("5"), "savings")
	require.NoError(t, err)
	in, err := svc.CreateTransfer(ctx, b.ID, a2.ID, dec("7"), "gift")
	require.NoError(t, err)

	// WHEN: Listing by owner
	forAlice, err := svc.ListOwnerTransfers(ctx, "alice")
	require.NoError(t, err)

	// THEN: The internal transfer appears once, oldest first
	require.Len(t, forAlice, 2)
	assert.Equal(t, own.Reference, forAlice[0].Reference)
	assert.Equal(t, in.Reference, forAlice[1].Reference)

	forBob, err := svc.ListOwnerTransfers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, forBob, 1)

	nobody, err := svc.ListOwnerTransfers(ctx, "mallory")
	require.NoError(t, err)
	assert.NotNil(t, nobody)
	assert.Empty(t, nobody)
}

// Package store provides in-memory banking.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/bank-engine/banking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	accounts       map[banking.AccountID]banking.Account
	accountNumbers map[string]banking.AccountID

	transactions []banking.Transaction
	byAccount    map[banking.AccountID][]int // indexes into transactions
	transfers    []banking.Transfer

	// references is shared by transactions and transfers: a token is unique
	// across the whole ledger, not per kind.
	references map[string]bool

	cards       []banking.Card
	cardNumbers map[string]bool

	events []banking.LedgerEvent

	nextAccountID int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts:       make(map[banking.AccountID]banking.Account),
		accountNumbers: make(map[string]banking.AccountID),
		byAccount:      make(map[banking.AccountID][]int),
		references:     make(map[string]bool),
		cardNumbers:    make(map[string]bool),
	}
}

// undoLog collects compensations for writes made inside WithTx. Outside a
// unit it is nil and writes are final.
type undoLog []func()

func (u *undoLog) push(fn func()) {
	if u != nil {
		*u = append(*u, fn)
	}
}

func (u undoLog) rollback() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, acc *banking.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAccountLocked(acc, nil)
}

func (m *Memory) createAccountLocked(acc *banking.Account, undo *undoLog) error {
	if _, taken := m.accountNumbers[acc.AccountNumber]; taken {
		return banking.ErrReferenceCollision
	}

	prevID := m.nextAccountID
	m.nextAccountID++
	acc.ID = banking.AccountID(m.nextAccountID)
	m.accounts[acc.ID] = *acc
	m.accountNumbers[acc.AccountNumber] = acc.ID

	id, number := acc.ID, acc.AccountNumber
	undo.push(func() {
		delete(m.accounts, id)
		delete(m.accountNumbers, number)
		m.nextAccountID = prevID
	})
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id banking.AccountID) (*banking.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(id)
}

func (m *Memory) getAccountLocked(id banking.AccountID) (*banking.Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, banking.ErrAccountNotFound
	}
	return &acc, nil
}

func (m *Memory) ListAccounts(_ context.Context, owner banking.OwnerID) ([]banking.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAccountsLocked(owner), nil
}

func (m *Memory) listAccountsLocked(owner banking.OwnerID) []banking.Account {
	result := make([]banking.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		if owner == "" || acc.OwnerID == owner {
			result = append(result, acc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) UpdateAccount(_ context.Context, acc *banking.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAccountLocked(acc, nil)
}

func (m *Memory) updateAccountLocked(acc *banking.Account, undo *undoLog) error {
	prev, ok := m.accounts[acc.ID]
	if !ok {
		return banking.ErrAccountNotFound
	}
	next := prev
	next.Balance = acc.Balance
	next.Active = acc.Active
	next.UpdatedAt = acc.UpdatedAt
	m.accounts[acc.ID] = next

	undo.push(func() { m.accounts[prev.ID] = prev })
	return nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) AppendTransaction(_ context.Context, tx *banking.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendTransactionLocked(tx, nil)
}

func (m *Memory) appendTransactionLocked(tx *banking.Transaction, undo *undoLog) error {
	if _, ok := m.accounts[tx.AccountID]; !ok {
		return banking.ErrAccountNotFound
	}
	if m.references[tx.Reference] {
		return banking.ErrReferenceCollision
	}

	idx := len(m.transactions)
	tx.ID = banking.TransactionID(idx + 1)
	m.transactions = append(m.transactions, *tx)
	m.byAccount[tx.AccountID] = append(m.byAccount[tx.AccountID], idx)
	m.references[tx.Reference] = true

	account, ref := tx.AccountID, tx.Reference
	undo.push(func() {
		m.transactions = m.transactions[:idx]
		entries := m.byAccount[account]
		m.byAccount[account] = entries[:len(entries)-1]
		delete(m.references, ref)
	})
	return nil
}

func (m *Memory) AppendTransfer(_ context.Context, tr *banking.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendTransferLocked(tr, nil)
}

func (m *Memory) appendTransferLocked(tr *banking.Transfer, undo *undoLog) error {
	if m.references[tr.Reference] {
		return banking.ErrReferenceCollision
	}

	idx := len(m.transfers)
	tr.ID = banking.TransferID(idx + 1)
	m.transfers = append(m.transfers, *tr)
	m.references[tr.Reference] = true

	ref := tr.Reference
	undo.push(func() {
		m.transfers = m.transfers[:idx]
		delete(m.references, ref)
	})
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, id banking.AccountID, offset, limit int) ([]banking.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTransactionsLocked(id, offset, limit), nil
}

func (m *Memory) listTransactionsLocked(id banking.AccountID, offset, limit int) []banking.Transaction {
	entries := m.byAccount[id]
	if offset >= len(entries) {
		return []banking.Transaction{}
	}
	end := len(entries)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	result := make([]banking.Transaction, 0, end-offset)
	for _, idx := range entries[offset:end] {
		result = append(result, m.transactions[idx])
	}
	return result
}

func (m *Memory) TransactionsInRange(_ context.Context, id banking.AccountID, rng banking.StatementRange) ([]banking.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactionsInRangeLocked(id, rng), nil
}

func (m *Memory) transactionsInRangeLocked(id banking.AccountID, rng banking.StatementRange) []banking.Transaction {
	result := []banking.Transaction{}
	for _, idx := range m.byAccount[id] {
		if tx := m.transactions[idx]; rng.Contains(tx.Timestamp) {
			result = append(result, tx)
		}
	}
	sortNewestFirst(result)
	return result
}

// sortNewestFirst orders by timestamp descending, later insertions first on
// equal timestamps.
func sortNewestFirst(txs []banking.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Timestamp.Equal(txs[j].Timestamp) {
			return txs[i].Timestamp.After(txs[j].Timestamp)
		}
		return txs[i].ID > txs[j].ID
	})
}

func (m *Memory) ListTransfers(_ context.Context, id banking.AccountID) ([]banking.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTransfersLocked(id), nil
}

func (m *Memory) listTransfersLocked(id banking.AccountID) []banking.Transfer {
	result := []banking.Transfer{}
	for _, tr := range m.transfers {
		if tr.SourceAccountID == id || tr.DestinationAccountID == id {
			result = append(result, tr)
		}
	}
	return result
}

// =============================================================================
// CARDS
// =============================================================================

func (m *Memory) CreateCard(_ context.Context, card *banking.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCardLocked(card, nil)
}

func (m *Memory) createCardLocked(card *banking.Card, undo *undoLog) error {
	if _, ok := m.accounts[card.AccountID]; !ok {
		return banking.ErrAccountNotFound
	}
	if m.cardNumbers[card.CardNumber] {
		return banking.ErrReferenceCollision
	}

	idx := len(m.cards)
	card.ID = banking.CardID(idx + 1)
	m.cards = append(m.cards, *card)
	m.cardNumbers[card.CardNumber] = true

	number := card.CardNumber
	undo.push(func() {
		m.cards = m.cards[:idx]
		delete(m.cardNumbers, number)
	})
	return nil
}

func (m *Memory) ListCards(_ context.Context, id banking.AccountID) ([]banking.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCardsLocked(id), nil
}

func (m *Memory) listCardsLocked(id banking.AccountID) []banking.Card {
	result := []banking.Card{}
	for _, c := range m.cards {
		if c.AccountID == id {
			result = append(result, c)
		}
	}
	return result
}

// =============================================================================
// OUTBOX
// =============================================================================

func (m *Memory) AppendEvent(_ context.Context, ev *banking.LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEventLocked(ev, nil)
}

func (m *Memory) appendEventLocked(ev *banking.LedgerEvent, undo *undoLog) error {
	idx := len(m.events)
	ev.ID = int64(idx + 1)
	m.events = append(m.events, *ev)

	undo.push(func() { m.events = m.events[:idx] })
	return nil
}

func (m *Memory) PendingEvents(_ context.Context, limit int) ([]banking.LedgerEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []banking.LedgerEvent{}
	for _, ev := range m.events {
		if ev.PublishedAt != nil {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *Memory) MarkEventsPublished(_ context.Context, ids []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		idx := int(id - 1)
		if idx < 0 || idx >= len(m.events) || m.events[idx].PublishedAt != nil {
			continue
		}
		published := at
		m.events[idx].PublishedAt = &published
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// Units are serialized on the store's write lock, and every write records
// its compensation; on error the compensations run in reverse.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(banking.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	view := &txMemoryView{parent: tm.Memory, undo: undoLog{}}
	if err := fn(view); err != nil {
		view.undo.rollback()
		return err
	}
	return nil
}

// txMemoryView runs on a parent whose write lock is already held.
type txMemoryView struct {
	parent *Memory
	undo   undoLog
}

func (tv *txMemoryView) CreateAccount(_ context.Context, acc *banking.Account) error {
	return tv.parent.createAccountLocked(acc, &tv.undo)
}

func (tv *txMemoryView) GetAccount(_ context.Context, id banking.AccountID) (*banking.Account, error) {
	return tv.parent.getAccountLocked(id)
}

func (tv *txMemoryView) ListAccounts(_ context.Context, owner banking.OwnerID) ([]banking.Account, error) {
	return tv.parent.listAccountsLocked(owner), nil
}

func (tv *txMemoryView) UpdateAccount(_ context.Context, acc *banking.Account) error {
	return tv.parent.updateAccountLocked(acc, &tv.undo)
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, tx *banking.Transaction) error {
	return tv.parent.appendTransactionLocked(tx, &tv.undo)
}

func (tv *txMemoryView) AppendTransfer(_ context.Context, tr *banking.Transfer) error {
	return tv.parent.appendTransferLocked(tr, &tv.undo)
}

func (tv *txMemoryView) ListTransactions(_ context.Context, id banking.AccountID, offset, limit int) ([]banking.Transaction, error) {
	return tv.parent.listTransactionsLocked(id, offset, limit), nil
}

func (tv *txMemoryView) TransactionsInRange(_ context.Context, id banking.AccountID, rng banking.StatementRange) ([]banking.Transaction, error) {
	return tv.parent.transactionsInRangeLocked(id, rng), nil
}

func (tv *txMemoryView) ListTransfers(_ context.Context, id banking.AccountID) ([]banking.Transfer, error) {
	return tv.parent.listTransfersLocked(id), nil
}

func (tv *txMemoryView) CreateCard(_ context.Context, card *banking.Card) error {
	return tv.parent.createCardLocked(card, &tv.undo)
}

func (tv *txMemoryView) ListCards(_ context.Context, id banking.AccountID) ([]banking.Card, error) {
	return tv.parent.listCardsLocked(id), nil
}

func (tv *txMemoryView) AppendEvent(_ context.Context, ev *banking.LedgerEvent) error {
	return tv.parent.appendEventLocked(ev, &tv.undo)
}

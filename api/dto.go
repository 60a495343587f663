/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the banking domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are decimal.Decimal. Requests accept either a JSON number or a
  string ("12.50"); responses always render a string so no client parses
  money into a float by accident.

VALIDATION:
  Validation is done in the banking package, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/bank-engine/banking"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type OpenAccountRequest struct {
	AccountType    banking.AccountType `json:"account_type"`
	InitialBalance decimal.Decimal     `json:"initial_balance"`
}

type TransactionRequest struct {
	TransactionType banking.Direction `json:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount"`
	Description     string            `json:"description"`
}

type TransferRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

type IssueCardRequest struct {
	CardType    banking.CardType `json:"card_type"`
	CreditLimit decimal.Decimal  `json:"credit_limit"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type AccountDTO struct {
	ID            int64           `json:"id"`
	OwnerID       string          `json:"owner_id"`
	AccountNumber string          `json:"account_number"`
	AccountType   string          `json:"account_type"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type TransactionDTO struct {
	ID                int64           `json:"id"`
	AccountID         int64           `json:"account_id"`
	TransactionType   string          `json:"transaction_type"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	ReferenceNumber   string          `json:"reference_number"`
	TransferReference string          `json:"transfer_reference,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

type TransferDTO struct {
	ID              int64           `json:"id"`
	FromAccountID   int64           `json:"from_account_id"`
	ToAccountID     int64           `json:"to_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	ReferenceNumber string          `json:"reference_number"`
	Timestamp       time.Time       `json:"timestamp"`
}

// CardDTO never carries the CVV.
type CardDTO struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	CardNumber  string          `json:"card_number"`
	CardType    string          `json:"card_type"`
	Status      string          `json:"status"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	ExpiryDate  time.Time       `json:"expiry_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ReconciliationDTO struct {
	AccountID     int64           `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Drift         decimal.Decimal `json:"drift"`
	Entries       int             `json:"entries"`
	Consistent    bool            `json:"consistent"`
	CheckedAt     time.Time       `json:"checked_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a banking.Account) AccountDTO {
	return AccountDTO{
		ID:            int64(a.ID),
		OwnerID:       string(a.OwnerID),
		AccountNumber: a.AccountNumber,
		AccountType:   string(a.Type),
		Balance:       a.Balance,
		IsActive:      a.Active,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toAccountDTOs(accounts []banking.Account) []AccountDTO {
	out := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	return out
}

func toTransactionDTO(tx banking.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                int64(tx.ID),
		AccountID:         int64(tx.AccountID),
		TransactionType:   string(tx.Direction),
		Amount:            tx.Amount,
		Description:       tx.Description,
		ReferenceNumber:   tx.Reference,
		TransferReference: tx.TransferReference,
		Timestamp:         tx.Timestamp,
	}
}

func toTransactionDTOs(txs []banking.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

func toTransferDTO(tr banking.Transfer) TransferDTO {
	return TransferDTO{
		ID:              int64(tr.ID),
		FromAccountID:   int64(tr.SourceAccountID),
		ToAccountID:     int64(tr.DestinationAccountID),
		Amount:          tr.Amount,
		Description:     tr.Description,
		ReferenceNumber: tr.Reference,
		Timestamp:       tr.Timestamp,
	}
}

func toTransferDTOs(transfers []banking.Transfer) []TransferDTO {
	out := make([]TransferDTO, 0, len(transfers))
	for _, tr := range transfers {
		out = append(out, toTransferDTO(tr))
	}
	return out
}

func toCardDTO(c banking.Card) CardDTO {
	return CardDTO{
		ID:          int64(c.ID),
		AccountID:   int64(c.AccountID),
		CardNumber:  c.CardNumber,
		CardType:    string(c.Type),
		Status:      string(c.Status),
		CreditLimit: c.CreditLimit,
		ExpiryDate:  c.ExpiresAt,
		CreatedAt:   c.CreatedAt,
	}
}

func toCardDTOs(cards []banking.Card) []CardDTO {
	out := make([]CardDTO, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardDTO(c))
	}
	return out
}

func toReconciliationDTO(r banking.ReconciliationReport) ReconciliationDTO {
	return ReconciliationDTO{
		AccountID:     int64(r.AccountID),
		Balance:       r.Balance,
		LedgerBalance: r.LedgerBalance,
		Drift:         r.Drift,
		Entries:       r.Entries,
		Consistent:    r.Consistent(),
		CheckedAt:     r.CheckedAt,
	}
}

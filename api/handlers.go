/*
handlers.go - HTTP API handlers for the banking engine

PURPOSE:
  Exposes banking.Service via REST API. Handles HTTP request/response,
  JSON serialization and ownership checks, and delegates everything else
  to the core.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                          Open account
    GET    /api/accounts                          List caller's accounts
    GET    /api/accounts/{id}                     Account details
    POST   /api/accounts/{id}/deactivate          Deactivate account
    GET    /api/accounts/{id}/reconciliation      Balance vs ledger check

  Movements:
    POST   /api/accounts/{id}/transactions        Credit or debit
    GET    /api/accounts/{id}/transactions        History (?offset&limit)
    GET    /api/accounts/{id}/statements          Statement (?start_date&end_date)
    POST   /api/transfers                         Transfer between accounts
    GET    /api/accounts/{id}/transfers           Transfers touching account

  Cards:
    POST   /api/accounts/{id}/cards               Issue card
    GET    /api/accounts/{id}/cards               List cards

OWNERSHIP:
  The caller is identified by the X-Owner-ID header, set by whatever
  authenticates requests in front of this service. An account owned by
  someone else answers 404, exactly like a missing one. For transfers only
  the source account must belong to the caller.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing X-Owner-ID
  - 404: Account not found (or not owned)
  - 409: Account inactive
  - 422: Insufficient funds
  - 503: Contention, retry later
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/bank-engine/banking"
)

// OwnerHeader carries the authenticated principal.
const OwnerHeader = "X-Owner-ID"

const (
	defaultPageLimit = 100
	dateLayout       = "2006-01-02"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *banking.Service
	DB      Pinger
	Logger  *zap.Logger
}

func NewHandler(svc *banking.Service, db Pinger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, DB: db, Logger: logger}
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "healthy", "timestamp": time.Now().UTC()}
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["details"] = err.Error()
		}
	}
	writeJSON(w, status, body)
}

// =============================================================================
// ACCOUNT ENDPOINTS
// =============================================================================

func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	acc, err := h.Service.OpenAccount(r.Context(), banking.OpenAccountInput{
		OwnerID:        ownerFrom(r),
		Type:           req.AccountType,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*acc))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.ListAccounts(r.Context(), ownerFrom(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTOs(accounts))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*acc))
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	updated, err := h.Service.DeactivateAccount(r.Context(), acc.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*updated))
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	report, err := h.Service.Reconcile(r.Context(), acc.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationDTO(*report))
}

// =============================================================================
// MOVEMENT ENDPOINTS
// =============================================================================

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tx, err := h.Service.ProcessTransaction(r.Context(), acc.ID, req.TransactionType, req.Amount, req.Description)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset", err)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit", err)
		return
	}

	txs, err := h.Service.ListTransactions(r.Context(), acc.ID, offset, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}

	start, err := parseBound(r.URL.Query().Get("start_date"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date", err)
		return
	}
	end, err := parseBound(r.URL.Query().Get("end_date"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date", err)
		return
	}

	txs, err := h.Service.GetStatement(r.Context(), acc.ID, start, end)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	src := banking.AccountID(req.FromAccountID)
	if _, ok := h.checkOwner(w, r, src); !ok {
		return
	}

	tr, err := h.Service.CreateTransfer(r.Context(), src, banking.AccountID(req.ToAccountID), req.Amount, req.Description)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*tr))
}

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	transfers, err := h.Service.ListTransfers(r.Context(), acc.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTOs(transfers))
}

// ListOwnerTransfers lists transfers across every account of the caller.
func (h *Handler) ListOwnerTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Service.ListOwnerTransfers(r.Context(), ownerFrom(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTOs(transfers))
}

// =============================================================================
// CARD ENDPOINTS
// =============================================================================

func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}

	var req IssueCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	card, err := h.Service.IssueCard(r.Context(), banking.IssueCardInput{
		AccountID:   acc.ID,
		Type:        req.CardType,
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardDTO(*card))
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.ownedAccount(w, r)
	if !ok {
		return
	}
	cards, err := h.Service.ListCards(r.Context(), acc.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardDTOs(cards))
}

// =============================================================================
// OWNERSHIP
// =============================================================================

// RequireOwner rejects requests without an X-Owner-ID header.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ownerFrom(r) == "" {
			writeError(w, http.StatusUnauthorized, "missing "+OwnerHeader+" header", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ownerFrom(r *http.Request) banking.OwnerID {
	return banking.OwnerID(r.Header.Get(OwnerHeader))
}

// ownedAccount resolves the {id} URL parameter to an account owned by the
// caller, writing the error response itself when it cannot.
func (h *Handler) ownedAccount(w http.ResponseWriter, r *http.Request) (*banking.Account, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id", err)
		return nil, false
	}
	return h.checkOwner(w, r, banking.AccountID(id))
}

func (h *Handler) checkOwner(w http.ResponseWriter, r *http.Request, id banking.AccountID) (*banking.Account, bool) {
	acc, err := h.Service.GetAccount(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	if acc.OwnerID != ownerFrom(r) {
		writeError(w, http.StatusNotFound, "account not found", nil)
		return nil, false
	}
	return acc, true
}

// =============================================================================
// HELPERS
// =============================================================================

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// parseBound accepts RFC 3339 timestamps or bare dates. A bare end date
// covers its whole day, so end_date=2025-03-01 includes entries stamped later
// that day. Pass a full timestamp to cut off at an exact instant.
func parseBound(raw string, end bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a date (YYYY-MM-DD) nor an RFC 3339 timestamp", raw)
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// writeDomainError maps banking errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *banking.InsufficientFundsError
	switch {
	case banking.IsNotFound(err):
		writeError(w, http.StatusNotFound, "account not found", err)
	case errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, "insufficient funds", map[string]string{
			"available": insufficient.Available.String(),
			"requested": insufficient.Requested.String(),
		})
	case errors.Is(err, banking.ErrAccountInactive):
		writeError(w, http.StatusConflict, "account is inactive", err)
	case banking.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	case banking.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "account busy, retry later", err)
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError renders ErrorResponse. details may be an error or any
// JSON-encodable value.
func writeError(w http.ResponseWriter, status int, message string, details any) {
	resp := ErrorResponse{Error: message}
	switch d := details.(type) {
	case nil:
	case error:
		resp.Details = d.Error()
	default:
		resp.Details = d
	}
	writeJSON(w, status, resp)
}

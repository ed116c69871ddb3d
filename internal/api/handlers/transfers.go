package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/acmebank/mts-backend/internal/api/httpx"
	"github.com/acmebank/mts-backend/internal/api/validate"
	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/services"
	"github.com/shopspring/decimal"
)

type TransfersHandler struct {
	svc *services.TransactionService
}

func NewTransfersHandler(svc *services.TransactionService) *TransfersHandler {
	return &TransfersHandler{svc: svc}
}

type idempotentTransferReq struct {
	FromAccountID  int64           `json:"from_account_id"`
	ToAccountID    int64           `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
	Description    string          `json:"description"`
}

type byAccountNumberReq struct {
	FromAccountNumber string          `json:"from_account_number"`
	ToAccountNumber   string          `json:"to_account_number"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
}

type transferResp struct {
	Message        string          `json:"message"`
	TransactionID  int64           `json:"transaction_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// Idempotent executes a transfer by account ids. The idempotency key comes
// from the body or, failing that, the Idempotency-Key header.
func (h *TransfersHandler) Idempotent(w http.ResponseWriter, r *http.Request) {
	var req idempotentTransferReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	var errs validate.Errs
	if e := validate.Required("idempotency_key", req.IdempotencyKey); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.MinInt("from_account_id", req.FromAccountID, 1); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.MinInt("to_account_id", req.ToAccountID, 1); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.PositiveDecimal("amount", req.Amount); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}

	txn, err := h.svc.ExecuteIdempotentTransfer(r.Context(),
		req.FromAccountID, req.ToAccountID, req.Amount, req.IdempotencyKey, req.Description)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, transferResp{
		Message:        "Transfer completed successfully",
		TransactionID:  txn.ID,
		Amount:         txn.Amount,
		Status:         string(txn.Status),
		IdempotencyKey: req.IdempotencyKey,
	})
}

// ByAccountNumber executes a transfer between account numbers, covering
// auto-provisioning and the external-debit terminal case.
func (h *TransfersHandler) ByAccountNumber(w http.ResponseWriter, r *http.Request) {
	var req byAccountNumberReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	var errs validate.Errs
	if e := validate.Required("from_account_number", req.FromAccountNumber); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.Required("to_account_number", req.ToAccountNumber); e != nil {
		errs = append(errs, *e)
	}
	if e := validate.PositiveDecimal("amount", req.Amount); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}

	txn, err := h.svc.ExecuteTransferByAccountNumber(r.Context(),
		req.FromAccountNumber, req.ToAccountNumber, req.Amount, req.Description)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, transferResp{
		Message:       "Transfer completed successfully",
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Status:        string(txn.Status),
	})
}

func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	txn, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txn)
}

// List returns ledger rows, optionally filtered by ?status= or a
// ?from=/?to= RFC3339 date window.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		txns []models.TransactionLog
		err  error
	)
	switch {
	case q.Get("status") != "":
		status := models.TransactionStatus(strings.ToUpper(q.Get("status")))
		switch status {
		case models.TxnPending, models.TxnSuccess, models.TxnFailed:
		default:
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "unknown status "+q.Get("status"), nil)
			return
		}
		txns, err = h.svc.ListByStatus(r.Context(), status)
	case q.Get("from") != "" || q.Get("to") != "":
		from, to, perr := parseDateRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", perr.Error(), nil)
			return
		}
		txns, err = h.svc.ListByDateRange(r.Context(), from, to)
	default:
		txns, err = h.svc.ListAll(r.Context())
	}
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, emptyIfNil(txns))
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from time.Time
	to := time.Now()
	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		to = t
	}
	return from, to, nil
}

func (h *TransfersHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	txns, err := h.svc.ListByAccount(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, emptyIfNil(txns))
}

func (h *TransfersHandler) ListFailedByAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	txns, err := h.svc.ListFailedByAccount(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, emptyIfNil(txns))
}

func emptyIfNil(txns []models.TransactionLog) []models.TransactionLog {
	if txns == nil {
		return []models.TransactionLog{}
	}
	return txns
}

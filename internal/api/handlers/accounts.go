package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/acmebank/mts-backend/internal/api/httpx"
	"github.com/acmebank/mts-backend/internal/api/validate"
	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type AccountsHandler struct {
	svc *services.AccountService
}

func NewAccountsHandler(svc *services.AccountService) *AccountsHandler {
	return &AccountsHandler{svc: svc}
}

type createAccountReq struct {
	HolderName     string          `json:"holder_name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type amountReq struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	var errs validate.Errs
	if e := validate.Required("holder_name", req.HolderName); e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}
	acct, err := h.svc.CreateAccount(r.Context(), req.HolderName, req.InitialBalance)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, acct)
}

func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	acct, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func (h *AccountsHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.GetByAccountNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func (h *AccountsHandler) GetByHolder(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.GetByHolderName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func (h *AccountsHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.moneyOp(w, r, h.svc.Credit)
}

func (h *AccountsHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.moneyOp(w, r, h.svc.Debit)
}

type moneyOpFunc func(ctx context.Context, id int64, amount decimal.Decimal, description string) (*models.Account, error)

func (h *AccountsHandler) moneyOp(w http.ResponseWriter, r *http.Request, op moneyOpFunc) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req amountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	if e := validate.PositiveDecimal("amount", req.Amount); e != nil {
		errs := validate.Errs{*e}
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}
	acct, err := op(r.Context(), id, req.Amount, req.Description)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func (h *AccountsHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.statusOp(w, r, h.svc.Lock)
}

func (h *AccountsHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.statusOp(w, r, h.svc.Unlock)
}

func (h *AccountsHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.statusOp(w, r, h.svc.Close)
}

func (h *AccountsHandler) statusOp(w http.ResponseWriter, r *http.Request,
	op func(context.Context, int64) (*models.Account, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	acct, err := op(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, acct)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid id", nil)
		return 0, false
	}
	return id, true
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acmebank/mts-backend/internal/api/httpx"
	"github.com/acmebank/mts-backend/internal/api/validate"
	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/services"
)

type BankDetailsHandler struct {
	svc *services.BankDetailsService
}

func NewBankDetailsHandler(svc *services.BankDetailsService) *BankDetailsHandler {
	return &BankDetailsHandler{svc: svc}
}

type bankDetailsReq struct {
	AccountNumber string `json:"account_number"`
	UserName      string `json:"user_name"`
	BankName      string `json:"bank_name"`
	IFSCCode      string `json:"ifsc_code"`
	Contact       string `json:"contact"`
}

type setupUPIReq struct {
	UPIID string `json:"upi_id"`
}

func (h *BankDetailsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req bankDetailsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	var errs validate.Errs
	for field, v := range map[string]string{
		"account_number": req.AccountNumber,
		"user_name":      req.UserName,
		"bank_name":      req.BankName,
		"ifsc_code":      req.IFSCCode,
	} {
		if e := validate.Required(field, v); e != nil {
			errs = append(errs, *e)
		}
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}

	d := &models.BankDetails{
		AccountNumber: req.AccountNumber,
		UserName:      req.UserName,
		BankName:      req.BankName,
		IFSCCode:      req.IFSCCode,
		Contact:       req.Contact,
	}
	if err := h.svc.Save(r.Context(), d); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, d)
}

func (h *BankDetailsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *BankDetailsHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.FindByAccountNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *BankDetailsHandler) SetupUPI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req setupUPIReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	if e := validate.Required("upi_id", req.UPIID); e != nil {
		errs := validate.Errs{*e}
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", errs.Error(), errs)
		return
	}
	d, err := h.svc.SetupUPI(r.Context(), id, req.UPIID)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

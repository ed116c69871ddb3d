package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acmebank/mts-backend/internal/models"
)

type APIError struct {
	Error         string      `json:"error"`
	Code          string      `json:"code"`
	TransactionID int64       `json:"transaction_id,omitempty"`
	Details       interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{Error: msg, Code: code, Details: details})
}

// WriteDomainError maps a typed failure to its HTTP status and stable code.
// Validation-shaped errors are 400, missing resources 404, state conflicts
// (duplicates, insufficient funds, inactive accounts, stale versions) 409.
func WriteDomainError(w http.ResponseWriter, err error) {
	var de *models.DomainError
	if !errors.As(err, &de) {
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	WriteJSON(w, statusFor(de.Code), APIError{
		Error:         de.Message,
		Code:          string(de.Code),
		TransactionID: de.TransactionID,
	})
}

func statusFor(code models.ErrorCode) int {
	switch code {
	case models.CodeInvalidAmount, models.CodeSelfTransfer,
		models.CodeInvalidAccountNumber, models.CodeInvalidArgument,
		models.CodeInvalidStateTransition:
		return http.StatusBadRequest
	case models.CodeAccountNotFound, models.CodeTransactionNotFound,
		models.CodeBankDetailsNotFound:
		return http.StatusNotFound
	case models.CodeDuplicateAccount, models.CodeDuplicateTransaction,
		models.CodeInsufficientBalance, models.CodeInactiveAccount,
		models.CodeNonZeroBalance, models.CodeConcurrentModification:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package models

import "time"

// BankDetails is the external bank record consulted by the transfer engine
// when a sender number has no ledger account yet. A match triggers
// auto-provisioning of an ACTIVE account for that number.
type BankDetails struct {
	ID            int64     `json:"id"`
	AccountNumber string    `json:"account_number"`
	UserName      string    `json:"user_name"`
	BankName      string    `json:"bank_name"`
	IFSCCode      string    `json:"ifsc_code"`
	Contact       string    `json:"contact"`
	UPIID         *string   `json:"upi_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

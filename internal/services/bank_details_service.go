package services

import (
	"context"
	"strings"

	"github.com/acmebank/mts-backend/internal/models"
	repo "github.com/acmebank/mts-backend/internal/repository"
)

// BankDetailsService manages the external bank records the transfer engine
// consults when auto-provisioning sender accounts.
type BankDetailsService struct {
	store repo.Store
}

func NewBankDetailsService(store repo.Store) *BankDetailsService {
	return &BankDetailsService{store: store}
}

func (s *BankDetailsService) Save(ctx context.Context, d *models.BankDetails) error {
	if strings.TrimSpace(d.AccountNumber) == "" {
		return models.NewDomainError(models.CodeInvalidArgument, "account number cannot be empty")
	}
	return s.store.Repos().BankDetails.Save(ctx, d)
}

func (s *BankDetailsService) FindByID(ctx context.Context, id int64) (*models.BankDetails, error) {
	return s.store.Repos().BankDetails.FindByID(ctx, id)
}

func (s *BankDetailsService) FindByAccountNumber(ctx context.Context, number string) (*models.BankDetails, error) {
	return s.store.Repos().BankDetails.FindByAccountNumber(ctx, strings.TrimSpace(number))
}

// SetupUPI attaches a UPI handle to an existing bank-details record.
func (s *BankDetailsService) SetupUPI(ctx context.Context, id int64, upiID string) (*models.BankDetails, error) {
	d, err := s.store.Repos().BankDetails.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.UPIID = models.StrPtr(upiID)
	if err := s.store.Repos().BankDetails.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

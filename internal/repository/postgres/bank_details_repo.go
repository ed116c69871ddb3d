package postgres

import (
	"context"
	"errors"

	"github.com/acmebank/mts-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type bankDetailsRepo struct{ db DB }

const bankDetailCols = `id, account_number, user_name, bank_name, ifsc_code, contact, upi_id, created_at, last_updated`

func (r *bankDetailsRepo) FindByID(ctx context.Context, id int64) (*models.BankDetails, error) {
	return r.findOne(ctx, `SELECT `+bankDetailCols+` FROM bank_details WHERE id=$1`, id)
}

func (r *bankDetailsRepo) FindByAccountNumber(ctx context.Context, number string) (*models.BankDetails, error) {
	return r.findOne(ctx, `SELECT `+bankDetailCols+` FROM bank_details WHERE account_number=$1`, number)
}

func (r *bankDetailsRepo) findOne(ctx context.Context, q string, arg any) (*models.BankDetails, error) {
	var d models.BankDetails
	err := r.db.QueryRow(ctx, q, arg).Scan(
		&d.ID, &d.AccountNumber, &d.UserName, &d.BankName, &d.IFSCCode,
		&d.Contact, &d.UPIID, &d.CreatedAt, &d.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewDomainError(models.CodeBankDetailsNotFound, "bank details not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *bankDetailsRepo) Save(ctx context.Context, d *models.BankDetails) error {
	if d.ID == 0 {
		return r.db.QueryRow(ctx, `
INSERT INTO bank_details (account_number, user_name, bank_name, ifsc_code, contact, upi_id, created_at, last_updated)
VALUES ($1,$2,$3,$4,$5,$6,now(),now())
RETURNING id, created_at, last_updated`,
			d.AccountNumber, d.UserName, d.BankName, d.IFSCCode, d.Contact, d.UPIID,
		).Scan(&d.ID, &d.CreatedAt, &d.LastUpdated)
	}
	_, err := r.db.Exec(ctx, `
UPDATE bank_details
   SET user_name=$2, bank_name=$3, ifsc_code=$4, contact=$5, upi_id=$6, last_updated=now()
 WHERE id=$1`,
		d.ID, d.UserName, d.BankName, d.IFSCCode, d.Contact, d.UPIID,
	)
	return err
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

type transactionLogsRepo struct{ db DB }

const txnCols = `id, from_account_id, to_account_id, amount, type, status, transaction_date,
description, from_balance_before, from_balance_after, to_balance_before, to_balance_after,
idempotency_key, failure_reason`

func (r *transactionLogsRepo) Create(ctx context.Context, t *models.TransactionLog) error {
	if t.TransactionDate.IsZero() {
		t.TransactionDate = time.Now()
	}
	err := r.db.QueryRow(ctx, `
INSERT INTO transaction_logs (
  from_account_id, to_account_id, amount, type, status, transaction_date,
  description, from_balance_before, from_balance_after, to_balance_before,
  to_balance_after, idempotency_key, failure_reason
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
RETURNING id`,
		t.FromAccountID, t.ToAccountID, t.Amount, t.Type, t.Status, t.TransactionDate,
		t.Description, t.FromBalanceBefore, t.FromBalanceAfter, t.ToBalanceBefore,
		t.ToBalanceAfter, t.IdempotencyKey, t.FailureReason,
	).Scan(&t.ID)
	if isUniqueViolation(err) {
		return repository.ErrIdempotencyConflict
	}
	return err
}

func (r *transactionLogsRepo) Update(ctx context.Context, t *models.TransactionLog) error {
	_, err := r.db.Exec(ctx, `
UPDATE transaction_logs
   SET status=$2, from_balance_after=$3, to_balance_after=$4, failure_reason=$5
 WHERE id=$1`,
		t.ID, t.Status, t.FromBalanceAfter, t.ToBalanceAfter, t.FailureReason,
	)
	return err
}

func (r *transactionLogsRepo) FindByID(ctx context.Context, id int64) (*models.TransactionLog, error) {
	return r.findOne(ctx, `SELECT `+txnCols+` FROM transaction_logs WHERE id=$1`, id)
}

func (r *transactionLogsRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.TransactionLog, error) {
	return r.findOne(ctx, `SELECT `+txnCols+` FROM transaction_logs WHERE idempotency_key=$1`, key)
}

func (r *transactionLogsRepo) findOne(ctx context.Context, q string, arg any) (*models.TransactionLog, error) {
	row := r.db.QueryRow(ctx, q, arg)
	t, err := scanTxn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewDomainError(models.CodeTransactionNotFound, "transaction not found")
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transactionLogsRepo) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transaction_logs WHERE idempotency_key=$1)`, key,
	).Scan(&exists)
	return exists, err
}

func (r *transactionLogsRepo) ListByAccount(ctx context.Context, accountID int64) ([]models.TransactionLog, error) {
	return r.list(ctx, `
SELECT `+txnCols+` FROM transaction_logs
 WHERE from_account_id=$1 OR to_account_id=$1
 ORDER BY transaction_date DESC`, accountID)
}

func (r *transactionLogsRepo) ListFailedByAccount(ctx context.Context, accountID int64) ([]models.TransactionLog, error) {
	return r.list(ctx, `
SELECT `+txnCols+` FROM transaction_logs
 WHERE (from_account_id=$1 OR to_account_id=$1) AND status='FAILED'
 ORDER BY transaction_date DESC`, accountID)
}

func (r *transactionLogsRepo) ListByStatus(ctx context.Context, status models.TransactionStatus) ([]models.TransactionLog, error) {
	return r.list(ctx, `
SELECT `+txnCols+` FROM transaction_logs
 WHERE status=$1 ORDER BY transaction_date DESC`, status)
}

func (r *transactionLogsRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.TransactionLog, error) {
	return r.list(ctx, `
SELECT `+txnCols+` FROM transaction_logs
 WHERE transaction_date BETWEEN $1 AND $2
 ORDER BY transaction_date DESC`, from, to)
}

func (r *transactionLogsRepo) ListAfterID(ctx context.Context, watermark int64, limit int) ([]models.TransactionLog, error) {
	return r.list(ctx, `
SELECT `+txnCols+` FROM transaction_logs
 WHERE id > $1 AND status IN ('SUCCESS','FAILED')
 ORDER BY id ASC LIMIT $2`, watermark, limit)
}

func (r *transactionLogsRepo) ListAll(ctx context.Context) ([]models.TransactionLog, error) {
	return r.list(ctx, `SELECT `+txnCols+` FROM transaction_logs ORDER BY transaction_date DESC`)
}

func (r *transactionLogsRepo) list(ctx context.Context, q string, args ...any) ([]models.TransactionLog, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionLog
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTxn(row pgx.Row) (*models.TransactionLog, error) {
	var t models.TransactionLog
	err := row.Scan(
		&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.Type, &t.Status,
		&t.TransactionDate, &t.Description, &t.FromBalanceBefore, &t.FromBalanceAfter,
		&t.ToBalanceBefore, &t.ToBalanceAfter, &t.IdempotencyKey, &t.FailureReason,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

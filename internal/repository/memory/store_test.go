package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmebank/mts-backend/internal/models"
	repo "github.com/acmebank/mts-backend/internal/repository"
)

func TestWithTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	err := st.WithTx(ctx, func(r repo.Repositories) error {
		return r.Accounts.Create(ctx, models.NewAccount("111111111111", "alice", decimal.NewFromInt(100)))
	})
	require.NoError(t, err)

	got, err := st.Repos().Accounts.FindByAccountNumber(ctx, "111111111111")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.HolderName)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	a := models.NewAccount("111111111111", "alice", decimal.NewFromInt(100))
	require.NoError(t, st.Repos().Accounts.Create(ctx, a))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(r repo.Repositories) error {
		acct, err := r.Accounts.FindByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if err := acct.Credit(decimal.NewFromInt(50)); err != nil {
			return err
		}
		if err := r.Accounts.Save(ctx, acct); err != nil {
			return err
		}
		if err := r.TransactionLogs.Create(ctx, &models.TransactionLog{
			FromAccountID: a.ID, ToAccountID: a.ID,
			Amount: decimal.NewFromInt(50),
			Type:   models.TxnCredit, Status: models.TxnSuccess,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := st.Repos().Accounts.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)), "balance write must be rolled back")

	logs, err := st.Repos().TransactionLogs.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs, "ledger write must be rolled back")
}

func TestIdempotencyKeyUniqueAcrossRows(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	key := "only-once"
	mk := func() *models.TransactionLog {
		return &models.TransactionLog{
			FromAccountID: 1, ToAccountID: 2,
			Amount:         decimal.NewFromInt(5),
			Type:           models.TxnTransfer,
			Status:         models.TxnFailed,
			IdempotencyKey: &key,
		}
	}
	require.NoError(t, st.Repos().TransactionLogs.Create(ctx, mk()))

	err := st.Repos().TransactionLogs.Create(ctx, mk())
	assert.ErrorIs(t, err, repo.ErrIdempotencyConflict)

	used, err := st.Repos().TransactionLogs.ExistsByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = st.Repos().TransactionLogs.ExistsByIdempotencyKey(ctx, "never-seen")
	require.NoError(t, err)
	assert.False(t, used)
}

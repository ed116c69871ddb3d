package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/repository/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedAccount(t *testing.T, st *memory.Store, number, holder, balance string) *models.Account {
	t.Helper()
	a := models.NewAccount(number, holder, dec(balance))
	require.NoError(t, st.Repos().Accounts.Create(context.Background(), a))
	return a
}

func TestExecuteIdempotentTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves money and records a SUCCESS row", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "500.00")
		bob := seedAccount(t, st, "222222222222", "bob", "300.00")

		entry, err := svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("120.50"), "key-1", "rent")
		require.NoError(t, err)

		assert.Equal(t, models.TxnSuccess, entry.Status)
		assert.Equal(t, models.TxnTransfer, entry.Type)
		assert.Equal(t, "rent", entry.Description)
		require.NotNil(t, entry.IdempotencyKey)
		assert.Equal(t, "key-1", *entry.IdempotencyKey)

		assert.True(t, entry.FromBalanceBefore.Equal(dec("500.00")))
		assert.True(t, entry.FromBalanceAfter.Equal(dec("379.50")))
		assert.True(t, entry.ToBalanceBefore.Equal(dec("300.00")))
		assert.True(t, entry.ToBalanceAfter.Equal(dec("420.50")))

		gotFrom, err := st.Repos().Accounts.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		gotTo, err := st.Repos().Accounts.FindByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.True(t, gotFrom.Balance.Equal(dec("379.50")))
		assert.True(t, gotTo.Balance.Equal(dec("420.50")))

		// total money is conserved
		assert.True(t, gotFrom.Balance.Add(gotTo.Balance).Equal(dec("800.00")))
	})

	t.Run("same key twice returns the original transaction id", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "500")
		bob := seedAccount(t, st, "222222222222", "bob", "0")

		first, err := svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("10"), "key-dup", "")
		require.NoError(t, err)

		_, err = svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("10"), "key-dup", "")
		require.Error(t, err)
		var de *models.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, models.CodeDuplicateTransaction, de.Code)
		assert.Equal(t, first.ID, de.TransactionID)

		// the retry must not move money again
		gotFrom, _ := st.Repos().Accounts.FindByID(ctx, alice.ID)
		assert.True(t, gotFrom.Balance.Equal(dec("490")))
	})

	t.Run("self transfer is rejected", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "500")

		_, err := svc.ExecuteIdempotentTransfer(ctx, alice.ID, alice.ID, dec("10"), "key-self", "")
		assert.Equal(t, models.CodeSelfTransfer, models.CodeOf(err))

		logs, _ := st.Repos().TransactionLogs.ListAll(ctx)
		assert.Empty(t, logs, "rejected transfer must leave no ledger rows")
	})

	t.Run("insufficient balance rolls back and records a FAILED row", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "50")
		bob := seedAccount(t, st, "222222222222", "bob", "0")

		_, err := svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("75"), "key-poor", "")
		assert.Equal(t, models.CodeInsufficientBalance, models.CodeOf(err))

		gotFrom, _ := st.Repos().Accounts.FindByID(ctx, alice.ID)
		gotTo, _ := st.Repos().Accounts.FindByID(ctx, bob.ID)
		assert.True(t, gotFrom.Balance.Equal(dec("50")))
		assert.True(t, gotTo.Balance.Equal(dec("0")))

		failed, err := st.Repos().TransactionLogs.ListFailedByAccount(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		row := failed[0]
		assert.Equal(t, models.TxnFailed, row.Status)
		require.NotNil(t, row.FailureReason)
		assert.Contains(t, *row.FailureReason, "insufficient balance")
		assert.True(t, row.FromBalanceBefore.Equal(dec("50")))
		assert.Nil(t, row.FromBalanceAfter, "failed rows never carry after-snapshots")
		assert.Nil(t, row.ToBalanceAfter)

		// the key is burned: a retry reports the failed attempt
		_, err = svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("75"), "key-poor", "")
		assert.Equal(t, models.CodeDuplicateTransaction, models.CodeOf(err))
	})

	t.Run("locked sender fails with inactive_account", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "500")
		bob := seedAccount(t, st, "222222222222", "bob", "0")

		locked, err := st.Repos().Accounts.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		locked.Lock()
		require.NoError(t, st.Repos().Accounts.Save(ctx, locked))

		_, err = svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("10"), "key-locked", "")
		assert.Equal(t, models.CodeInactiveAccount, models.CodeOf(err))

		failed, _ := st.Repos().TransactionLogs.ListFailedByAccount(ctx, alice.ID)
		assert.Len(t, failed, 1)
	})

	t.Run("missing accounts", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "500")

		_, err := svc.ExecuteIdempotentTransfer(ctx, 999, alice.ID, dec("10"), "k1", "")
		assert.Equal(t, models.CodeAccountNotFound, models.CodeOf(err))
		assert.Contains(t, err.Error(), "sender")

		_, err = svc.ExecuteIdempotentTransfer(ctx, alice.ID, 999, dec("10"), "k2", "")
		assert.Equal(t, models.CodeAccountNotFound, models.CodeOf(err))
		assert.Contains(t, err.Error(), "receiver")

		logs, _ := st.Repos().TransactionLogs.ListAll(ctx)
		assert.Empty(t, logs)
	})

	t.Run("invalid amounts are rejected up front", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "500")
		bob := seedAccount(t, st, "222222222222", "bob", "0")

		for _, amount := range []decimal.Decimal{decimal.Zero, dec("-3"), dec("1000000.01")} {
			_, err := svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, amount, "k-"+amount.String(), "")
			assert.Equal(t, models.CodeInvalidAmount, models.CodeOf(err))
		}
		logs, _ := st.Repos().TransactionLogs.ListAll(ctx)
		assert.Empty(t, logs)
	})
}

func TestExecuteTransferByAccountNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("internal transfer between tracked accounts", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		seedAccount(t, st, "111111111111", "alice", "200")
		seedAccount(t, st, "222222222222", "bob", "100")

		entry, err := svc.ExecuteTransferByAccountNumber(ctx, "111111111111", "222222222222", dec("50"), "")
		require.NoError(t, err)
		assert.Equal(t, models.TxnTransfer, entry.Type)
		assert.Equal(t, models.TxnSuccess, entry.Status)
		assert.Nil(t, entry.IdempotencyKey)

		gotTo, _ := st.Repos().Accounts.FindByAccountNumber(ctx, "222222222222")
		assert.True(t, gotTo.Balance.Equal(dec("150")))
	})

	t.Run("self transfer is case-insensitive on the number", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)

		_, err := svc.ExecuteTransferByAccountNumber(ctx, " 111111111111 ", "111111111111", dec("5"), "")
		assert.Equal(t, models.CodeSelfTransfer, models.CodeOf(err))
	})

	t.Run("unknown sender without bank details", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		seedAccount(t, st, "222222222222", "bob", "100")

		_, err := svc.ExecuteTransferByAccountNumber(ctx, "333333333333", "222222222222", dec("5"), "")
		assert.Equal(t, models.CodeAccountNotFound, models.CodeOf(err))
	})

	t.Run("sender auto-provisioned from bank details", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		seedAccount(t, st, "222222222222", "bob", "100")
		require.NoError(t, st.Repos().BankDetails.Save(ctx, &models.BankDetails{
			AccountNumber: "333333333333",
			UserName:      "carol",
			BankName:      "Acme Bank",
			IFSCCode:      "ACME0001234",
			Contact:       "5550001234",
		}))

		entry, err := svc.ExecuteTransferByAccountNumber(ctx, "333333333333", "222222222222", dec("250"), "")
		require.NoError(t, err)
		assert.Equal(t, models.TxnSuccess, entry.Status)

		carol, err := st.Repos().Accounts.FindByAccountNumber(ctx, "333333333333")
		require.NoError(t, err)
		assert.Equal(t, "carol", carol.HolderName)
		assert.True(t, carol.Balance.Equal(dec("9750.00")), "provisioned with 10000.00 then debited 250")

		bob, _ := st.Repos().Accounts.FindByAccountNumber(ctx, "222222222222")
		assert.True(t, bob.Balance.Equal(dec("350")))
	})

	t.Run("provisioned sender survives a failed transfer and gets a FAILED row", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		seedAccount(t, st, "222222222222", "bob", "100")
		require.NoError(t, st.Repos().BankDetails.Save(ctx, &models.BankDetails{
			AccountNumber: "333333333333",
			UserName:      "carol",
			BankName:      "Acme Bank",
			IFSCCode:      "ACME0001234",
			Contact:       "5550001234",
		}))

		// 20000 exceeds the 10000.00 provisioning balance
		_, err := svc.ExecuteTransferByAccountNumber(ctx, "333333333333", "222222222222", dec("20000"), "")
		assert.Equal(t, models.CodeInsufficientBalance, models.CodeOf(err))

		// the account provisioning committed on its own
		carol, err := st.Repos().Accounts.FindByAccountNumber(ctx, "333333333333")
		require.NoError(t, err)
		assert.True(t, carol.Balance.Equal(dec("10000.00")))

		// and the failed attempt is on the audit trail
		failed, err := st.Repos().TransactionLogs.ListFailedByAccount(ctx, carol.ID)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		require.NotNil(t, failed[0].FailureReason)
		assert.Contains(t, *failed[0].FailureReason, "insufficient balance")
		assert.Nil(t, failed[0].FromBalanceAfter)
	})

	t.Run("external debit for an untracked recipient", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		alice := seedAccount(t, st, "111111111111", "alice", "200")

		entry, err := svc.ExecuteTransferByAccountNumber(ctx, "111111111111", "998877665544", dec("80"), "")
		require.NoError(t, err)
		assert.Equal(t, models.TxnDebit, entry.Type)
		assert.Equal(t, models.TxnSuccess, entry.Status)
		assert.Equal(t, alice.ID, entry.FromAccountID)
		assert.Equal(t, alice.ID, entry.ToAccountID, "external debit self-references")
		assert.True(t, entry.FromBalanceBefore.Equal(dec("200")))
		assert.True(t, entry.FromBalanceAfter.Equal(dec("120")))
		assert.Nil(t, entry.ToBalanceBefore)
		assert.Nil(t, entry.ToBalanceAfter)

		got, _ := st.Repos().Accounts.FindByID(ctx, alice.ID)
		assert.True(t, got.Balance.Equal(dec("120")))
	})

	t.Run("external debit requires a strict 12-digit recipient", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)
		seedAccount(t, st, "111111111111", "alice", "200")

		_, err := svc.ExecuteTransferByAccountNumber(ctx, "111111111111", "12345", dec("10"), "")
		assert.Equal(t, models.CodeInvalidAccountNumber, models.CodeOf(err))

		got, _ := st.Repos().Accounts.FindByAccountNumber(ctx, "111111111111")
		assert.True(t, got.Balance.Equal(dec("200")))
		logs, _ := st.Repos().TransactionLogs.ListAll(ctx)
		assert.Empty(t, logs)
	})

	t.Run("empty numbers are rejected", func(t *testing.T) {
		st := memory.NewStore()
		svc := NewTransactionService(st)

		_, err := svc.ExecuteTransferByAccountNumber(ctx, "  ", "222222222222", dec("5"), "")
		assert.Equal(t, models.CodeInvalidArgument, models.CodeOf(err))
	})
}

func TestTransactionQueries(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStore()
	svc := NewTransactionService(st)
	alice := seedAccount(t, st, "111111111111", "alice", "500")
	bob := seedAccount(t, st, "222222222222", "bob", "500")

	first, err := svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("10"), "q-1", "")
	require.NoError(t, err)
	_, err = svc.ExecuteIdempotentTransfer(ctx, bob.ID, alice.ID, dec("20"), "q-2", "")
	require.NoError(t, err)
	_, err = svc.ExecuteIdempotentTransfer(ctx, alice.ID, bob.ID, dec("9999"), "q-3", "")
	require.Error(t, err)

	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byAlice, err := svc.ListByAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, byAlice, 3)

	_, err = svc.ListByAccount(ctx, 999)
	assert.Equal(t, models.CodeAccountNotFound, models.CodeOf(err))

	failed, err := svc.ListFailedByAccount(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.TxnFailed, failed[0].Status)

	byStatus, err := svc.ListByStatus(ctx, models.TxnSuccess)
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)
	byStatus, err = svc.ListByStatus(ctx, models.TxnFailed)
	require.NoError(t, err)
	assert.Len(t, byStatus, 1)

	now := time.Now()
	inRange, err := svc.ListByDateRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, inRange, 3)
	inRange, err = svc.ListByDateRange(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, inRange)
}

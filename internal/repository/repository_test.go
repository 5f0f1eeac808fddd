package repository

import (
	"context"
	"testing"

	"bankledger/internal/infrastructure/database/dbtest"
	"bankledger/internal/model"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, repo *AccountRepository, accountNo string, balance int64) {
	t.Helper()
	err := repo.Insert(context.Background(), nil, &model.Account{
		AccountNo:  accountNo,
		HolderName: "Asha Rao",
		Email:      "asha@example.com",
		Pin:        "1234",
		IFSC:       "BANK0000001",
		Balance:    decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
}

func TestAccountRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(dbtest.New(t))

	exists, err := repo.Exists(ctx, nil, "100000000001")
	require.NoError(t, err)
	assert.False(t, exists)

	seedAccount(t, repo, "100000000001", 100)

	exists, err = repo.Exists(ctx, nil, "100000000001")
	require.NoError(t, err)
	assert.True(t, exists)

	profile, err := repo.GetProfile(ctx, "100000000001")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", profile.HolderName)
	assert.Equal(t, "BANK0000001", profile.IFSC)
	assert.True(t, profile.Balance.Equal(decimal.NewFromInt(100)))
	assert.False(t, profile.CreatedAt.IsZero())

	require.NoError(t, repo.Delete(ctx, nil, "100000000001"))
	assert.ErrorIs(t, repo.Delete(ctx, nil, "100000000001"), ErrAccountNotFound)

	_, err = repo.GetProfile(ctx, "100000000001")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	_, err = repo.GetBalance(ctx, nil, "100000000001")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepositoryInsertDuplicate(t *testing.T) {
	repo := NewAccountRepository(dbtest.New(t))
	seedAccount(t, repo, "100000000002", 0)

	err := repo.Insert(context.Background(), nil, &model.Account{
		AccountNo:  "100000000002",
		HolderName: "Other",
		Email:      "other@example.com",
		Pin:        "0000",
		IFSC:       "BANK0000001",
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(dbtest.New(t))
	seedAccount(t, repo, "100000000003", 100)

	require.NoError(t, repo.AdjustBalance(ctx, nil, "100000000003", decimal.NewFromInt(50)))
	bal, err := repo.GetBalance(ctx, nil, "100000000003")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(150)), bal.String())

	require.NoError(t, repo.AdjustBalance(ctx, nil, "100000000003", decimal.RequireFromString("-149.50")))
	bal, err = repo.GetBalance(ctx, nil, "100000000003")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("0.5")), bal.String())

	err = repo.AdjustBalance(ctx, nil, "100000000003", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrBalanceNotEnough)

	bal, err = repo.GetBalance(ctx, nil, "100000000003")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("0.5")), bal.String())

	err = repo.AdjustBalance(ctx, nil, "999999999999", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrAccountNotFound)
	err = repo.AdjustBalance(ctx, nil, "999999999999", decimal.NewFromInt(-10))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTransactionRepositoryOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(dbtest.New(t))

	for i := 1; i <= 5; i++ {
		_, err := repo.Append(ctx, nil, "100000000004", model.TransactionTypeDeposit,
			decimal.NewFromInt(int64(i)), decimal.NewFromInt(int64(i*10)), "")
		require.NoError(t, err)
	}
	_, err := repo.Append(ctx, nil, "100000000005", model.TransactionTypeDeposit,
		decimal.NewFromInt(1), decimal.NewFromInt(1), "")
	require.NoError(t, err)

	total, err := repo.CountByAccount(ctx, "100000000004")
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	page, err := repo.ListByAccount(ctx, "100000000004", 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.True(t, page[0].Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, page[2].Amount.Equal(decimal.NewFromInt(3)))

	page, err = repo.ListByAccount(ctx, "100000000004", 3, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[1].Amount.Equal(decimal.NewFromInt(1)))
}

func TestOutboxRepositoryFailureFlow(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(dbtest.New(t))

	msg := &model.OutboxMessage{MessageKey: "k", Topic: "t", Kind: model.NotifyDeposit, Payload: "{}", Status: model.OutboxStatusPending}
	require.NoError(t, repo.Create(ctx, msg))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.RecordFailure(ctx, msg.ID, "broker down", false))
	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, model.OutboxStatusPending, got.Status)

	require.NoError(t, repo.RecordFailure(ctx, msg.ID, "broker down", true))
	got, err = repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusFailed, got.Status)

	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestClassifyStoreError(t *testing.T) {
	assert.Nil(t, ClassifyStoreError(nil))
	assert.ErrorIs(t, ClassifyStoreError(&mysql.MySQLError{Number: 1062}), ErrDuplicateKey)
	assert.ErrorIs(t, ClassifyStoreError(&mysql.MySQLError{Number: 1213}), ErrTxConflict)
	assert.ErrorIs(t, ClassifyStoreError(&mysql.MySQLError{Number: 1205}), ErrTxConflict)
	assert.ErrorIs(t, ClassifyStoreError(mysql.ErrInvalidConn), ErrStoreUnavailable)
}

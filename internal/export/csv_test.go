package export

import (
	"bytes"
	"errors"
	"iter"
	"testing"
	"time"

	"bankledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqOf(records []*model.Transaction, tail error) iter.Seq2[*model.Transaction, error] {
	return func(yield func(*model.Transaction, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	}
}

func TestWriteStatementCSV(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	records := []*model.Transaction{
		{Type: model.TransactionTypeTransferOut, Amount: decimal.NewFromInt(200), BalanceAfter: decimal.NewFromInt(300), Remark: "To 222222222222", CreatedAt: at},
		{Type: model.TransactionTypeDeposit, Amount: decimal.RequireFromString("0.5"), BalanceAfter: decimal.RequireFromString("500.5"), Remark: `say "hi", ok`, CreatedAt: at.Add(-time.Hour)},
	}

	var buf bytes.Buffer
	rows, err := WriteStatementCSV(&buf, seqOf(records, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	want := "date,type,amount,balance,remark\n" +
		"2024-03-09 14:05:00,TRANSFER_OUT,200.00,300.00,To 222222222222\n" +
		"2024-03-09 13:05:00,DEPOSIT,0.50,500.50,\"say \"\"hi\"\", ok\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteStatementCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	rows, err := WriteStatementCSV(&buf, seqOf(nil, nil))
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Equal(t, "date,type,amount,balance,remark\n", buf.String())
}

func TestWriteStatementCSVStopsOnError(t *testing.T) {
	boom := errors.New("store down")
	records := []*model.Transaction{
		{Type: model.TransactionTypeWithdraw, Amount: decimal.NewFromInt(1), BalanceAfter: decimal.NewFromInt(9)},
	}

	var buf bytes.Buffer
	rows, err := WriteStatementCSV(&buf, seqOf(records, boom))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rows)
	assert.Contains(t, buf.String(), "WITHDRAW,1.00,9.00")
}

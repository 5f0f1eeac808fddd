package service

import (
	"context"
	"iter"

	"bankledger/internal/model"
)

// Statement 账户流水（迷你对账单）
//
// All 按页懒加载，调用方可以随时停止；每次 range 都从第一页重新读取
type Statement struct {
	AccountNo    string
	transactions TransactionLog
	pageSize     int
}

// All 按 created_at 倒序遍历流水
func (st *Statement) All(ctx context.Context) iter.Seq2[*model.Transaction, error] {
	return func(yield func(*model.Transaction, error) bool) {
		for offset := 0; ; offset += st.pageSize {
			page, err := st.transactions.ListByAccount(ctx, st.AccountNo, offset, st.pageSize)
			if err != nil {
				yield(nil, mapStoreError(err))
				return
			}
			for _, record := range page {
				if !yield(record, nil) {
					return
				}
			}
			if len(page) < st.pageSize {
				return
			}
		}
	}
}

// Collect 读取全部流水
func (st *Statement) Collect(ctx context.Context) ([]*model.Transaction, error) {
	var records []*model.Transaction
	for record, err := range st.All(ctx) {
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

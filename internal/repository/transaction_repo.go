package repository

import (
	"context"

	"bankledger/internal/model"
	"bankledger/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionRepository 流水表，只追加
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append 追加一条流水
//
// 必须传入与余额变更相同的 tx，一方回滚另一方也回滚
func (r *TransactionRepository) Append(ctx context.Context, tx *gorm.DB, accountNo, txType string, amount, balanceAfter decimal.Decimal, remark string) (*model.Transaction, error) {
	if tx == nil {
		tx = r.db
	}
	trans := &model.Transaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		AccountNo:     accountNo,
		Type:          txType,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		Remark:        remark,
	}
	if err := tx.WithContext(ctx).Create(trans).Error; err != nil {
		return nil, ClassifyStoreError(err)
	}
	return trans, nil
}

// ListByAccount 按时间倒序分页读取流水，时间相同时按 id 倒序
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountNo string, offset, limit int) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("account_number = ?", accountNo).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, ClassifyStoreError(err)
	}
	return transactions, nil
}

func (r *TransactionRepository) CountByAccount(ctx context.Context, accountNo string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("account_number = ?", accountNo).
		Count(&total).Error
	return total, ClassifyStoreError(err)
}

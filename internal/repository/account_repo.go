package repository

import (
	"context"
	"errors"

	"bankledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository 账户表读写
//
// 写操作都接收当前事务 tx，保证与流水写入处于同一个事务作用域；
// tx 为 nil 时直接使用连接池
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *AccountRepository) Exists(ctx context.Context, tx *gorm.DB, accountNo string) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ?", accountNo).
		Count(&count).Error
	if err != nil {
		return false, ClassifyStoreError(err)
	}
	return count > 0, nil
}

func (r *AccountRepository) GetBalance(ctx context.Context, tx *gorm.DB, accountNo string) (decimal.Decimal, error) {
	var account model.Account
	err := r.conn(tx).WithContext(ctx).
		Select("balance").
		Where("account_number = ?", accountNo).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, ClassifyStoreError(err)
	}
	return account.Balance, nil
}

func (r *AccountRepository) GetProfile(ctx context.Context, accountNo string) (*model.AccountProfile, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Select("account_number", "holder_name", "email", "ifsc", "balance", "created_at").
		Where("account_number = ?", accountNo).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, ClassifyStoreError(err)
	}
	return account.Profile(), nil
}

// Get 读取完整账户（含 PIN），不加锁
func (r *AccountRepository) Get(ctx context.Context, tx *gorm.DB, accountNo string) (*model.Account, error) {
	var account model.Account
	err := r.conn(tx).WithContext(ctx).
		Where("account_number = ?", accountNo).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, ClassifyStoreError(err)
	}
	return &account, nil
}

// GetForUpdate 读取账户并加行锁，必须在事务内调用
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, accountNo string) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_number = ?", accountNo).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, ClassifyStoreError(err)
	}
	return &account, nil
}

func (r *AccountRepository) Insert(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return ClassifyStoreError(r.conn(tx).WithContext(ctx).Create(account).Error)
}

// AdjustBalance balance += delta
//
// delta 为负时是条件更新：WHERE balance >= -delta，检查与扣减在一条语句里完成，
// 并发取款不会把余额扣成负数。影响行数为 0 时在同一事务内区分“账户不存在”与“余额不足”
func (r *AccountRepository) AdjustBalance(ctx context.Context, tx *gorm.DB, accountNo string, delta decimal.Decimal) error {
	query := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ?", accountNo)
	if delta.IsNegative() {
		query = query.Where("balance >= CAST(? AS DECIMAL(20,2))", delta.Neg())
	}

	result := query.Update("balance", gorm.Expr("balance + CAST(? AS DECIMAL(20,2))", delta))
	if result.Error != nil {
		return ClassifyStoreError(result.Error)
	}

	if result.RowsAffected == 0 {
		exists, err := r.Exists(ctx, tx, accountNo)
		if err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrBalanceNotEnough
	}

	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, tx *gorm.DB, accountNo string) error {
	result := r.conn(tx).WithContext(ctx).
		Where("account_number = ?", accountNo).
		Delete(&model.Account{})
	if result.Error != nil {
		return ClassifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionTypeDeposit     = "DEPOSIT"      // 存款
	TransactionTypeWithdraw    = "WITHDRAW"     // 取款
	TransactionTypeTransferOut = "TRANSFER_OUT" // 转出
	TransactionTypeTransferIn  = "TRANSFER_IN"  // 转入
)

// ValidTransactionType 判断是否为合法的交易类型
func ValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeTransferOut, TransactionTypeTransferIn:
		return true
	}
	return false
}

// ============================================================================
// 账户流水实体
// ============================================================================

// Transaction 账户流水表
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 与余额变更在同一个事务内写入 —— 一起提交或一起回滚
// 3. 记录交易后余额 —— 便于校验余额一致性
// 4. 账户删除后流水保留（弱关联，不建外键）
type Transaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`   // 流水号（全局唯一）
	AccountNo     string          `gorm:"column:account_number;type:char(12);index;not null" json:"account_number"`
	Type          string          `gorm:"column:transaction_type;type:varchar(20);not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`        // 变动金额（始终为正）
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"` // 交易后余额
	Remark        string          `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

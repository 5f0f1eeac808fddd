package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account 账户表
// 账号为 12 位数字字符串，创建后不可变；余额任何已提交操作后都必须 >= 0
type Account struct {
	AccountNo  string          `gorm:"column:account_number;type:char(12);primaryKey" json:"account_number"`
	HolderName string          `gorm:"type:varchar(100);not null" json:"holder_name"`
	Email      string          `gorm:"type:varchar(255);not null" json:"email"`
	Pin        string          `gorm:"column:atm_pin;type:char(4);not null" json:"-"` // 明文保存，仅做相等比较
	IFSC       string          `gorm:"column:ifsc;type:varchar(11);not null" json:"ifsc"`
	Balance    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountProfile 账户详情（不含 PIN）
type AccountProfile struct {
	AccountNo  string          `json:"account_number"`
	HolderName string          `json:"holder_name"`
	Email      string          `json:"email"`
	IFSC       string          `json:"ifsc"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Profile 返回去掉 PIN 的只读视图
func (a *Account) Profile() *AccountProfile {
	return &AccountProfile{
		AccountNo:  a.AccountNo,
		HolderName: a.HolderName,
		Email:      a.Email,
		IFSC:       a.IFSC,
		Balance:    a.Balance,
		CreatedAt:  a.CreatedAt,
	}
}

package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 通知类型，由外部邮件服务消费
const (
	NotifyAccountCreated = "ACCOUNT_CREATED"
	NotifyDeposit        = "DEPOSIT"
	NotifyWithdraw       = "WITHDRAW"
	NotifyTransferOut    = "TRANSFER_OUT"
	NotifyTransferIn     = "TRANSFER_IN"
	NotifyAccountDeleted = "ACCOUNT_DELETED"
)

// OutboxMessage 待投递到 Kafka 的通知消息
// 只在账本事务提交之后写入，写入失败不影响账本操作
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Kind       string    `gorm:"type:varchar(32);not null" json:"kind"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	LastError  string    `gorm:"type:varchar(512)" json:"last_error"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

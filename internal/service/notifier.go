package service

import (
	"context"
	"encoding/json"
	"time"

	"bankledger/internal/model"
	"bankledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier 通知出口，发后不管
//
// 只在账本事务提交后调用，失败不会影响已提交的操作
type Notifier interface {
	Notify(ctx context.Context, email, kind string, details map[string]any)
}

// NopNotifier 丢弃所有通知
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, map[string]any) {}

// OutboxNotifier 把通知写入 outbox 表，由 OutboxSender 投递到 Kafka
type OutboxNotifier struct {
	outbox *repository.OutboxRepository
	topic  string
	log    *zap.Logger
}

func NewOutboxNotifier(outbox *repository.OutboxRepository, topic string, log *zap.Logger) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox, topic: topic, log: log}
}

type notification struct {
	Email      string         `json:"email"`
	Kind       string         `json:"kind"`
	Details    map[string]any `json:"details"`
	OccurredAt string         `json:"occurred_at"`
}

func (n *OutboxNotifier) Notify(ctx context.Context, email, kind string, details map[string]any) {
	payload, err := json.Marshal(notification{
		Email:      email,
		Kind:       kind,
		Details:    details,
		OccurredAt: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		n.log.Warn("通知序列化失败", zap.String("kind", kind), zap.Error(err))
		return
	}

	msg := &model.OutboxMessage{
		MessageKey: uuid.NewString(),
		Topic:      n.topic,
		Kind:       kind,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	// 请求上下文可能已取消，通知写入不跟随取消
	if err := n.outbox.Create(context.WithoutCancel(ctx), msg); err != nil {
		n.log.Warn("写入通知消息失败", zap.String("kind", kind), zap.Error(err))
	}
}

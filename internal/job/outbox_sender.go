package job

import (
	"context"
	"time"

	"bankledger/internal/config"
	"bankledger/internal/model"
	"bankledger/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessagePublisher 消息出口，mq.Publisher 满足该接口
type MessagePublisher interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender 把 outbox 表中待发送的账户通知投递到 Kafka
//
// 账本事务提交后通知才会写入 outbox，投递失败只会重试或标记 FAILED，
// 不会影响账本本身
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     MessagePublisher
	log           *zap.Logger
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
}

func NewOutboxSender(db *gorm.DB, publisher MessagePublisher, cfg *config.Config, log *zap.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		log:           log.Named("outbox_sender"),
		stopCh:        make(chan struct{}),
		interval:      time.Duration(cfg.Business.OutboxIntervalMillis) * time.Millisecond,
		batchSize:     cfg.Business.OutboxBatchSize,
		maxRetryCount: cfg.Business.MaxRetryCount,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("消息发送任务启动", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("任务停止")
			return
		case <-ticker.C:
			s.ProcessPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPendingMessages 投递一批待发送消息，返回成功条数
func (s *OutboxSender) ProcessPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("查询消息失败", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.publisher.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			s.log.Error("更新消息状态失败", zap.Int64("id", msg.ID), zap.Error(updateErr))
			return false
		}
		s.log.Debug("消息发送成功",
			zap.Int64("id", msg.ID),
			zap.String("topic", msg.Topic),
			zap.String("kind", msg.Kind))
		return true
	}

	giveUp := msg.RetryCount+1 >= s.maxRetryCount
	s.log.Warn("消息发送失败",
		zap.Int64("id", msg.ID),
		zap.Int("retry_count", msg.RetryCount+1),
		zap.Bool("give_up", giveUp),
		zap.Error(err))

	if recordErr := s.outboxRepo.RecordFailure(ctx, msg.ID, err.Error(), giveUp); recordErr != nil {
		s.log.Error("记录发送失败出错", zap.Int64("id", msg.ID), zap.Error(recordErr))
	}
	return false
}

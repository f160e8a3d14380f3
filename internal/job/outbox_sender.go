package job

import (
	"context"
	"time"

	"bankcore/internal/logger"
	"bankcore/internal/model"
	"bankcore/internal/repository"

	"gorm.io/gorm"
)

// Publisher 消息投递，生产环境由 mq.Producer 实现
type Publisher interface {
	Publish(topic, key, value string) error
}

// OutboxSender 轮询发件箱，把审计事件投递到 Kafka
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     Publisher
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
}

func NewOutboxSender(db *gorm.DB, publisher Publisher, interval time.Duration, batchSize, maxRetryCount int) *OutboxSender {
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		stopCh:        make(chan struct{}),
		interval:      interval,
		batchSize:     batchSize,
		maxRetryCount: maxRetryCount,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	l := logger.FromContext(ctx).With().Str("job", "outbox_sender").Logger()
	l.Info().Dur("interval", s.interval).Msg("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			l.Info().Msg("任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(logger.WithContext(ctx, l))
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		l := logger.FromContext(ctx)
		l.Error().Err(err).Msg("查询消息失败")
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
	l := logger.FromContext(ctx).With().Int64("id", msg.ID).Str("topic", msg.Topic).Logger()

	err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			l.Error().Err(updateErr).Msg("更新消息状态失败")
			return false
		}
		l.Debug().Str("key", msg.MessageKey).Msg("消息发送成功")
		return true
	}

	l.Warn().Err(err).Int("retry_count", msg.RetryCount).Msg("消息发送失败")

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		l.Error().Err(err).Msg("增加重试次数失败")
	}

	if msg.RetryCount+1 >= s.maxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			l.Error().Err(err).Msg("标记消息失败状态失败")
		} else {
			l.Warn().Msg("消息超过最大重试次数，标记为失败")
		}
	}
	return false
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bankcore/internal/model"
	"bankcore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxAuditLog 把审计备注写入发件箱，由 OutboxSender 投递到 Kafka
type OutboxAuditLog struct {
	outboxRepo *repository.OutboxRepository
	topic      string
	now        func() time.Time
}

func NewOutboxAuditLog(db *gorm.DB, topic string) *OutboxAuditLog {
	return &OutboxAuditLog{
		outboxRepo: repository.NewOutboxRepository(db),
		topic:      topic,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (a *OutboxAuditLog) Append(ctx context.Context, tx *gorm.DB, entityType string, entityID int64, message string) error {
	event := model.AuditEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Message:    message,
		OccurredAt: a.now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化审计事件失败: %w", err)
	}

	msg := &model.OutboxMessage{
		MessageKey: uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Topic:      a.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := a.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	return nil
}

// History 按写入顺序返回实体的审计备注
func (a *OutboxAuditLog) History(ctx context.Context, entityType string, entityID int64) ([]model.AuditEvent, error) {
	messages, err := a.outboxRepo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	events := make([]model.AuditEvent, 0, len(messages))
	for _, m := range messages {
		var e model.AuditEvent
		if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
			return nil, fmt.Errorf("解析审计记录失败: id=%d: %w", m.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 审计事件涉及的实体
const (
	EntityCustomer    = "customer"
	EntityAccount     = "account"
	EntityTransaction = "transaction"
	EntityLoan        = "loan"
)

// OutboxMessage 审计事件发件箱
// 状态变更的审计记录与业务数据在同一个数据库事务中写入，再由后台任务投递到 Kafka
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	EntityType string    `gorm:"type:varchar(32);index:idx_entity;not null" json:"entity_type"`
	EntityID   int64     `gorm:"index:idx_entity;not null" json:"entity_id"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// AuditEvent 是 OutboxMessage.Payload 的内容
type AuditEvent struct {
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

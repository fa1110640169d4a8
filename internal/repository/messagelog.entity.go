package repository

import (
	"time"

	"github.com/asuogyaman/constituency-gateway/internal/model"
)

type MessageLogEntity struct {
	ID        string    `gorm:"primaryKey;column:id"`
	SenderID  string    `gorm:"column:sender_id;not null;index"`
	Recipient string    `gorm:"column:recipient;not null;index"`
	Body      string    `gorm:"column:body;not null"`
	Type      string    `gorm:"column:type;not null"`
	Status    string    `gorm:"column:status;not null"`
	BatchID   string    `gorm:"column:batch_id;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (MessageLogEntity) TableName() string {
	return "message_logs"
}

func toMessageLogEntity(m *model.MessageLog) *MessageLogEntity {
	if m == nil {
		return nil
	}
	return &MessageLogEntity{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Recipient: m.Recipient,
		Body:      m.Body,
		Type:      string(m.Type),
		Status:    string(m.Status),
		BatchID:   m.BatchID,
		CreatedAt: m.CreatedAt,
	}
}

func toMessageLogModel(e *MessageLogEntity) *model.MessageLog {
	if e == nil {
		return nil
	}
	return &model.MessageLog{
		ID:        e.ID,
		SenderID:  e.SenderID,
		Recipient: e.Recipient,
		Body:      e.Body,
		Type:      model.MessageType(e.Type),
		Status:    model.MessageStatus(e.Status),
		BatchID:   e.BatchID,
		CreatedAt: e.CreatedAt,
	}
}

func toMessageLogModels(entities []*MessageLogEntity) []*model.MessageLog {
	if entities == nil {
		return nil
	}
	models := make([]*model.MessageLog, len(entities))
	for i, e := range entities {
		models[i] = toMessageLogModel(e)
	}
	return models
}

package model

import "time"

// MessageType tags a log entry with the channel it was delivered on.
type MessageType string

const (
	MessageTypeSMS MessageType = "sms"
)

// MessageStatus is the delivery state recorded for a log entry.
type MessageStatus string

const (
	MessageStatusSent MessageStatus = "sent"
)

// MessageLog is an append-only record of a delivered message. One row is
// written per recipient of a successful batch send; rows are never mutated.
type MessageLog struct {
	ID        string        `json:"id"         gorm:"primaryKey;column:id"`
	SenderID  string        `json:"sender_id"  gorm:"column:sender_id;not null;index"`
	Recipient string        `json:"recipient"  gorm:"column:recipient;not null;index"`
	Body      string        `json:"body"       gorm:"column:body;not null"`
	Type      MessageType   `json:"type"       gorm:"column:type;not null"`
	Status    MessageStatus `json:"status"     gorm:"column:status;not null"`
	BatchID   string        `json:"batch_id"   gorm:"column:batch_id;index"`
	CreatedAt time.Time     `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (MessageLog) TableName() string { return "message_logs" }

// MessageLogFilter controls List queries over the delivery log.
type MessageLogFilter struct {
	SenderID  *string
	Recipient *string
	BatchID   *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}

// Recipient is the canonical form of an SMS destination. Inbound requests may
// carry either a bare phone string or a {phone,name} object; both are reduced
// to this shape at the boundary before any business logic runs.
type Recipient struct {
	Phone       string
	DisplayName string
}

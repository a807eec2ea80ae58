package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one immutable turn of a chat session. Timestamp is the ordering
// key; DisplayTime is the localized short form shown to the user.
type Message struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChatSessionID string    `gorm:"type:varchar(36);not null;index:idx_messages_session_ts,priority:1" json:"-"`
	Sender        string    `gorm:"size:20;not null" json:"sender"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	DisplayTime   string    `gorm:"size:40" json:"displayTime"`
	Timestamp     time.Time `gorm:"not null;index:idx_messages_session_ts,priority:2" json:"timestamp"`
	CreatedAt     time.Time `json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

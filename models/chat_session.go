package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession is one conversation thread between a user and a bot persona.
// The Last* fields are a denormalized preview of the latest exchange.
type ChatSession struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string    `gorm:"type:varchar(36);not null;index" json:"-"`
	PersonaName   string    `gorm:"size:120;not null" json:"personaName"`
	PersonaAvatar string    `gorm:"size:500" json:"personaAvatar"`
	LastMessage   string    `gorm:"type:text" json:"lastMessage"`
	LastTime      string    `gorm:"size:40" json:"lastTime"`
	UnreadCount   int       `gorm:"not null;default:0" json:"unreadCount"`
	IsOnline      bool      `gorm:"not null;default:false" json:"online"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `gorm:"index" json:"-"`

	Messages []Message `gorm:"foreignKey:ChatSessionID" json:"-"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is one troubleshooting chat session.
type Conversation struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	ApplianceID *uuid.UUID `gorm:"type:uuid;index"`
	IsResolved  bool       `gorm:"not null"`
	IsEscalated bool       `gorm:"not null"`
	AISummary   *string
	CreatedAt   time.Time `gorm:"not null"`

	// Associations
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Message is a single chat turn.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;index;not null"`
	Role           string    `gorm:"size:16;not null"`
	Content        string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket statuses.
const (
	TicketNew        = "new"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Ticket is a support history entry for an appliance, created either by the
// user directly or by escalating a conversation.
type Ticket struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	ApplianceID    *uuid.UUID `gorm:"type:uuid;index"`
	ConversationID *uuid.UUID `gorm:"type:uuid;index"`
	Status         string     `gorm:"size:32;not null"`
	Symptom        string     `gorm:"not null"`
	TriedSolutions *string
	// WarrantyStatus is a snapshot taken when the ticket was filed.
	WarrantyStatus *string   `gorm:"size:32"`
	PhotoURL       *string   `gorm:"size:1024"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (t *Ticket) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

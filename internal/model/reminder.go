package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder is a recurring maintenance task tied to one appliance.
// NextDueDate is derived from LastDoneDate and IntervalMonths and stored
// for query convenience; it is rewritten on every change to either.
type Reminder struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ApplianceID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Title          string    `gorm:"size:255;not null"`
	IntervalMonths int       `gorm:"not null"`
	LastDoneDate   *time.Time
	NextDueDate    *time.Time `gorm:"index"`
	Enabled        bool       `gorm:"not null"`
	// NotifiedFor records the due date a push notification was last sent for.
	NotifiedFor *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (r *Reminder) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

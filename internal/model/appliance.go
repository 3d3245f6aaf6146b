package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultApplianceType is stored when the caller leaves the category empty.
const DefaultApplianceType = "other"

// Appliance represents one physical product a user owns. Warranty end date,
// remaining days and status are derived on read and never stored.
type Appliance struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"type:uuid;index;not null"`
	ApplianceType  string    `gorm:"size:64;not null"`
	Brand          string    `gorm:"size:128"`
	Model          string    `gorm:"size:128;index"`
	StoreName      string    `gorm:"size:128"`
	PurchaseDate   *time.Time
	WarrantyMonths int     `gorm:"not null"`
	ImageURL       *string `gorm:"size:1024"`
	ReceiptURL     *string `gorm:"size:1024"`
	WarrantyDocURL *string `gorm:"size:1024"`
	Notes          *string
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`

	// Associations
	Reminders []Reminder `gorm:"foreignKey:ApplianceID;constraint:OnDelete:CASCADE"`
}

func (a *Appliance) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member roles.
const (
	MemberOwner  = "owner"
	MemberMember = "member"
)

// Household groups users who share an invite code.
type Household struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"uniqueIndex;size:16;not null"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Members []HouseholdMember `gorm:"foreignKey:HouseholdID;constraint:OnDelete:CASCADE"`
}

func (h *Household) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// HouseholdMember is a user's membership. The unique index on UserID limits
// every user to one household.
type HouseholdMember struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	HouseholdID uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	DisplayName string    `gorm:"size:128;not null"`
	Role        string    `gorm:"size:16;not null"`
	JoinedAt    time.Time `gorm:"not null"`
}

func (m *HouseholdMember) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

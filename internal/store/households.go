package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appliance-warranty-backend/internal/model"
)

// CreateHousehold inserts a household and its owner membership. It returns
// ErrAlreadyMember if the owner already belongs somewhere and ErrCodeTaken
// if the invite code collides, so callers can retry with a fresh code.
func (s *gormStore) CreateHousehold(ctx context.Context, h *model.Household, owner *model.HouseholdMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNotMember(tx, owner.UserID); err != nil {
			return err
		}

		var taken int64
		if err := tx.Model(&model.Household{}).Where("code = ?", h.Code).Count(&taken).Error; err != nil {
			return fmt.Errorf("failed to check invite code: %w", err)
		}
		if taken > 0 {
			return ErrCodeTaken
		}

		if err := tx.Omit(clause.Associations).Create(h).Error; err != nil {
			if errors.Is(translate(err), ErrConflict) {
				return ErrCodeTaken
			}
			return fmt.Errorf("failed to create household: %w", err)
		}

		owner.HouseholdID = h.ID
		owner.Role = model.MemberOwner
		if err := tx.Create(owner).Error; err != nil {
			if errors.Is(translate(err), ErrConflict) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("failed to add household owner: %w", err)
		}
		h.Members = []model.HouseholdMember{*owner}
		return nil
	})
}

// HouseholdByCode looks up a household by its normalized invite code.
func (s *gormStore) HouseholdByCode(ctx context.Context, code string) (*model.Household, error) {
	var h model.Household
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		Where("code = ?", code).
		First(&h).Error
	if err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

// JoinHousehold adds a member. A user can belong to at most one household.
func (s *gormStore) JoinHousehold(ctx context.Context, m *model.HouseholdMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNotMember(tx, m.UserID); err != nil {
			return err
		}
		if err := tx.First(&model.Household{}, "id = ?", m.HouseholdID).Error; err != nil {
			return translate(err)
		}
		if m.Role == "" {
			m.Role = model.MemberMember
		}
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(translate(err), ErrConflict) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("failed to join household: %w", err)
		}
		return nil
	})
}

// HouseholdOf returns the household the user belongs to, with members.
func (s *gormStore) HouseholdOf(ctx context.Context, userID uuid.UUID) (*model.Household, error) {
	db := s.db.WithContext(ctx)

	var m model.HouseholdMember
	if err := db.Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, translate(err)
	}

	var h model.Household
	err := db.Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at ASC") }).
		First(&h, "id = ?", m.HouseholdID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func ensureNotMember(tx *gorm.DB, userID uuid.UUID) error {
	var n int64
	if err := tx.Model(&model.HouseholdMember{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if n > 0 {
		return ErrAlreadyMember
	}
	return nil
}

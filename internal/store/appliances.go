package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appliance-warranty-backend/internal/model"
)

// ListAppliances returns the user's appliances, newest first.
func (s *gormStore) ListAppliances(ctx context.Context, userID uuid.UUID, withReminders bool) ([]model.Appliance, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if withReminders {
		q = q.Preload("Reminders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	}

	var appliances []model.Appliance
	if err := q.Find(&appliances).Error; err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	return appliances, nil
}

// GetAppliance returns ErrNotFound unless the appliance exists and belongs to userID.
func (s *gormStore) GetAppliance(ctx context.Context, userID, id uuid.UUID) (*model.Appliance, error) {
	return ownedAppliance(s.db.WithContext(ctx), userID, id)
}

func (s *gormStore) CreateAppliance(ctx context.Context, a *model.Appliance) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create appliance: %w", translate(err))
	}
	return nil
}

// UpdateAppliance loads the owned appliance, lets apply mutate it and saves
// every column. Identity and ownership cannot be changed by apply.
func (s *gormStore) UpdateAppliance(ctx context.Context, userID, id uuid.UUID, apply func(*model.Appliance) error) (*model.Appliance, error) {
	var updated *model.Appliance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := ownedAppliance(tx, userID, id)
		if err != nil {
			return err
		}
		if err := apply(a); err != nil {
			return err
		}
		a.ID, a.UserID = id, userID
		if err := tx.Omit(clause.Associations).Save(a).Error; err != nil {
			return fmt.Errorf("failed to update appliance %s: %w", id, translate(err))
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAppliance removes the appliance and its reminders.
func (s *gormStore) DeleteAppliance(ctx context.Context, userID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedAppliance(tx, userID, id); err != nil {
			return err
		}
		if err := tx.Where("appliance_id = ?", id).Delete(&model.Reminder{}).Error; err != nil {
			return fmt.Errorf("failed to delete reminders of appliance %s: %w", id, err)
		}
		if err := tx.Delete(&model.Appliance{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete appliance %s: %w", id, err)
		}
		return nil
	})
}

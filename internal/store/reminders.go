package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/reminder"
)

// ListReminders returns the reminders of an owned appliance.
func (s *gormStore) ListReminders(ctx context.Context, userID, applianceID uuid.UUID) ([]model.Reminder, error) {
	db := s.db.WithContext(ctx)
	if _, err := ownedAppliance(db, userID, applianceID); err != nil {
		return nil, err
	}

	var reminders []model.Reminder
	err := db.Where("appliance_id = ?", applianceID).Order("created_at ASC").Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// CreateReminder inserts a reminder under an owned appliance. NextDueDate is
// always derived here; any caller-supplied value is discarded.
func (s *gormStore) CreateReminder(ctx context.Context, userID uuid.UUID, r *model.Reminder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedAppliance(tx, userID, r.ApplianceID); err != nil {
			return err
		}
		r.NextDueDate = reminder.NextDue(r.LastDoneDate, r.IntervalMonths)
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create reminder: %w", translate(err))
		}
		return nil
	})
}

// UpdateReminder applies a mutation and recomputes NextDueDate from the
// stored interval and completion date.
func (s *gormStore) UpdateReminder(ctx context.Context, userID, applianceID, id uuid.UUID, apply func(*model.Reminder) error) (*model.Reminder, error) {
	var updated *model.Reminder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := ownedReminder(tx, userID, applianceID, id)
		if err != nil {
			return err
		}
		if err := apply(r); err != nil {
			return err
		}
		r.ID, r.ApplianceID = id, applianceID
		r.NextDueDate = reminder.NextDue(r.LastDoneDate, r.IntervalMonths)
		if err := tx.Save(r).Error; err != nil {
			return fmt.Errorf("failed to update reminder %s: %w", id, translate(err))
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *gormStore) DeleteReminder(ctx context.Context, userID, applianceID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedReminder(tx, userID, applianceID, id); err != nil {
			return err
		}
		if err := tx.Delete(&model.Reminder{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete reminder %s: %w", id, err)
		}
		return nil
	})
}

// ReminderWithAppliance loads a reminder and its parent without an ownership
// check. It serves the notification workers only.
func (s *gormStore) ReminderWithAppliance(ctx context.Context, id uuid.UUID) (*model.Reminder, *model.Appliance, error) {
	db := s.db.WithContext(ctx)

	var r model.Reminder
	if err := db.First(&r, "id = ?", id).Error; err != nil {
		return nil, nil, translate(err)
	}
	var a model.Appliance
	if err := db.First(&a, "id = ?", r.ApplianceID).Error; err != nil {
		return nil, nil, translate(err)
	}
	return &r, &a, nil
}

// ListDueReminders returns enabled reminders due on or before horizon that
// have not yet been notified for their current due date.
func (s *gormStore) ListDueReminders(ctx context.Context, horizon time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("enabled = ? AND next_due_date IS NOT NULL AND next_due_date <= ?", true, horizon).
		Where("(notified_for IS NULL OR notified_for <> next_due_date)").
		Order("next_due_date ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

func (s *gormStore) MarkReminderNotified(ctx context.Context, id uuid.UUID, due time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.Reminder{}).Where("id = ?", id).Update("notified_for", due)
	if res.Error != nil {
		return fmt.Errorf("failed to mark reminder %s notified: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func ownedReminder(tx *gorm.DB, userID, applianceID, id uuid.UUID) (*model.Reminder, error) {
	if _, err := ownedAppliance(tx, userID, applianceID); err != nil {
		return nil, err
	}
	var r model.Reminder
	if err := tx.Where("id = ? AND appliance_id = ?", id, applianceID).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

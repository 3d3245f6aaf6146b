package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"appliance-warranty-backend/internal/model"
)

// ListTickets returns the support history of an owned appliance, newest first.
func (s *gormStore) ListTickets(ctx context.Context, userID, applianceID uuid.UUID) ([]model.Ticket, error) {
	db := s.db.WithContext(ctx)
	if _, err := ownedAppliance(db, userID, applianceID); err != nil {
		return nil, err
	}

	var tickets []model.Ticket
	err := db.Where("user_id = ? AND appliance_id = ?", userID, applianceID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// CreateTicket inserts a ticket. An ApplianceID, when present, must belong
// to the ticket's user.
func (s *gormStore) CreateTicket(ctx context.Context, t *model.Ticket) error {
	db := s.db.WithContext(ctx)
	if t.ApplianceID != nil {
		if _, err := ownedAppliance(db, t.UserID, *t.ApplianceID); err != nil {
			return err
		}
	}
	if t.Status == "" {
		t.Status = model.TicketInProgress
	}
	if err := db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", translate(err))
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appliance-warranty-backend/internal/model"
)

func (s *gormStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	db := s.db.WithContext(ctx)
	if c.ApplianceID != nil {
		if _, err := ownedAppliance(db, c.UserID, *c.ApplianceID); err != nil {
			return err
		}
	}
	if err := db.Omit(clause.Associations).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", translate(err))
	}
	return nil
}

// GetConversation loads an owned conversation with its messages in order.
func (s *gormStore) GetConversation(ctx context.Context, userID, id uuid.UUID) (*model.Conversation, error) {
	var c model.Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// AppendMessages stores chat turns in the order given. Timestamps are
// assigned strictly increasing so the order survives coarse clocks.
func (s *gormStore) AppendMessages(ctx context.Context, userID, conversationID uuid.UUID, msgs ...model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", conversationID, userID).
			First(&model.Conversation{}).Error; err != nil {
			return translate(err)
		}

		var last model.Message
		err := tx.Where("conversation_id = ?", conversationID).Order("created_at DESC").Limit(1).Find(&last).Error
		if err != nil {
			return fmt.Errorf("failed to load last message: %w", err)
		}

		ts := s.now().UTC()
		if !last.CreatedAt.IsZero() && !ts.After(last.CreatedAt) {
			ts = last.CreatedAt
		}
		for i := range msgs {
			ts = ts.Add(time.Microsecond)
			msgs[i].ID = uuid.Nil
			msgs[i].ConversationID = conversationID
			msgs[i].CreatedAt = ts
		}
		if err := tx.Create(&msgs).Error; err != nil {
			return fmt.Errorf("failed to append messages: %w", err)
		}
		return nil
	})
}

func (s *gormStore) ResolveConversation(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_resolved", true)
	if res.Error != nil {
		return fmt.Errorf("failed to resolve conversation %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Escalate records a ticket and, when the ticket references a conversation,
// flags that conversation as escalated in the same transaction.
func (s *gormStore) Escalate(ctx context.Context, t *model.Ticket, aiSummary *string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.ApplianceID != nil {
			if _, err := ownedAppliance(tx, t.UserID, *t.ApplianceID); err != nil {
				return err
			}
		}
		if t.ConversationID != nil {
			updates := map[string]any{"is_escalated": true}
			if aiSummary != nil {
				updates["ai_summary"] = *aiSummary
			}
			res := tx.Model(&model.Conversation{}).
				Where("id = ? AND user_id = ?", *t.ConversationID, t.UserID).
				Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("failed to flag conversation: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		if t.Status == "" {
			t.Status = model.TicketInProgress
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create escalation ticket: %w", translate(err))
		}
		return nil
	})
}

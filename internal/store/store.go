package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"appliance-warranty-backend/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned by
	// the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyMember is returned when a user already holds a household membership.
	ErrAlreadyMember = fmt.Errorf("%w: user already belongs to a household", ErrConflict)
	// ErrCodeTaken is returned when a generated invite code collides.
	ErrCodeTaken = fmt.Errorf("%w: invite code already in use", ErrConflict)
)

// Store defines the interface for all database operations. Every method
// touching user data takes the caller's user id explicitly.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	ListAppliances(ctx context.Context, userID uuid.UUID, withReminders bool) ([]model.Appliance, error)
	GetAppliance(ctx context.Context, userID, id uuid.UUID) (*model.Appliance, error)
	CreateAppliance(ctx context.Context, a *model.Appliance) error
	UpdateAppliance(ctx context.Context, userID, id uuid.UUID, apply func(*model.Appliance) error) (*model.Appliance, error)
	DeleteAppliance(ctx context.Context, userID, id uuid.UUID) error

	ListReminders(ctx context.Context, userID, applianceID uuid.UUID) ([]model.Reminder, error)
	CreateReminder(ctx context.Context, userID uuid.UUID, r *model.Reminder) error
	UpdateReminder(ctx context.Context, userID, applianceID, id uuid.UUID, apply func(*model.Reminder) error) (*model.Reminder, error)
	DeleteReminder(ctx context.Context, userID, applianceID, id uuid.UUID) error
	ReminderWithAppliance(ctx context.Context, id uuid.UUID) (*model.Reminder, *model.Appliance, error)
	ListDueReminders(ctx context.Context, horizon time.Time) ([]model.Reminder, error)
	MarkReminderNotified(ctx context.Context, id uuid.UUID, due time.Time) error

	ListTickets(ctx context.Context, userID, applianceID uuid.UUID) ([]model.Ticket, error)
	CreateTicket(ctx context.Context, t *model.Ticket) error

	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, userID, id uuid.UUID) (*model.Conversation, error)
	AppendMessages(ctx context.Context, userID, conversationID uuid.UUID, msgs ...model.Message) error
	ResolveConversation(ctx context.Context, userID, id uuid.UUID) error
	Escalate(ctx context.Context, t *model.Ticket, aiSummary *string) error

	CreateHousehold(ctx context.Context, h *model.Household, owner *model.HouseholdMember) error
	HouseholdByCode(ctx context.Context, code string) (*model.Household, error)
	JoinHousehold(ctx context.Context, m *model.HouseholdMember) error
	HouseholdOf(ctx context.Context, userID uuid.UUID) (*model.Household, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

// Ping checks that the database is reachable.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// ownedAppliance loads an appliance only if it belongs to userID.
func ownedAppliance(tx *gorm.DB, userID, id uuid.UUID) (*model.Appliance, error) {
	var a model.Appliance
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/reminder"
	"appliance-warranty-backend/internal/warranty"
)

// optional distinguishes an absent JSON key from an explicit null.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type userView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserView(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, CreatedAt: u.CreatedAt}
}

type warrantyView struct {
	EndDate         *string         `json:"end_date"`
	DaysLeft        *int            `json:"days_left"`
	Status          warranty.Status `json:"status"`
	Known           bool            `json:"known"`
	ProgressPercent int             `json:"progress_percent"`
	RemainingText   string          `json:"remaining_text"`
}

func newWarrantyView(res warranty.Result, locale warranty.Locale) warrantyView {
	return warrantyView{
		EndDate:         formatDate(res.EndDate),
		DaysLeft:        res.DaysLeft,
		Status:          res.Status,
		Known:           res.Known,
		ProgressPercent: res.ProgressPercent(),
		RemainingText:   warranty.FormatRemainingIn(res.RemainingDays(), locale),
	}
}

type applianceView struct {
	ID             uuid.UUID      `json:"id"`
	ApplianceType  string         `json:"appliance_type"`
	Brand          string         `json:"brand"`
	Model          string         `json:"model"`
	StoreName      string         `json:"store_name"`
	PurchaseDate   *string        `json:"purchase_date"`
	WarrantyMonths int            `json:"warranty_months"`
	ImageURL       *string        `json:"image_url"`
	ReceiptURL     *string        `json:"receipt_url"`
	WarrantyDocURL *string        `json:"warranty_doc_url"`
	Notes          *string        `json:"notes"`
	Warranty       warrantyView   `json:"warranty"`
	Reminders      []reminderView `json:"reminders,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func newApplianceView(a *model.Appliance, today time.Time, locale warranty.Locale) applianceView {
	v := applianceView{
		ID:             a.ID,
		ApplianceType:  a.ApplianceType,
		Brand:          a.Brand,
		Model:          a.Model,
		StoreName:      a.StoreName,
		PurchaseDate:   formatDate(a.PurchaseDate),
		WarrantyMonths: a.WarrantyMonths,
		ImageURL:       a.ImageURL,
		ReceiptURL:     a.ReceiptURL,
		WarrantyDocURL: a.WarrantyDocURL,
		Notes:          a.Notes,
		Warranty:       newWarrantyView(warranty.Compute(a.PurchaseDate, a.WarrantyMonths, today), locale),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	for i := range a.Reminders {
		v.Reminders = append(v.Reminders, newReminderView(&a.Reminders[i], today))
	}
	return v
}

type reminderView struct {
	ID             uuid.UUID        `json:"id"`
	ApplianceID    uuid.UUID        `json:"appliance_id"`
	Title          string           `json:"title"`
	IntervalMonths int              `json:"interval_months"`
	LastDoneDate   *string          `json:"last_done_date"`
	NextDueDate    *string          `json:"next_due_date"`
	Enabled        bool             `json:"enabled"`
	Urgency        reminder.Urgency `json:"urgency"`
	DaysUntil      *int             `json:"days_until"`
}

func newReminderView(r *model.Reminder, today time.Time) reminderView {
	return reminderView{
		ID:             r.ID,
		ApplianceID:    r.ApplianceID,
		Title:          r.Title,
		IntervalMonths: r.IntervalMonths,
		LastDoneDate:   formatDate(r.LastDoneDate),
		NextDueDate:    formatDate(r.NextDueDate),
		Enabled:        r.Enabled,
		Urgency:        reminder.UrgencyOf(r.NextDueDate, today),
		DaysUntil:      reminder.DaysUntil(r.NextDueDate, today),
	}
}

type ticketView struct {
	ID             uuid.UUID  `json:"id"`
	ApplianceID    *uuid.UUID `json:"appliance_id"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	Status         string     `json:"status"`
	Symptom        string     `json:"symptom"`
	TriedSolutions *string    `json:"tried_solutions"`
	WarrantyStatus *string    `json:"warranty_status"`
	PhotoURL       *string    `json:"photo_url"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newTicketView(t *model.Ticket) ticketView {
	return ticketView{
		ID:             t.ID,
		ApplianceID:    t.ApplianceID,
		ConversationID: t.ConversationID,
		Status:         t.Status,
		Symptom:        t.Symptom,
		TriedSolutions: t.TriedSolutions,
		WarrantyStatus: t.WarrantyStatus,
		PhotoURL:       t.PhotoURL,
		CreatedAt:      t.CreatedAt,
	}
}

type memberView struct {
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

type householdView struct {
	ID      uuid.UUID    `json:"id"`
	Code    string       `json:"code"`
	Members []memberView `json:"members"`
}

func newHouseholdView(h *model.Household) householdView {
	v := householdView{ID: h.ID, Code: h.Code, Members: make([]memberView, 0, len(h.Members))}
	for _, m := range h.Members {
		v.Members = append(v.Members, memberView{DisplayName: m.DisplayName, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return v
}

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/reminder"
)

type reminderRequest struct {
	Title          optional[string] `json:"title"`
	IntervalMonths optional[int]    `json:"interval_months"`
	LastDoneDate   optional[string] `json:"last_done_date"`
	Enabled        optional[bool]   `json:"enabled"`
}

// apply copies the present fields onto r. next_due_date is never accepted;
// the store derives it.
func (req *reminderRequest) apply(r *model.Reminder) error {
	if req.Title.Set {
		r.Title = trimmed(req.Title)
		if r.Title == "" {
			return validationError{"title", "is required"}
		}
	}
	if req.IntervalMonths.Set && req.IntervalMonths.Value != nil {
		if *req.IntervalMonths.Value < 1 {
			return validationError{"interval_months", "must be at least 1"}
		}
		r.IntervalMonths = *req.IntervalMonths.Value
	}
	if req.LastDoneDate.Set {
		d, err := parseDate(req.LastDoneDate.Value)
		if err != nil {
			return validationError{"last_done_date", "must be YYYY-MM-DD"}
		}
		r.LastDoneDate = d
	}
	if req.Enabled.Set && req.Enabled.Value != nil {
		r.Enabled = *req.Enabled.Value
	}
	return nil
}

func reminderIDs(c *gin.Context) (applianceID, id uuid.UUID, ok bool) {
	if applianceID, ok = pathID(c, "id"); !ok {
		return
	}
	id, ok = pathID(c, "rid")
	return
}

// ListReminders returns the reminders of one appliance, soonest first.
func (h *Handler) ListReminders(c *gin.Context) {
	applianceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	reminders, err := h.store.ListReminders(c.Request.Context(), userID(c), applianceID)
	if err != nil {
		h.fail(c, err)
		return
	}

	today := h.today()
	views := make([]reminderView, 0, len(reminders))
	for i := range reminders {
		views = append(views, newReminderView(&reminders[i], today))
	}
	c.JSON(http.StatusOK, gin.H{"reminders": views})
}

// CreateReminder adds a maintenance task. The interval defaults to one month.
func (h *Handler) CreateReminder(c *gin.Context) {
	applianceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Title.Value == nil || strings.TrimSpace(*req.Title.Value) == "" {
		invalidField(c, "title", "is required")
		return
	}

	r := &model.Reminder{ApplianceID: applianceID, IntervalMonths: 1, Enabled: true}
	if err := req.apply(r); err != nil {
		respondInvalid(c, err)
		return
	}
	if err := h.store.CreateReminder(c.Request.Context(), userID(c), r); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reminder": newReminderView(r, h.today())})
}

// UpdateReminder applies a partial update and returns the recomputed record.
func (h *Handler) UpdateReminder(c *gin.Context) {
	applianceID, id, ok := reminderIDs(c)
	if !ok {
		return
	}
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	r, err := h.store.UpdateReminder(c.Request.Context(), userID(c), applianceID, id, req.apply)
	h.respondReminder(c, r, err)
}

type completeRequest struct {
	LastDoneDate   *string `json:"last_done_date"`
	IntervalMonths *int    `json:"interval_months"`
}

// CompleteReminder marks a task done, today unless last_done_date is given.
// The next due date counts from the completion, using interval_months when
// the request changes it and the stored interval otherwise.
func (h *Handler) CompleteReminder(c *gin.Context) {
	applianceID, id, ok := reminderIDs(c)
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	d, err := parseDate(req.LastDoneDate)
	if err != nil {
		invalidField(c, "last_done_date", "must be YYYY-MM-DD")
		return
	}
	if req.IntervalMonths != nil && *req.IntervalMonths < 1 {
		invalidField(c, "interval_months", "must be at least 1")
		return
	}
	doneOn := h.today()
	if d != nil {
		doneOn = *d
	}

	r, err := h.store.UpdateReminder(c.Request.Context(), userID(c), applianceID, id, func(r *model.Reminder) error {
		if req.IntervalMonths != nil {
			r.IntervalMonths = *req.IntervalMonths
		}
		lastDone, nextDue := reminder.Complete(r.IntervalMonths, doneOn)
		r.LastDoneDate, r.NextDueDate = &lastDone, &nextDue
		return nil
	})
	h.respondReminder(c, r, err)
}

func (h *Handler) respondReminder(c *gin.Context, r *model.Reminder, err error) {
	if err != nil {
		if !respondInvalid(c, err) {
			h.fail(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminder": newReminderView(r, h.today())})
}

// DeleteReminder removes a task.
func (h *Handler) DeleteReminder(c *gin.Context) {
	applianceID, id, ok := reminderIDs(c)
	if !ok {
		return
	}
	if err := h.store.DeleteReminder(c.Request.Context(), userID(c), applianceID, id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

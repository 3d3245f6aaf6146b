package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"appliance-warranty-backend/internal/reminder"
	"appliance-warranty-backend/internal/warranty"
)

// expiredLookbackDays hides warranties that ran out long ago.
const expiredLookbackDays = 30

type notificationView struct {
	Kind        string     `json:"kind"` // "warranty" or "reminder"
	ApplianceID uuid.UUID  `json:"appliance_id"`
	ReminderID  *uuid.UUID `json:"reminder_id,omitempty"`
	Title       string     `json:"title"`
	State       string     `json:"state"`
	DueDate     *string    `json:"due_date"`
	Days        int        `json:"days"`
}

// Notifications lists warranties that are expiring or recently expired and
// reminders that are overdue or due soon, most urgent first.
func (h *Handler) Notifications(c *gin.Context) {
	appliances, err := h.store.ListAppliances(c.Request.Context(), userID(c), true)
	if err != nil {
		h.fail(c, err)
		return
	}

	today := h.today()
	items := []notificationView{}
	for i := range appliances {
		a := &appliances[i]
		label := applianceLabel(a.ApplianceType, a.Brand, a.Model)

		res := warranty.Compute(a.PurchaseDate, a.WarrantyMonths, today)
		if res.Known && res.Status != warranty.StatusActive && *res.DaysLeft > -expiredLookbackDays {
			items = append(items, notificationView{
				Kind:        "warranty",
				ApplianceID: a.ID,
				Title:       label,
				State:       string(res.Status),
				DueDate:     formatDate(res.EndDate),
				Days:        *res.DaysLeft,
			})
		}

		for j := range a.Reminders {
			r := &a.Reminders[j]
			urgency := reminder.UrgencyOf(r.NextDueDate, today)
			if !r.Enabled || !urgency.NeedsAttention() {
				continue
			}
			items = append(items, notificationView{
				Kind:        "reminder",
				ApplianceID: a.ID,
				ReminderID:  &r.ID,
				Title:       label + ": " + r.Title,
				State:       string(urgency),
				DueDate:     formatDate(r.NextDueDate),
				Days:        *reminder.DaysUntil(r.NextDueDate, today),
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Days < items[j].Days })
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func applianceLabel(kind, brand, model string) string {
	switch {
	case brand != "" && model != "":
		return brand + " " + model
	case model != "":
		return model
	case brand != "":
		return brand + " " + kind
	default:
		return kind
	}
}

package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/warranty"
)

var ticketStatuses = []string{model.TicketNew, model.TicketInProgress, model.TicketResolved, model.TicketClosed}

type historyRequest struct {
	Symptom        string  `json:"symptom"`
	TriedSolutions *string `json:"tried_solutions"`
	PhotoURL       *string `json:"photo_url"`
	Status         string  `json:"status"`
}

// ListHistory returns the support tickets filed for an appliance.
func (h *Handler) ListHistory(c *gin.Context) {
	applianceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tickets, err := h.store.ListTickets(c.Request.Context(), userID(c), applianceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]ticketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, newTicketView(&tickets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"history": views})
}

// CreateHistory records a support ticket with a snapshot of the warranty
// status as of today.
func (h *Handler) CreateHistory(c *gin.Context) {
	applianceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	symptom := strings.TrimSpace(req.Symptom)
	if symptom == "" {
		invalidField(c, "symptom", "is required")
		return
	}
	if req.Status != "" && !slices.Contains(ticketStatuses, req.Status) {
		invalidField(c, "status", "must be one of new, in_progress, resolved, closed")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	a, err := h.store.GetAppliance(ctx, uid, applianceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	snapshot := string(warranty.Compute(a.PurchaseDate, a.WarrantyMonths, h.today()).Status)

	t := &model.Ticket{
		UserID:         uid,
		ApplianceID:    &a.ID,
		Status:         req.Status,
		Symptom:        symptom,
		TriedSolutions: nonEmpty(req.TriedSolutions),
		WarrantyStatus: &snapshot,
		PhotoURL:       nonEmpty(req.PhotoURL),
	}
	if err := h.store.CreateTicket(ctx, t); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": newTicketView(t)})
}

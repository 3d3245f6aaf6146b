package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appliance-warranty-backend/internal/assistant"
	"appliance-warranty-backend/internal/escalation"
	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/warranty"
)

type chatRequest struct {
	Messages       []assistant.Message `json:"messages"`
	ConversationID *uuid.UUID          `json:"conversation_id"`
	ApplianceID    *uuid.UUID          `json:"appliance_id"`
	ProductInfo    *assistant.Product  `json:"product_info"`
}

type chatResponse struct {
	Reply          string            `json:"reply"`
	Text           string            `json:"text"`
	Links          []string          `json:"links"`
	Videos         []assistant.Video `json:"videos"`
	ConversationID uuid.UUID         `json:"conversation_id"`
}

// Chat answers the latest user message. The conversation is created on the
// first turn; later turns pass its id back.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	history := make([]assistant.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, m)
	}
	if len(history) == 0 || history[len(history)-1].Role != model.RoleUser {
		invalidField(c, "messages", "must end with a user message")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	conv, appliance, err := h.openConversation(ctx, uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	product := req.ProductInfo
	if product == nil && appliance != nil {
		product = &assistant.Product{Name: appliance.ApplianceType, Brand: appliance.Brand, Model: appliance.Model}
	}
	reply := h.chat.Reply(ctx, history, product)

	last := history[len(history)-1]
	err = h.store.AppendMessages(ctx, uid, conv.ID,
		model.Message{Role: model.RoleUser, Content: last.Content},
		model.Message{Role: model.RoleAssistant, Content: reply},
	)
	if err != nil {
		h.log.Warn("failed to store chat turn", zap.String("conversation_id", conv.ID.String()), zap.Error(err))
	}

	parsed := assistant.ParseReply(reply)
	c.JSON(http.StatusOK, chatResponse{
		Reply:          reply,
		Text:           parsed.Text,
		Links:          parsed.Links,
		Videos:         parsed.Videos,
		ConversationID: conv.ID,
	})
}

// openConversation loads the referenced conversation or starts a new one.
func (h *Handler) openConversation(ctx context.Context, uid uuid.UUID, req chatRequest) (*model.Conversation, *model.Appliance, error) {
	var appliance *model.Appliance
	applianceID := req.ApplianceID

	var conv *model.Conversation
	if req.ConversationID != nil {
		existing, err := h.store.GetConversation(ctx, uid, *req.ConversationID)
		if err != nil {
			return nil, nil, err
		}
		conv = existing
		if applianceID == nil {
			applianceID = conv.ApplianceID
		}
	}

	if applianceID != nil {
		a, err := h.store.GetAppliance(ctx, uid, *applianceID)
		if err != nil {
			return nil, nil, err
		}
		appliance = a
	}

	if conv == nil {
		conv = &model.Conversation{UserID: uid, ApplianceID: applianceID}
		if err := h.store.CreateConversation(ctx, conv); err != nil {
			return nil, nil, err
		}
	}
	return conv, appliance, nil
}

// ResolveConversation marks a conversation as solved by the assistant.
func (h *Handler) ResolveConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.ResolveConversation(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type escalationRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	ApplianceID    *uuid.UUID `json:"appliance_id"`
	Symptom        string     `json:"symptom"`
	TriedSolutions *string    `json:"tried_solutions"`
	PhotoURL       *string    `json:"photo_url"`
	AISummary      *string    `json:"ai_summary"`
}

// Escalate files a ticket for a conversation the assistant could not solve
// and forwards it to the support desk.
func (h *Handler) Escalate(c *gin.Context) {
	var req escalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	symptom := strings.TrimSpace(req.Symptom)
	if req.ConversationID == nil || symptom == "" {
		badRequest(c, "conversation_id and symptom are required")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	var (
		appliance *model.Appliance
		res       warranty.Result
	)
	if req.ApplianceID != nil {
		a, err := h.store.GetAppliance(ctx, uid, *req.ApplianceID)
		if err != nil {
			h.fail(c, err)
			return
		}
		appliance = a
		res = warranty.Compute(a.PurchaseDate, a.WarrantyMonths, h.today())
	}

	t := &model.Ticket{
		UserID:         uid,
		ApplianceID:    req.ApplianceID,
		ConversationID: req.ConversationID,
		Status:         model.TicketNew,
		Symptom:        symptom,
		TriedSolutions: nonEmpty(req.TriedSolutions),
		PhotoURL:       nonEmpty(req.PhotoURL),
	}
	if appliance != nil {
		s := string(res.Status)
		t.WarrantyStatus = &s
	}
	summary := nonEmpty(req.AISummary)
	if err := h.store.Escalate(ctx, t, summary); err != nil {
		h.fail(c, err)
		return
	}

	ev := escalation.Event{
		TicketID:       t.ID.String(),
		ConversationID: req.ConversationID.String(),
		UserID:         uid.String(),
		Symptom:        symptom,
		TriedSolutions: t.TriedSolutions,
		AISummary:      summary,
		Timestamp:      h.now().UTC(),
	}
	if appliance != nil {
		ev.Appliance = &escalation.ApplianceInfo{
			ApplianceID:    appliance.ID.String(),
			ProductName:    appliance.ApplianceType,
			Brand:          appliance.Brand,
			ModelNumber:    appliance.Model,
			PurchaseDate:   formatDate(appliance.PurchaseDate),
			WarrantyEnd:    formatDate(res.EndDate),
			WarrantyStatus: string(res.Status),
		}
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := h.publisher.Publish(pubCtx, ev); err != nil {
		h.log.Error("escalation publish failed",
			zap.String("publisher", h.publisher.Name()), zap.String("ticket_id", ev.TicketID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"ticketId": t.ID,
		"status":   t.Status,
		"message":  "エスカレーションチケットを作成しました",
	})
}

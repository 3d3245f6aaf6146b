package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"appliance-warranty-backend/internal/model"
)

func (h *Handler) pushEnabled() bool {
	return h.webpush != nil && h.webpush.VAPIDPublicKey != ""
}

// VAPIDPublicKey hands browsers the application server key they subscribe with.
func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	if !h.pushEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}

type subscriptionKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// putSubscriptionRequest accepts the flat form as well as the browser's
// PushSubscription.toJSON() shape with a nested keys object.
type putSubscriptionRequest struct {
	Endpoint string            `json:"endpoint" binding:"required"`
	P256DH   string            `json:"p256dh"`
	Auth     string            `json:"auth"`
	Keys     *subscriptionKeys `json:"keys"`
}

// PutSubscription registers a browser for the caller's reminder
// notifications. Re-registering an endpoint moves it to the caller.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.Keys != nil {
		if req.P256DH == "" {
			req.P256DH = req.Keys.P256DH
		}
		if req.Auth == "" {
			req.Auth = req.Keys.Auth
		}
	}
	if !strings.HasPrefix(req.Endpoint, "https://") || req.P256DH == "" || req.Auth == "" {
		badRequest(c, "invalid request")
		return
	}

	sub := &model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   userID(c),
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), sub); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription unregisters one of the caller's browsers.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), userID(c), req.Endpoint); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProductImage looks up a product image and brand guess by model number.
// Unknown models answer 200 with nulls.
func (h *Handler) ProductImage(c *gin.Context) {
	model := strings.TrimSpace(c.Query("model"))
	if model == "" {
		badRequest(c, "model is required")
		return
	}
	if h.catalog == nil {
		c.JSON(http.StatusOK, gin.H{"imageUrl": nil, "brand": nil})
		return
	}
	c.JSON(http.StatusOK, h.catalog.Lookup(c.Request.Context(), model))
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"assistant": h.chat.Configured(),
		"ocr":       h.receipts.Configured(),
		"push":      h.pushEnabled(),
	})
}

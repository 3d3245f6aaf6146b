package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"appliance-warranty-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	h := NewHandler(d)
	srv := h.cfg.Server

	r := gin.New()
	r.Use(mw.Logger(h.log), mw.Recovery(h.log))

	rateLimiter := mw.RateLimiter(limit(srv.RateLimitPerSec), srv.RateLimitBurst)
	// LLM and OCR calls are billed upstream; limit them per user.
	aiLimiter := mw.UserRateLimiter(limit(srv.AIRateLimitPerSec), srv.AIRateLimitBurst)

	cacheTTL := time.Duration(srv.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	responses := d.Responses
	if responses == nil {
		responses = mw.NewMemoryStore(2 * cacheTTL)
	}
	caching := mw.Cache(responses, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/health", h.Health)
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/login", h.Login)
		api.GET("/product-image", caching, h.ProductImage)
		api.GET("/vapid_public_key", h.VAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.RequireAuth(h.issuer))

		authed.GET("/me", h.Me)

		authed.GET("/appliances", h.ListAppliances)
		authed.POST("/appliances", h.CreateAppliance)
		authed.GET("/appliances/:id", h.GetAppliance)
		authed.PATCH("/appliances/:id", h.UpdateAppliance)
		authed.DELETE("/appliances/:id", h.DeleteAppliance)

		authed.GET("/appliances/:id/reminders", h.ListReminders)
		authed.POST("/appliances/:id/reminders", h.CreateReminder)
		authed.PATCH("/appliances/:id/reminders/:rid", h.UpdateReminder)
		authed.DELETE("/appliances/:id/reminders/:rid", h.DeleteReminder)
		authed.POST("/appliances/:id/reminders/:rid/complete", h.CompleteReminder)

		authed.GET("/appliances/:id/history", h.ListHistory)
		authed.POST("/appliances/:id/history", h.CreateHistory)

		authed.POST("/chat", aiLimiter, h.Chat)
		authed.POST("/conversations/:id/resolve", h.ResolveConversation)
		authed.POST("/escalations", h.Escalate)
		authed.POST("/read-receipt", aiLimiter, h.ReadReceipt)

		authed.GET("/notifications", h.Notifications)

		authed.GET("/household", h.GetHousehold)
		authed.POST("/household", h.PostHousehold)

		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}

// limit converts a per-second rate, treating unset as unlimited.
func limit(perSec float64) rate.Limit {
	if perSec <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSec)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appliance-warranty-backend/config"
	"appliance-warranty-backend/internal/assistant"
	"appliance-warranty-backend/internal/auth"
	"appliance-warranty-backend/internal/catalog"
	"appliance-warranty-backend/internal/escalation"
	"appliance-warranty-backend/internal/mw"
	"appliance-warranty-backend/internal/store"
	"appliance-warranty-backend/internal/warranty"
)

// CatalogLookup enriches appliances from a product catalog.
type CatalogLookup interface {
	Lookup(ctx context.Context, model string) catalog.Result
}

// Deps are the collaborators the HTTP layer is built from. Nil optional
// collaborators fall back to degraded behaviour.
type Deps struct {
	Config    *config.Config
	Store     store.Store
	Issuer    *auth.Issuer
	Chat      *assistant.Chat
	Receipts  *assistant.ReceiptReader
	Catalog   CatalogLookup
	Publisher escalation.Publisher
	WebPush   *webpush.Options
	Responses mw.ResponseStore
	Log       *zap.Logger
	Now       func() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	store     store.Store
	issuer    *auth.Issuer
	chat      *assistant.Chat
	receipts  *assistant.ReceiptReader
	catalog   CatalogLookup
	publisher escalation.Publisher
	webpush   *webpush.Options
	loc       *time.Location
	log       *zap.Logger
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		cfg:       d.Config,
		store:     d.Store,
		issuer:    d.Issuer,
		chat:      d.Chat,
		receipts:  d.Receipts,
		catalog:   d.Catalog,
		publisher: d.Publisher,
		webpush:   d.WebPush,
		log:       d.Log,
		now:       d.Now,
	}
	if h.cfg == nil {
		h.cfg = &config.Config{}
	}
	h.loc = h.cfg.Warranty.Location()
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.chat == nil {
		h.chat = assistant.NewChat(nil, h.cfg.Assistant, h.log)
	}
	if h.receipts == nil {
		h.receipts = assistant.NewReceiptReader(nil, h.cfg.Assistant, h.log)
	}
	if h.publisher == nil {
		h.publisher = escalation.NopPublisher{}
	}
	return h
}

// today is the current calendar date in the configured timezone.
func (h *Handler) today() time.Time {
	return warranty.DateOf(h.now().In(h.loc))
}

// requestLocale chooses the remaining-time wording from Accept-Language.
func requestLocale(c *gin.Context) warranty.Locale {
	return warranty.NegotiateLocale(c.GetHeader("Accept-Language"))
}

// defaultMonths is the warranty length used when a request omits it.
func (h *Handler) defaultMonths() int {
	if h.cfg.Warranty.DefaultMonths > 0 {
		return h.cfg.Warranty.DefaultMonths
	}
	return warranty.DefaultMonths
}

// userID returns the authenticated caller. The auth middleware guarantees it.
func userID(c *gin.Context) uuid.UUID {
	id, _ := mw.UserID(c)
	return id
}

// fail maps store errors onto HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, store.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": "すでにグループに参加済みです"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflict"})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// validationError is a field-level rejection reported as 400.
type validationError struct {
	Field string
	Msg   string
}

func (e validationError) Error() string { return e.Field + ": " + e.Msg }

func invalidField(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "field": field})
}

// respondInvalid reports err as a field error when it is one.
func respondInvalid(c *gin.Context, err error) bool {
	var invalid validationError
	if !errors.As(err, &invalid) {
		return false
	}
	invalidField(c, invalid.Field, invalid.Msg)
	return true
}

// pathID parses a uuid path parameter, answering 404 for malformed ids.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return uuid.Nil, false
	}
	return id, true
}

// parseDate parses an optional YYYY-MM-DD value. Empty input is nil.
func parseDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.DateOnly)
	return &s
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

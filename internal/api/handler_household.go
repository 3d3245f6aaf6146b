package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appliance-warranty-backend/internal/household"
	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/store"
)

type householdRequest struct {
	Action string `json:"action"`
	Code   string `json:"code"`
}

// GetHousehold returns the caller's household, or null.
func (h *Handler) GetHousehold(c *gin.Context) {
	hh, err := h.store.HouseholdOf(c.Request.Context(), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"household": nil})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"household": newHouseholdView(hh)})
}

// PostHousehold creates a household or joins one by invite code.
func (h *Handler) PostHousehold(c *gin.Context) {
	var req householdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	switch req.Action {
	case "create":
		h.createHousehold(c)
	case "join":
		h.joinHousehold(c, req.Code)
	default:
		invalidField(c, "action", "must be create or join")
	}
}

func (h *Handler) member(c *gin.Context, role string) (*model.HouseholdMember, error) {
	u, err := h.store.UserByID(c.Request.Context(), userID(c))
	if err != nil {
		return nil, err
	}
	return &model.HouseholdMember{UserID: u.ID, DisplayName: u.DisplayName, Role: role, JoinedAt: h.now().UTC()}, nil
}

// createHousehold retries with a fresh code when the generated one is taken.
func (h *Handler) createHousehold(c *gin.Context) {
	owner, err := h.member(c, model.MemberOwner)
	if err != nil {
		h.fail(c, err)
		return
	}

	for attempt := 1; attempt <= household.MaxCodeAttempts; attempt++ {
		code, err := household.GenerateCode()
		if err != nil {
			h.fail(c, err)
			return
		}
		hh := &model.Household{Code: code, CreatedBy: owner.UserID, CreatedAt: h.now().UTC()}
		err = h.store.CreateHousehold(c.Request.Context(), hh, owner)
		if errors.Is(err, store.ErrCodeTaken) {
			h.log.Info("invite code collision", zap.Int("attempt", attempt))
			owner.ID = uuid.Nil
			continue
		}
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"household": newHouseholdView(hh)})
		return
	}
	h.log.Error("could not allocate an invite code", zap.Int("attempts", household.MaxCodeAttempts))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "招待コードの生成に失敗しました"})
}

func (h *Handler) joinHousehold(c *gin.Context, raw string) {
	code := household.NormalizeCode(raw)
	if !household.ValidCode(code) {
		invalidField(c, "code", "招待コードの形式が正しくありません")
		return
	}

	ctx := c.Request.Context()
	hh, err := h.store.HouseholdByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "招待コードが見つかりません"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	m, err := h.member(c, model.MemberMember)
	if err != nil {
		h.fail(c, err)
		return
	}
	m.HouseholdID = hh.ID
	if err := h.store.JoinHousehold(ctx, m); err != nil {
		h.fail(c, err)
		return
	}

	joined, err := h.store.HouseholdOf(ctx, m.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"household": newHouseholdView(joined)})
}

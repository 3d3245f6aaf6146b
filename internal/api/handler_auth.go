package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"appliance-warranty-backend/internal/auth"
	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/store"
)

type signupRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

// Signup registers an account and returns an access token.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		invalidField(c, "email", "invalid email")
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
	if errors.Is(err, auth.ErrWeakPassword) {
		invalidField(c, "password", err.Error())
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	u := &model.User{Email: email, PasswordHash: hash, DisplayName: name}
	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.fail(c, err)
		return
	}
	h.log.Info("user registered", zap.String("user_id", u.ID.String()))
	h.respondToken(c, http.StatusCreated, u)
}

// Login exchanges credentials for an access token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, err)
		return
	}
	if u == nil || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	h.respondToken(c, http.StatusOK, u)
}

func (h *Handler) respondToken(c *gin.Context, status int, u *model.User) {
	tok, err := h.issuer.Issue(u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, tokenResponse{Token: tok.Raw, ExpiresAt: tok.ExpiresAt, User: newUserView(u)})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.store.UserByID(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserView(u)})
}

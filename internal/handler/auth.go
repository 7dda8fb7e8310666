package handler

import (
	"net/http"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth     *service.AuthService
	profiles *service.ProfileService
}

func NewAuthHandler(auth *service.AuthService, profiles *service.ProfileService) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondWithToken(c, p, http.StatusCreated)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	p, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Warn("login.failed", "email", req.Email)
		writeError(c, err)
		return
	}
	logger.Info("login.ok", "uid", p.ID, "name", p.DisplayName)
	h.respondWithToken(c, p, http.StatusOK)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, p *model.Profile, status int) {
	token, err := h.auth.IssueToken(p, "")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, model.LoginResponse{Token: token, User: *p})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	exp, _ := c.Get(middleware.KeyExpiresAt)
	expiresAt, _ := exp.(time.Time)
	h.auth.Logout(c.GetString(middleware.KeySessionID), expiresAt)
	writeOK(c)
}

// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	p, err := h.profiles.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

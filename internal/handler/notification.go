package handler

import (
	"net/http"
	"strconv"

	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/internal/realtime"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notes *service.NotificationService
	hub   *realtime.Hub
}

func NewNotificationHandler(notes *service.NotificationService, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{notes: notes, hub: hub}
}

// GET /api/notifications?unread=1&limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	unread := c.Query("unread") == "1" || c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.notes.List(c.Request.Context(), middleware.UserID(c), unread, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.notes.MarkRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// GET /api/notifications/ws
func (h *NotificationHandler) Stream(c *gin.Context) {
	uid := middleware.UserID(c)
	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws.upgrade failed", "uid", uid, "err", err)
		return
	}
	logger.Info("ws.open", "uid", uid)
	if err := h.hub.Serve(c.Request.Context(), conn, uid); err != nil {
		logger.Debug("ws.closed", "uid", uid, "err", err)
	}
}

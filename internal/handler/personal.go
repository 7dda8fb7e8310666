package handler

import (
	"net/http"

	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

type PersonalHandler struct {
	daily *service.DailyTaskService
	notes *service.ScratchpadService
}

func NewPersonalHandler(daily *service.DailyTaskService, notes *service.ScratchpadService) *PersonalHandler {
	return &PersonalHandler{daily: daily, notes: notes}
}

// GET /api/daily-tasks
func (h *PersonalHandler) ListDaily(c *gin.Context) {
	items, err := h.daily.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []model.DailyTask{}
	}
	c.JSON(http.StatusOK, items)
}

// POST /api/daily-tasks
func (h *PersonalHandler) CreateDaily(c *gin.Context) {
	var req model.DailyTask
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	d, err := h.daily.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// PATCH /api/daily-tasks/:id
func (h *PersonalHandler) UpdateDaily(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.DailyTaskPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	d, err := h.daily.Update(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DELETE /api/daily-tasks/:id
func (h *PersonalHandler) DeleteDaily(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.daily.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// GET /api/scratchpad
func (h *PersonalHandler) Scratchpad(c *gin.Context) {
	p, err := h.notes.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// PUT /api/scratchpad
func (h *PersonalHandler) SaveScratchpad(c *gin.Context) {
	var req model.ScratchpadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.notes.Save(c.Request.Context(), middleware.UserID(c), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

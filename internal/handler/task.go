package handler

import (
	"net/http"
	"time"

	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/internal/service"
	"taskflow/internal/view"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	tasks     *service.TaskService
	spaces    *service.SpaceService
	staleTime time.Duration
}

func NewTaskHandler(tasks *service.TaskService, spaces *service.SpaceService, staleAfter time.Duration) *TaskHandler {
	return &TaskHandler{tasks: tasks, spaces: spaces, staleTime: staleAfter}
}

// GET /api/spaces/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tasks, err := h.tasks.GetTasks(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// GET /api/spaces/:id/overview
func (h *TaskHandler) Overview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx, uid := c.Request.Context(), middleware.UserID(c)
	tasks, err := h.tasks.GetTasks(ctx, uid, id)
	if err != nil {
		writeError(c, err)
		return
	}
	members, err := h.spaces.GetMembers(ctx, uid, id)
	if err != nil {
		writeError(c, err)
		return
	}
	profiles := make([]model.Profile, len(members))
	for i, m := range members {
		profiles[i] = m.Profile
	}
	c.JSON(http.StatusOK, view.Overview(tasks, profiles, model.Today()))
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.GetTask(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /api/tasks  inserts without id, patches with one.
func (h *TaskHandler) Upsert(c *gin.Context) {
	var p model.TaskPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request")
		return
	}
	h.upsert(c, p)
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Patch(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var p model.TaskPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p.ID = &id
	h.upsert(c, p)
}

func (h *TaskHandler) upsert(c *gin.Context, p model.TaskPatch) {
	t, err := h.tasks.UpsertTask(c.Request.Context(), middleware.UserID(c), p)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if p.ID == nil {
		status = http.StatusCreated
	}
	c.JSON(status, t)
}

// PUT /api/tasks/:id/status  body: {"status":"done"}
func (h *TaskHandler) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	t, err := h.tasks.SetStatus(c.Request.Context(), middleware.UserID(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// POST /api/tasks/:id/comments
func (h *TaskHandler) Comment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cm, err := h.tasks.AddComment(c.Request.Context(), middleware.UserID(c), id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

// POST /api/tasks/:id/timer/start
func (h *TaskHandler) StartTimer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.StartTimer(c.Request.Context(), middleware.UserID(c), id, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// POST /api/tasks/:id/timer/stop
func (h *TaskHandler) StopTimer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.tasks.StopTimer(c.Request.Context(), middleware.UserID(c), id, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// GET /api/timers/stale?older_than=12h
func (h *TaskHandler) StaleTimers(c *gin.Context) {
	older := h.staleTime
	if q := c.Query("older_than"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			badRequest(c, "invalid older_than")
			return
		}
		older = d
	}
	tasks, err := h.tasks.StaleTimers(c.Request.Context(), middleware.UserID(c), older)
	if err != nil {
		writeError(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

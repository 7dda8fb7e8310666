package handler

import (
	"net/http"

	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	svc *service.Services
}

func NewAIHandler(svc *service.Services) *AIHandler { return &AIHandler{svc: svc} }

// POST /api/ai/generate-tasks  body: {"space_id":1,"prompt":"...","create":true}
func (h *AIHandler) GenerateTasks(c *gin.Context) {
	var req model.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	ctx, uid := c.Request.Context(), middleware.UserID(c)
	if req.Create {
		if req.SpaceID == 0 {
			writeError(c, model.ErrSpaceRequired)
			return
		}
		if _, err := h.svc.Spaces.Access(ctx, uid, req.SpaceID); err != nil {
			writeError(c, err)
			return
		}
	}

	drafts, err := h.svc.AI.GenerateTasks(ctx, req.Prompt)
	if err != nil {
		logger.Warn("ai.generate failed", "uid", uid, "err", err)
		writeAIError(c, err)
		return
	}
	resp := model.GenerateTasksResponse{Drafts: drafts}
	if req.Create {
		created, err := h.svc.CreateDrafts(ctx, uid, req.SpaceID, drafts)
		if err != nil {
			writeError(c, err)
			return
		}
		resp.Created = created
	}
	logger.Info("ai.generate", "uid", uid, "drafts", len(drafts), "created", len(resp.Created))
	c.JSON(http.StatusOK, resp)
}

// POST /api/ai/summarize  body: {"space_id":1}
func (h *AIHandler) Summarize(c *gin.Context) {
	var req model.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	ctx, uid := c.Request.Context(), middleware.UserID(c)
	acc, err := h.svc.Spaces.Access(ctx, uid, req.SpaceID)
	if err != nil {
		writeError(c, err)
		return
	}
	tasks, err := h.svc.Tasks.GetTasks(ctx, uid, req.SpaceID)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := h.svc.AI.Summarize(ctx, acc.Space.Name, tasks, model.Today())
	if err != nil {
		logger.Warn("ai.summarize failed", "uid", uid, "err", err)
		writeAIError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SummarizeResponse{Summary: summary})
}

// writeAIError reports upstream model failures as 502 so callers can show them inline.
func writeAIError(c *gin.Context, err error) {
	if model.CodeOf(err) != model.CodeInternal {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "code": model.CodeAIFailed})
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"taskflow/internal/middleware"
	"taskflow/internal/model"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

type SpaceHandler struct {
	spaces *service.SpaceService
}

func NewSpaceHandler(spaces *service.SpaceService) *SpaceHandler {
	return &SpaceHandler{spaces: spaces}
}

// GET /api/spaces
func (h *SpaceHandler) List(c *gin.Context) {
	spaces, err := h.spaces.GetSpaces(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if spaces == nil {
		spaces = []model.Space{}
	}
	c.JSON(http.StatusOK, spaces)
}

// POST /api/spaces
func (h *SpaceHandler) Create(c *gin.Context) {
	var req model.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	sp, err := h.spaces.CreateSpace(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

// POST /api/spaces/join  body: {"code":"..."}
func (h *SpaceHandler) Join(c *gin.Context) {
	var req model.JoinSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	sp, err := h.spaces.JoinSpace(c.Request.Context(), req.Code, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

// DELETE /api/spaces/:id
func (h *SpaceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.spaces.DeleteSpace(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// POST /api/spaces/:id/leave
func (h *SpaceHandler) Leave(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.spaces.LeaveSpace(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// GET /api/spaces/:id/members
func (h *SpaceHandler) Members(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	members, err := h.spaces.GetMembers(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// PUT /api/spaces/:id/members/:uid  body: {"role":"admin"}
func (h *SpaceHandler) SetRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	uid, ok := paramID(c, "uid")
	if !ok {
		return
	}
	var req model.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.spaces.SetMemberRole(c.Request.Context(), middleware.UserID(c), id, uid, req.Role); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// DELETE /api/spaces/:id/members/:uid
func (h *SpaceHandler) RemoveMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	uid, ok := paramID(c, "uid")
	if !ok {
		return
	}
	if err := h.spaces.RemoveMember(c.Request.Context(), middleware.UserID(c), id, uid); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

// GET /api/memberships?space_ids=1,2,3
func (h *SpaceHandler) Memberships(c *gin.Context) {
	var ids []int64
	for _, part := range strings.Split(c.Query("space_ids"), ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			badRequest(c, "invalid space_ids")
			return
		}
		ids = append(ids, id)
	}
	rows, err := h.spaces.GetMemberships(c.Request.Context(), middleware.UserID(c), ids)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []model.SpaceMember{}
	}
	c.JSON(http.StatusOK, rows)
}

// GET /api/spaces/:id/lists
func (h *SpaceHandler) Lists(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lists, err := h.spaces.GetLists(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if lists == nil {
		lists = []model.List{}
	}
	c.JSON(http.StatusOK, lists)
}

// POST /api/spaces/:id/lists
func (h *SpaceHandler) CreateList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	list, err := h.spaces.CreateList(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// DELETE /api/lists/:id
func (h *SpaceHandler) DeleteList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.spaces.DeleteList(c.Request.Context(), middleware.UserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	writeOK(c)
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"taskflow/internal/logger"
	"taskflow/internal/model"

	"github.com/gin-gonic/gin"
)

var codeStatus = map[string]int{
	model.CodeNotFound:           http.StatusNotFound,
	model.CodeForbidden:          http.StatusForbidden,
	model.CodeConflict:           http.StatusConflict,
	model.CodeBlocked:            http.StatusUnprocessableEntity,
	model.CodeAlreadyMember:      http.StatusConflict,
	model.CodeTimerRunning:       http.StatusConflict,
	model.CodeTimerNotRunning:    http.StatusConflict,
	model.CodeEmailTaken:         http.StatusConflict,
	model.CodeInvalidCredentials: http.StatusUnauthorized,
	model.CodeOwnerCannotLeave:   http.StatusBadRequest,
	model.CodeInvalid:            http.StatusBadRequest,
	model.CodeAINotConfigured:    http.StatusServiceUnavailable,
}

// writeError maps a service error to a status code and a JSON body with error and code.
func writeError(c *gin.Context, err error) {
	code := model.CodeOf(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := gin.H{"error": err.Error(), "code": code}

	var conflict model.ConflictError
	var blocked model.BlockedError
	switch {
	case errors.As(err, &conflict):
		body["task_id"] = conflict.ID
		body["expected"] = conflict.Expected
		body["actual"] = conflict.Actual
	case errors.As(err, &blocked):
		body["task_id"] = blocked.TaskID
		body["blocked_by"] = blocked.BlockedBy
	}

	if status == http.StatusInternalServerError {
		logger.From(c.Request.Context()).Error("request failed", "path", c.FullPath(), "err", err)
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": model.CodeInvalid})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeOK(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }

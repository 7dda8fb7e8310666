package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskflow/internal/config"
	"taskflow/internal/model"
	"taskflow/internal/realtime"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type api struct {
	t *testing.T
	r *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db, err := service.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "handler-test"
	hub := realtime.NewHub()
	return &api{t: t, r: NewRouter(cfg, service.New(db, cfg, hub), hub)}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *api) register(name string) (string, model.Profile) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", model.RegisterRequest{
		Email: name + "@example.com", Password: "secret1", DisplayName: name,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[model.LoginResponse](a.t, w)
	return resp.Token, resp.User
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/me", "", nil).Code)

	token, user := a.register("ann")
	w := a.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID, decode[model.Profile](t, w).ID)
	assert.NotContains(t, w.Body.String(), "password")

	w = a.do(http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: "ann@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.CodeInvalidCredentials, decode[map[string]any](t, w)["code"])

	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/me", token, nil).Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner, _ := a.register("owner")
	member, _ := a.register("member")

	w := a.do(http.MethodPost, "/api/spaces", owner, model.CreateSpaceRequest{Name: "Launch"})
	require.Equal(t, http.StatusCreated, w.Code)
	space := decode[model.Space](t, w)

	w = a.do(http.MethodPost, "/api/spaces/join", member, model.JoinSpaceRequest{Code: space.JoinCode})
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodPost, "/api/spaces/join", member, model.JoinSpaceRequest{Code: space.JoinCode})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.CodeAlreadyMember, decode[map[string]any](t, w)["code"])

	w = a.do(http.MethodPost, "/api/tasks", owner, map[string]any{
		"space_id": space.ID, "title": "Q3 Report", "priority": "urgent", "due_date": "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[model.Task](t, w)

	w = a.do(http.MethodPost, "/api/tasks", owner, map[string]any{
		"space_id": space.ID, "title": "Follow-up", "blocked_by_id": first.ID, "description": "keep me",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[model.Task](t, w)

	w = a.do(http.MethodPut, fmt.Sprintf("/api/tasks/%d/status", second.ID), owner, model.StatusRequest{Status: model.StatusDone})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, model.CodeBlocked, body["code"])
	assert.EqualValues(t, first.ID, body["blocked_by"])

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", second.ID), owner, map[string]any{"title": "Follow-up v2"})
	require.Equal(t, http.StatusOK, w.Code)
	patched := decode[model.Task](t, w)
	assert.Equal(t, "keep me", patched.Description)
	require.NotNil(t, patched.BlockedByID)

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", second.ID), owner, map[string]any{"blocked_by_id": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[model.Task](t, w).BlockedByID)

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", second.ID), owner, map[string]any{"title": "stale", "version": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	body = decode[map[string]any](t, w)
	assert.Equal(t, model.CodeConflict, body["code"])
	assert.EqualValues(t, second.ID, body["task_id"])
	assert.EqualValues(t, 1, body["expected"])

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/tasks/%d", second.ID), owner, map[string]any{"blocked_by_id": second.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.CodeInvalid, decode[map[string]any](t, w)["code"])

	w = a.do(http.MethodPost, fmt.Sprintf("/api/tasks/%d/comments", first.ID), member, model.CommentRequest{Content: "on it"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/spaces/%d/tasks", space.ID), member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode[[]model.Task](t, w)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Q3 Report", tasks[0].Title)
	assert.Len(t, tasks[0].Comments, 1)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/spaces/%d/overview", space.ID), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["total"])

	outsider, _ := a.register("outsider")
	w = a.do(http.MethodGet, fmt.Sprintf("/api/spaces/%d/tasks", space.ID), outsider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", 9999), owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPersonalEndpoints(t *testing.T) {
	a := newAPI(t)
	token, _ := a.register("me")

	w := a.do(http.MethodPost, "/api/daily-tasks", token, map[string]any{"text": "standup"})
	require.Equal(t, http.StatusCreated, w.Code)
	d := decode[model.DailyTask](t, w)

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/daily-tasks/%d", d.ID), token, map[string]any{"priority": "urgent"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PriorityUrgent, decode[model.DailyTask](t, w).Priority)

	w = a.do(http.MethodPut, "/api/scratchpad", token, model.ScratchpadRequest{Content: "remember milk"})
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/api/scratchpad", token, nil)
	assert.Equal(t, "remember milk", decode[model.Scratchpad](t, w).Content)

	w = a.do(http.MethodDelete, fmt.Sprintf("/api/daily-tasks/%d", d.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/api/daily-tasks", token, nil)
	assert.Empty(t, decode[[]model.DailyTask](t, w))
}

func TestAIWithoutConfig(t *testing.T) {
	a := newAPI(t)
	token, _ := a.register("me")
	w := a.do(http.MethodPost, "/api/ai/generate-tasks", token, map[string]any{"prompt": "plan a launch"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, model.CodeAINotConfigured, decode[map[string]any](t, w)["code"])
}

func TestSetupRouter(t *testing.T) {
	r := NewSetupRouter(config.Default(), []string{"DB_HOST", "JWT_SECRET"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/spaces", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "JWT_SECRET")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/personal"
	"taskflow/internal/view"
	"taskflow/internal/workspace"
)

var (
	_ workspace.Gateway         = (*Session)(nil)
	_ personal.DailyRemote      = (*Session)(nil)
	_ personal.ScratchpadRemote = (*Session)(nil)
)

func (s *Session) Me(ctx context.Context) (*model.Profile, error) {
	return sendJSON[model.Profile](ctx, s, http.MethodGet, "/api/me", nil)
}

func (s *Session) GetAllEmployees(ctx context.Context) ([]model.Profile, error) {
	return getJSON[[]model.Profile](ctx, s, "/api/employees")
}

func (s *Session) GetPreferences(ctx context.Context) (*model.Preferences, error) {
	return sendJSON[model.Preferences](ctx, s, http.MethodGet, "/api/preferences", nil)
}

func (s *Session) SavePreferences(ctx context.Context, p model.Preferences) (*model.Preferences, error) {
	return sendJSON[model.Preferences](ctx, s, http.MethodPut, "/api/preferences", p)
}

func (s *Session) GetSpaces(ctx context.Context) ([]model.Space, error) {
	return getJSON[[]model.Space](ctx, s, "/api/spaces")
}

func (s *Session) CreateSpace(ctx context.Context, req model.CreateSpaceRequest) (*model.Space, error) {
	return sendJSON[model.Space](ctx, s, http.MethodPost, "/api/spaces", req)
}

func (s *Session) JoinSpace(ctx context.Context, code string) (*model.Space, error) {
	return sendJSON[model.Space](ctx, s, http.MethodPost, "/api/spaces/join", model.JoinSpaceRequest{Code: code})
}

func (s *Session) LeaveSpace(ctx context.Context, spaceID int64) error {
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/api/spaces/%d/leave", spaceID), nil, nil)
}

func (s *Session) GetMembers(ctx context.Context, spaceID int64) ([]model.MemberEntry, error) {
	return getJSON[[]model.MemberEntry](ctx, s, fmt.Sprintf("/api/spaces/%d/members", spaceID))
}

func (s *Session) GetMemberships(ctx context.Context, spaceIDs []int64) ([]model.SpaceMember, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	return getJSON[[]model.SpaceMember](ctx, s, "/api/memberships?space_ids="+queryIDs(spaceIDs))
}

func (s *Session) GetLists(ctx context.Context, spaceID int64) ([]model.List, error) {
	return getJSON[[]model.List](ctx, s, fmt.Sprintf("/api/spaces/%d/lists", spaceID))
}

func (s *Session) CreateList(ctx context.Context, spaceID int64, req model.CreateListRequest) (*model.List, error) {
	return sendJSON[model.List](ctx, s, http.MethodPost, fmt.Sprintf("/api/spaces/%d/lists", spaceID), req)
}

func (s *Session) GetTasks(ctx context.Context, spaceID int64) ([]model.Task, error) {
	return getJSON[[]model.Task](ctx, s, fmt.Sprintf("/api/spaces/%d/tasks", spaceID))
}

func (s *Session) GetOverview(ctx context.Context, spaceID int64) (*view.Summary, error) {
	return sendJSON[view.Summary](ctx, s, http.MethodGet, fmt.Sprintf("/api/spaces/%d/overview", spaceID), nil)
}

// UpsertTask inserts when p has no id and patches otherwise. Absent fields are not sent.
func (s *Session) UpsertTask(ctx context.Context, p model.TaskPatch) (*model.Task, error) {
	if p.ID == nil {
		return sendJSON[model.Task](ctx, s, http.MethodPost, "/api/tasks", p)
	}
	return sendJSON[model.Task](ctx, s, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", *p.ID), p)
}

func (s *Session) SetStatus(ctx context.Context, taskID int64, status model.Status) (*model.Task, error) {
	return sendJSON[model.Task](ctx, s, http.MethodPut, fmt.Sprintf("/api/tasks/%d/status", taskID), model.StatusRequest{Status: status})
}

func (s *Session) DeleteTask(ctx context.Context, taskID int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil, nil)
}

func (s *Session) AddComment(ctx context.Context, taskID int64, content string) (*model.Comment, error) {
	return sendJSON[model.Comment](ctx, s, http.MethodPost, fmt.Sprintf("/api/tasks/%d/comments", taskID), model.CommentRequest{Content: content})
}

// StartTimer and StopTimer are stamped with the server clock; at is only used locally.
func (s *Session) StartTimer(ctx context.Context, taskID int64, _ time.Time) (*model.Task, error) {
	return sendJSON[model.Task](ctx, s, http.MethodPost, fmt.Sprintf("/api/tasks/%d/timer/start", taskID), nil)
}

func (s *Session) StopTimer(ctx context.Context, taskID int64, _ time.Time) (*model.Task, error) {
	return sendJSON[model.Task](ctx, s, http.MethodPost, fmt.Sprintf("/api/tasks/%d/timer/stop", taskID), nil)
}

func (s *Session) StaleTimers(ctx context.Context, olderThan time.Duration) ([]model.Task, error) {
	path := "/api/timers/stale"
	if olderThan > 0 {
		path += "?older_than=" + olderThan.String()
	}
	return getJSON[[]model.Task](ctx, s, path)
}

func (s *Session) ListDailyTasks(ctx context.Context) ([]model.DailyTask, error) {
	return getJSON[[]model.DailyTask](ctx, s, "/api/daily-tasks")
}

func (s *Session) CreateDailyTask(ctx context.Context, d model.DailyTask) (*model.DailyTask, error) {
	return sendJSON[model.DailyTask](ctx, s, http.MethodPost, "/api/daily-tasks", d)
}

func (s *Session) UpdateDailyTask(ctx context.Context, id int64, p model.DailyTaskPatch) (*model.DailyTask, error) {
	return sendJSON[model.DailyTask](ctx, s, http.MethodPatch, fmt.Sprintf("/api/daily-tasks/%d", id), p)
}

func (s *Session) DeleteDailyTask(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, fmt.Sprintf("/api/daily-tasks/%d", id), nil, nil)
}

func (s *Session) GetScratchpad(ctx context.Context) (string, error) {
	p, err := sendJSON[model.Scratchpad](ctx, s, http.MethodGet, "/api/scratchpad", nil)
	if err != nil {
		return "", err
	}
	return p.Content, nil
}

func (s *Session) SaveScratchpad(ctx context.Context, content string) error {
	return s.do(ctx, http.MethodPut, "/api/scratchpad", model.ScratchpadRequest{Content: content}, nil)
}

func (s *Session) Notifications(ctx context.Context, unreadOnly bool) ([]model.Notification, error) {
	path := "/api/notifications"
	if unreadOnly {
		path += "?unread=1"
	}
	return getJSON[[]model.Notification](ctx, s, path)
}

func (s *Session) MarkRead(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", id), nil, nil)
}

func (s *Session) GenerateTasks(ctx context.Context, req model.GenerateTasksRequest) (*model.GenerateTasksResponse, error) {
	return sendJSON[model.GenerateTasksResponse](ctx, s, http.MethodPost, "/api/ai/generate-tasks", req)
}

func (s *Session) Summarize(ctx context.Context, spaceID int64) (string, error) {
	resp, err := sendJSON[model.SummarizeResponse](ctx, s, http.MethodPost, "/api/ai/summarize", model.SummarizeRequest{SpaceID: spaceID})
	if err != nil {
		return "", err
	}
	return resp.Summary, nil
}

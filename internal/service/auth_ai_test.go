package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taskflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Auth.Register(ctx, model.RegisterRequest{Email: "Ann@Example.com", Password: "secret1", DisplayName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", p.Email)
	assert.False(t, p.IsSuperAdmin)

	_, err = f.svc.Auth.Register(ctx, model.RegisterRequest{Email: "ann@example.com", Password: "secret2", DisplayName: "Ann 2"})
	assert.ErrorIs(t, err, model.ErrEmailTaken)

	_, err = f.svc.Auth.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	_, err = f.svc.Auth.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	user, err := f.svc.Auth.Login(ctx, " ANN@example.com", "secret1")
	require.NoError(t, err)

	token, err := f.svc.Auth.IssueToken(user, "")
	require.NoError(t, err)
	claims, err := f.svc.Auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.NotEmpty(t, claims.SessionID)

	f.svc.Auth.Logout(claims.SessionID, claims.ExpiresAt)
	_, err = f.svc.Auth.ParseToken(token)
	assert.Error(t, err)

	_, err = f.svc.Auth.ParseToken(token + "x")
	assert.Error(t, err)
}

func TestAuth_SuperAdminEmail(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.Auth.Register(context.Background(), model.RegisterRequest{Email: "root@example.com", Password: "secret1", DisplayName: "Root"})
	require.NoError(t, err)
	assert.True(t, p.IsSuperAdmin)
}

func completionServer(t *testing.T, reply string, status int, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAI_GenerateTasksParsesFencedJSON(t *testing.T) {
	var calls int32
	reply := "```json\n{\"tasks\":[{\"title\":\"Draft outline\",\"priority\":\"High\",\"due_in_days\":2,\"subtasks\":[\"intro\"]},{\"title\":\" \"}]}\n```"
	srv := completionServer(t, reply, http.StatusOK, &calls)
	ai := NewAIService(srv.URL, "key", "m", time.Second)

	drafts, err := ai.GenerateTasks(context.Background(), "write a paper")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Draft outline", drafts[0].Title)
	assert.Equal(t, model.PriorityHigh, drafts[0].Priority)

	p := DraftPatch(drafts[0], 9, model.Date{Year: 2025, Month: 1, Day: 30})
	assert.Equal(t, model.Date{Year: 2025, Month: 2, Day: 1}, *p.DueDate)
	require.Len(t, *p.Subtasks, 1)
}

func TestAI_NotConfiguredAndBreaker(t *testing.T) {
	_, err := NewAIService("", "", "m", 0).Generate(context.Background(), "hi", "")
	assert.ErrorIs(t, err, model.ErrAINotConfigured)

	var calls int32
	srv := completionServer(t, "", http.StatusInternalServerError, &calls)
	ai := NewAIService(srv.URL, "key", "m", time.Second)
	for i := 0; i < 5; i++ {
		_, err := ai.Generate(context.Background(), "hi", "")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCreateDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", false)
	sp := f.space(t, owner, "Plans")

	created, err := f.svc.CreateDrafts(ctx, owner, sp.ID, []model.TaskDraft{
		{Title: "One", Priority: model.PriorityLow, Subtasks: []string{"a", "b"}},
		{Title: "Two", Priority: model.PriorityUrgent, DueInDays: 3},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Len(t, created[0].Subtasks, 2)
	assert.Equal(t, model.Today().AddDays(3), created[1].DueDate)
}

package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/handler"
	"taskflow/internal/model"
	"taskflow/internal/personal"
	"taskflow/internal/realtime"
	"taskflow/internal/service"
	"taskflow/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func newServer(t *testing.T) string {
	t.Helper()
	db, err := service.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "client-test"
	hub := realtime.NewHub()
	srv := httptest.NewServer(handler.NewRouter(cfg, service.New(db, cfg, hub), hub))
	t.Cleanup(srv.Close)
	return srv.URL
}

func register(t *testing.T, base, name string) *Session {
	t.Helper()
	s, err := Register(context.Background(), base, model.RegisterRequest{
		Email: name + "@example.com", Password: "secret1", DisplayName: name,
	})
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func TestSessionLifecycle(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	s := register(t, base, "ann")
	assert.NotEmpty(t, s.Token())
	assert.Equal(t, "ann", s.User().DisplayName)

	_, err := Login(ctx, base, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	again, err := Login(ctx, base, "ann@example.com", "secret1")
	require.NoError(t, err)
	resumed, err := Resume(ctx, base, again.Token())
	require.NoError(t, err)
	assert.Equal(t, s.User().ID, resumed.User().ID)

	require.NoError(t, again.Logout(ctx))
	_, err = Resume(ctx, base, resumed.Token())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestErrorsKeepTheirType(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	owner := register(t, base, "owner")

	sp, err := owner.CreateSpace(ctx, model.CreateSpaceRequest{Name: "Launch"})
	require.NoError(t, err)
	first, err := owner.UpsertTask(ctx, model.TaskPatch{SpaceID: &sp.ID, Title: ptr("first")})
	require.NoError(t, err)
	second, err := owner.UpsertTask(ctx, model.TaskPatch{SpaceID: &sp.ID, Title: ptr("second"), BlockedByID: model.Some(first.ID)})
	require.NoError(t, err)

	_, err = owner.SetStatus(ctx, second.ID, model.StatusDone)
	require.Error(t, err)
	var blocked model.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, first.ID, blocked.BlockedBy)

	_, err = owner.UpsertTask(ctx, model.TaskPatch{ID: &second.ID, Title: ptr("stale"), Version: ptr(second.Version + 5)})
	var conflict model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, second.ID, conflict.ID)
	assert.Equal(t, second.Version+5, conflict.Expected)

	assert.True(t, model.IsNotFound(owner.DeleteTask(ctx, 9999)))

	outsider := register(t, base, "outsider")
	_, err = outsider.GetTasks(ctx, sp.ID)
	assert.True(t, model.IsForbidden(err))

	_, err = owner.JoinSpace(ctx, sp.JoinCode)
	assert.ErrorIs(t, err, model.ErrAlreadyMember)
}

func TestControllerOverHTTP(t *testing.T) {
	base := newServer(t)
	ctx := context.Background()
	owner := register(t, base, "owner")
	member := register(t, base, "member")

	sp, err := owner.CreateSpace(ctx, model.CreateSpaceRequest{Name: "Marketing Team"})
	require.NoError(t, err)

	ctl := workspace.New(member, member.User())
	require.NoError(t, ctl.Init(ctx))
	assert.Empty(t, ctl.State().Spaces)

	joined, err := ctl.JoinSpace(ctx, " "+sp.JoinCode[:3]+"-"+sp.JoinCode[3:]+" ")
	require.NoError(t, err)
	assert.Equal(t, sp.ID, joined.ID)

	route, err := ctl.Navigate(ctx, "/marketing-team/board")
	require.NoError(t, err)
	assert.Equal(t, sp.ID, route.SpaceID)
	assert.Equal(t, model.RoleMember, ctl.Role(sp.ID))

	created, err := ctl.CreateTask(ctx, model.TaskPatch{Title: ptr("Q3 Report"), Priority: ptr(model.PriorityUrgent)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusTodo, created.Status)

	moved, err := ctl.UpdateStatus(ctx, created.ID, model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, moved.Status)

	// a concurrent edit from the owner makes the member's copy stale
	_, err = owner.UpsertTask(ctx, model.TaskPatch{ID: &created.ID, Title: ptr("Q3 Report v2")})
	require.NoError(t, err)
	_, err = ctl.UpdateTask(ctx, model.TaskPatch{ID: &created.ID, Description: ptr("mine"), Version: &moved.Version})
	require.Error(t, err)
	assert.True(t, model.IsConflict(err))
	tasks := ctl.VisibleTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Q3 Report v2", tasks[0].Title)

	require.NoError(t, ctl.DeleteTask(ctx, created.ID))
	remote, err := owner.GetTasks(ctx, sp.ID)
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestPersonalStoresOverHTTP(t *testing.T) {
	base := newServer(t)
	s := register(t, base, "me")

	daily := personal.NewDailyTasks(s, personal.NewMemoryCache(), "daily")
	require.NoError(t, daily.Load(context.Background()))
	item, err := daily.Add("inbox zero", model.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, daily.SetStatus(item.ID, model.StatusDone))
	require.NoError(t, daily.Close())

	rows, err := s.ListDailyTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StatusDone, rows[0].Status)

	pad := personal.NewScratchpad(s, personal.NewMemoryCache(), "pad", time.Hour)
	require.NoError(t, pad.Load(context.Background()))
	require.NoError(t, pad.Set("buy milk"))
	require.NoError(t, pad.Close())
	text, err := s.GetScratchpad(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "buy milk", text)
}

func TestWatchNotifications(t *testing.T) {
	base := newServer(t)
	owner := register(t, base, "owner")
	member := register(t, base, "member")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sp, err := owner.CreateSpace(ctx, model.CreateSpaceRequest{Name: "Ops"})
	require.NoError(t, err)
	_, err = member.JoinSpace(ctx, sp.JoinCode)
	require.NoError(t, err)

	got := make(chan model.Notification, 4)
	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- member.WatchNotifications(watchCtx, func(n model.Notification) { got <- n }) }()

	// the feed only sees notifications published after the subscription exists
	require.Eventually(t, func() bool {
		_, err := owner.UpsertTask(ctx, model.TaskPatch{SpaceID: &sp.ID, Title: ptr("Rotate keys"), AssigneeID: model.Some(member.User().ID)})
		assert.NoError(t, err)
		select {
		case n := <-got:
			assert.Equal(t, model.NotifyTaskAssigned, n.Kind)
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 4*time.Second, 10*time.Millisecond)

	stop()
	assert.NoError(t, <-done)
}

package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu          sync.Mutex
	employees   []model.Profile
	spaces      []model.Space
	lists       map[int64][]model.List
	memberships []model.SpaceMember
	tasks       map[int64]model.Task
	nextID      int64

	failNext  error
	calls     []string
	joinSpace *model.Space
}

func newFake() *fakeGateway {
	return &fakeGateway{lists: map[int64][]model.List{}, tasks: map[int64]model.Task{}, nextID: 100}
}

func (f *fakeGateway) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeGateway) GetAllEmployees(context.Context) ([]model.Profile, error) {
	return f.employees, f.record("employees")
}

func (f *fakeGateway) GetSpaces(context.Context) ([]model.Space, error) {
	return f.spaces, f.record("spaces")
}

func (f *fakeGateway) GetLists(_ context.Context, spaceID int64) ([]model.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[spaceID], nil
}

func (f *fakeGateway) GetMemberships(context.Context, []int64) ([]model.SpaceMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memberships, nil
}

func (f *fakeGateway) GetTasks(_ context.Context, spaceID int64) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if t.SpaceID == spaceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeGateway) UpsertTask(_ context.Context, p model.TaskPatch) (*model.Task, error) {
	if err := f.record("upsert"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var t model.Task
	if p.ID != nil {
		t = f.tasks[*p.ID]
	} else {
		f.nextID++
		t = model.Task{ID: f.nextID, Status: model.StatusTodo, Priority: model.PriorityMedium}
	}
	p.Apply(&t)
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.Version++
	f.tasks[t.ID] = t
	return &t, nil
}

func (f *fakeGateway) SetStatus(_ context.Context, id int64, status model.Status) (*model.Task, error) {
	if err := f.record("status"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.Status = status
	t.Version++
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeGateway) DeleteTask(_ context.Context, id int64) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeGateway) AddComment(_ context.Context, id int64, content string) (*model.Comment, error) {
	if err := f.record("comment"); err != nil {
		return nil, err
	}
	return &model.Comment{ID: 7, TaskID: id, Content: content}, nil
}

func (f *fakeGateway) StartTimer(_ context.Context, id int64, at time.Time) (*model.Task, error) {
	if err := f.record("start"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.TimerStartTime = &at
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeGateway) StopTimer(_ context.Context, id int64, at time.Time) (*model.Task, error) {
	if err := f.record("stop"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.TimeLogs = append(t.TimeLogs, model.TimeLog{ID: 1, TaskID: id, StartTime: *t.TimerStartTime, EndTime: at,
		DurationMs: at.Sub(*t.TimerStartTime).Milliseconds()})
	t.TimerStartTime = nil
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeGateway) JoinSpace(context.Context, string) (*model.Space, error) {
	if err := f.record("join"); err != nil {
		return nil, err
	}
	return f.joinSpace, nil
}

func (f *fakeGateway) CreateSpace(_ context.Context, req model.CreateSpaceRequest) (*model.Space, error) {
	if err := f.record("create-space"); err != nil {
		return nil, err
	}
	return &model.Space{ID: 50, Name: req.Name, OwnerID: 1}, nil
}

var clock = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func fixture(t *testing.T, user model.Profile) (*Controller, *fakeGateway) {
	t.Helper()
	f := newFake()
	f.employees = []model.Profile{{ID: 1, DisplayName: "Owner"}, {ID: 2, DisplayName: "Member"}}
	f.spaces = []model.Space{
		{ID: 10, Name: "Marketing Team", OwnerID: 1},
		{ID: 11, Name: "Ops", OwnerID: 1},
	}
	f.memberships = []model.SpaceMember{{SpaceID: 10, UserID: 2, Role: model.RoleMember}}
	f.tasks[1] = model.Task{ID: 1, SpaceID: 10, Title: "Draft brief", Status: model.StatusTodo, Version: 1}
	f.tasks[2] = model.Task{ID: 2, SpaceID: 10, Title: "Publish", Status: model.StatusTodo, BlockedByID: ptr(int64(1)), Version: 1}
	f.tasks[3] = model.Task{ID: 3, SpaceID: 11, Title: "Rotate keys", Status: model.StatusInProgress, Version: 1}

	c := New(f, user).WithClock(func() time.Time { return clock })
	require.NoError(t, c.Init(context.Background()))
	return c, f
}

func ptr[T any](v T) *T { return &v }

func TestInitLoadsEverySpace(t *testing.T) {
	c, _ := fixture(t, model.Profile{ID: 2})
	st := c.State()
	assert.True(t, st.Loaded)
	assert.Len(t, st.Spaces, 2)
	assert.Len(t, st.AllTasks, 3)
	assert.Empty(t, st.CurrentTasks)
	assert.Equal(t, "/", c.Path())
}

func TestNavigateBySlugAndID(t *testing.T) {
	c, _ := fixture(t, model.Profile{ID: 2})
	ctx := context.Background()

	r, err := c.Navigate(ctx, "/marketing-team/calendar")
	require.NoError(t, err)
	assert.Equal(t, Route{SpaceID: 10, View: ViewTimeline}, r)
	assert.Len(t, c.State().CurrentTasks, 2)
	assert.Equal(t, "/marketing-team/calendar", c.Path())

	c.SetListFilter(ptr(int64(5)))
	_, err = c.Navigate(ctx, "/11")
	require.NoError(t, err)
	st := c.State()
	assert.Nil(t, st.ListFilter)
	require.Len(t, st.CurrentTasks, 1)
	assert.Equal(t, "Rotate keys", st.CurrentTasks[0].Title)
	assert.Equal(t, "/ops/board", c.Path())

	r, err = c.Navigate(ctx, "/nowhere/board")
	require.NoError(t, err)
	assert.Equal(t, Route{View: ViewHome}, r)
}

func TestRoles(t *testing.T) {
	c, _ := fixture(t, model.Profile{ID: 2})
	assert.Equal(t, model.RoleMember, c.Role(10))
	assert.True(t, c.CanEdit(model.Task{SpaceID: 10}))
	assert.False(t, c.CanEdit(model.Task{SpaceID: 10, AssigneeID: ptr(int64(1)), CreatorID: 1}))

	admin, _ := fixture(t, model.Profile{ID: 9, IsSuperAdmin: true})
	assert.Equal(t, model.RoleAdmin, admin.Role(10))
	assert.Equal(t, model.RoleAdmin, admin.Role(999))

	owner, _ := fixture(t, model.Profile{ID: 1})
	assert.Equal(t, model.RoleAdmin, owner.Role(11))
}

func TestBlockedStatusChangeIsRefusedLocally(t *testing.T) {
	c, f := fixture(t, model.Profile{ID: 1})
	ctx := context.Background()
	_, err := c.Navigate(ctx, "/10")
	require.NoError(t, err)

	_, err = c.UpdateStatus(ctx, 2, model.StatusDone)
	require.Error(t, err)
	assert.True(t, model.IsBlocked(err))
	assert.NotContains(t, f.calls, "status")
	toasts := c.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastError, toasts[0].Kind)
	assert.Empty(t, c.Toasts())

	_, err = c.UpdateStatus(ctx, 1, model.StatusDone)
	require.NoError(t, err)
	got, err := c.UpdateStatus(ctx, 2, model.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestFailedMutationReverts(t *testing.T) {
	c, f := fixture(t, model.Profile{ID: 1})
	ctx := context.Background()
	_, err := c.Navigate(ctx, "/10")
	require.NoError(t, err)

	f.failNext = errors.New("network down")
	_, err = c.UpdateTask(ctx, model.TaskPatch{ID: ptr(int64(1)), Title: ptr("Renamed")})
	require.Error(t, err)
	for _, tk := range c.State().CurrentTasks {
		if tk.ID == 1 {
			assert.Equal(t, "Draft brief", tk.Title)
		}
	}
	assert.Len(t, c.Toasts(), 1)

	f.failNext = errors.New("network down")
	require.Error(t, c.DeleteTask(ctx, 1))
	st := c.State()
	assert.Len(t, st.CurrentTasks, 2)
	for _, tk := range st.AllTasks {
		if tk.ID == 2 {
			require.NotNil(t, tk.BlockedByID)
			assert.EqualValues(t, 1, *tk.BlockedByID)
		}
	}
}

func TestDeleteUnblocksDependentsLocally(t *testing.T) {
	c, _ := fixture(t, model.Profile{ID: 1})
	ctx := context.Background()
	_, err := c.Navigate(ctx, "/10")
	require.NoError(t, err)

	require.NoError(t, c.DeleteTask(ctx, 1))
	st := c.State()
	require.Len(t, st.CurrentTasks, 1)
	assert.Nil(t, st.CurrentTasks[0].BlockedByID)
}

func TestCreateTaskSwapsTemporaryRow(t *testing.T) {
	c, f := fixture(t, model.Profile{ID: 1})
	ctx := context.Background()
	_, err := c.Navigate(ctx, "/10/list")
	require.NoError(t, err)

	got, err := c.CreateTask(ctx, model.TaskPatch{Title: ptr("New one")})
	require.NoError(t, err)
	assert.Positive(t, got.ID)
	assert.EqualValues(t, 10, got.SpaceID)

	st := c.State()
	assert.Len(t, st.CurrentTasks, 3)
	for _, tk := range st.AllTasks {
		assert.Positive(t, tk.ID)
	}

	f.failNext = errors.New("boom")
	_, err = c.CreateTask(ctx, model.TaskPatch{Title: ptr("Lost")})
	require.Error(t, err)
	assert.Len(t, c.State().CurrentTasks, 3)
}

func TestCreateTaskWithoutSpace(t *testing.T) {
	c, f := fixture(t, model.Profile{ID: 1})
	_, err := c.CreateTask(context.Background(), model.TaskPatch{Title: ptr("Orphan")})
	assert.ErrorIs(t, err, model.ErrSpaceRequired)
	assert.NotContains(t, f.calls, "upsert")
}

func TestToggleTimerAndStaleTimers(t *testing.T) {
	c, _ := fixture(t, model.Profile{ID: 1})
	ctx := context.Background()
	_, err := c.Navigate(ctx, "/10")
	require.NoError(t, err)

	got, err := c.ToggleTimer(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.TimerStartTime)

	assert.Empty(t, c.StaleTimers(clock.Add(time.Hour), 8*time.Hour))
	stale := c.StaleTimers(clock.Add(9*time.Hour), 8*time.Hour)
	require.Len(t, stale, 1)
	assert.EqualValues(t, 1, stale[0].ID)

	c.WithClock(func() time.Time { return clock.Add(90 * time.Second) })
	got, err = c.ToggleTimer(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.TimerStartTime)
	require.Len(t, got.TimeLogs, 1)
	assert.EqualValues(t, 90000, got.TimeLogs[0].DurationMs)
}

func TestAddComment(t *testing.T) {
	c, _ := fixture(t, model.Profile{ID: 1})
	ctx := context.Background()
	_, err := c.Navigate(ctx, "/10")
	require.NoError(t, err)

	_, err = c.AddComment(ctx, 1, "looks good")
	require.NoError(t, err)
	for _, tk := range c.State().CurrentTasks {
		if tk.ID == 1 {
			require.Len(t, tk.Comments, 1)
			assert.EqualValues(t, 7, tk.Comments[0].ID)
		}
	}
}

func TestJoinAndCreateSpace(t *testing.T) {
	c, f := fixture(t, model.Profile{ID: 2})
	ctx := context.Background()

	f.joinSpace = &model.Space{ID: 11, Name: "Ops", OwnerID: 1}
	f.failNext = model.ErrAlreadyMember
	_, err := c.JoinSpace(ctx, "abc123")
	assert.ErrorIs(t, err, model.ErrAlreadyMember)
	toasts := c.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastInfo, toasts[0].Kind)

	sp, err := c.CreateSpace(ctx, model.CreateSpaceRequest{Name: "Design"})
	require.NoError(t, err)
	assert.NotNil(t, sp)
	assert.Len(t, c.State().Spaces, 3)

	_, err = c.Navigate(ctx, "/design")
	require.NoError(t, err)
	assert.EqualValues(t, 50, c.ActiveSpace().ID)
}

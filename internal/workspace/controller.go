// Package workspace holds the client-side state of one signed-in user: which space is active, what
// the user may see and do there, and the optimistic task mutations that keep it in step with the server.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/view"

	"golang.org/x/sync/errgroup"
)

// Gateway is the remote data source, already bound to the signed-in user.
type Gateway interface {
	GetAllEmployees(ctx context.Context) ([]model.Profile, error)
	GetSpaces(ctx context.Context) ([]model.Space, error)
	GetLists(ctx context.Context, spaceID int64) ([]model.List, error)
	GetMemberships(ctx context.Context, spaceIDs []int64) ([]model.SpaceMember, error)
	GetTasks(ctx context.Context, spaceID int64) ([]model.Task, error)
	UpsertTask(ctx context.Context, p model.TaskPatch) (*model.Task, error)
	SetStatus(ctx context.Context, taskID int64, status model.Status) (*model.Task, error)
	DeleteTask(ctx context.Context, taskID int64) error
	AddComment(ctx context.Context, taskID int64, content string) (*model.Comment, error)
	StartTimer(ctx context.Context, taskID int64, at time.Time) (*model.Task, error)
	StopTimer(ctx context.Context, taskID int64, at time.Time) (*model.Task, error)
	JoinSpace(ctx context.Context, code string) (*model.Space, error)
	CreateSpace(ctx context.Context, req model.CreateSpaceRequest) (*model.Space, error)
}

type ToastKind string

const (
	ToastError ToastKind = "error"
	ToastInfo  ToastKind = "info"
)

type Toast struct {
	Kind    ToastKind
	Message string
	At      time.Time
}

// State is a snapshot of the controller. Slices are copies.
type State struct {
	User         model.Profile
	Employees    []model.Profile
	Spaces       []model.Space
	Lists        map[int64][]model.List
	Memberships  []model.SpaceMember
	AllTasks     []model.Task
	CurrentTasks []model.Task
	Route        Route
	ListFilter   *int64
	Loaded       bool
}

type Controller struct {
	gw  Gateway
	now func() time.Time

	mu       sync.Mutex
	st       State
	toasts   []Toast
	nextTemp int64
}

func New(gw Gateway, user model.Profile) *Controller {
	return &Controller{
		gw:  gw,
		now: time.Now,
		st:  State{User: user, Lists: map[int64][]model.List{}, Route: Route{View: ViewHome}},
	}
}

// WithClock replaces the clock used for timers and completion stamps.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Init loads employees and spaces, then lists, memberships and every space's tasks.
func (c *Controller) Init(ctx context.Context) error {
	var employees []model.Profile
	var spaces []model.Space
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = c.gw.GetAllEmployees(gctx)
		return err
	})
	g.Go(func() (err error) {
		spaces, err = c.gw.GetSpaces(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return c.fail("load workspace", err)
	}

	lists := make(map[int64][]model.List, len(spaces))
	var memberships []model.SpaceMember
	var allTasks []model.Task
	if len(spaces) > 0 {
		ids := make([]int64, len(spaces))
		for i := range spaces {
			ids[i] = spaces[i].ID
		}
		var mu sync.Mutex
		tasksBySpace := make(map[int64][]model.Task, len(spaces))
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range ids {
			g.Go(func() error {
				l, err := c.gw.GetLists(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				lists[id] = l
				mu.Unlock()
				return nil
			})
			g.Go(func() error {
				t, err := c.gw.GetTasks(gctx, id)
				if err != nil {
					return err
				}
				mu.Lock()
				tasksBySpace[id] = t
				mu.Unlock()
				return nil
			})
		}
		g.Go(func() (err error) {
			memberships, err = c.gw.GetMemberships(gctx, ids)
			return err
		})
		if err := g.Wait(); err != nil {
			return c.fail("load workspace", err)
		}
		for _, id := range ids {
			allTasks = append(allTasks, tasksBySpace[id]...)
		}
	}

	c.mu.Lock()
	c.st.Employees = employees
	c.st.Spaces = spaces
	c.st.Lists = lists
	c.st.Memberships = memberships
	c.st.AllTasks = allTasks
	c.st.Loaded = true
	if c.st.Route.SpaceID != 0 && findSpace(spaces, c.st.Route.SpaceID) == nil {
		c.st.Route = Route{View: ViewHome}
		c.st.CurrentTasks = nil
	}
	c.mu.Unlock()
	logger.Debug("workspace.init", "spaces", len(spaces), "tasks", len(allTasks))
	return nil
}

// Navigate resolves path and, when the active space changes, loads that space's tasks and resets
// the list filter.
func (c *Controller) Navigate(ctx context.Context, path string) (Route, error) {
	c.mu.Lock()
	route := ParseRoute(path, c.st.Spaces)
	changed := route.SpaceID != c.st.Route.SpaceID
	c.st.Route = route
	if changed {
		c.st.ListFilter = nil
		c.st.CurrentTasks = nil
	}
	c.mu.Unlock()

	if changed && route.SpaceID != 0 {
		if err := c.loadCurrent(ctx, route.SpaceID); err != nil {
			return route, err
		}
	}
	return route, nil
}

func (c *Controller) loadCurrent(ctx context.Context, spaceID int64) error {
	tasks, err := c.gw.GetTasks(ctx, spaceID)
	if err != nil {
		return c.fail("load tasks", err)
	}
	c.mu.Lock()
	if c.st.Route.SpaceID == spaceID {
		c.st.CurrentTasks = tasks
	}
	c.mu.Unlock()
	return nil
}

// Reload refetches one space's tasks into both slices.
func (c *Controller) Reload(ctx context.Context, spaceID int64) error {
	tasks, err := c.gw.GetTasks(ctx, spaceID)
	if err != nil {
		return c.fail("reload tasks", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.st.AllTasks[:0:0]
	for _, t := range c.st.AllTasks {
		if t.SpaceID != spaceID {
			kept = append(kept, t)
		}
	}
	c.st.AllTasks = append(kept, tasks...)
	if c.st.Route.SpaceID == spaceID {
		c.st.CurrentTasks = append([]model.Task(nil), tasks...)
	}
	return nil
}

// Path renders the current route.
func (c *Controller) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Route.Path(c.st.Spaces)
}

func (c *Controller) ActiveSpace() *model.Space {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sp := findSpace(c.st.Spaces, c.st.Route.SpaceID); sp != nil {
		cp := *sp
		return &cp
	}
	return nil
}

// Role is the signed-in user's role in spaceID.
func (c *Controller) Role(spaceID int64) model.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roleLocked(spaceID)
}

func (c *Controller) roleLocked(spaceID int64) model.Role {
	sp := findSpace(c.st.Spaces, spaceID)
	if sp == nil {
		if c.st.User.IsSuperAdmin {
			return model.RoleAdmin
		}
		return model.RoleMember
	}
	return model.ResolveRole(&c.st.User, sp, c.st.Memberships)
}

func (c *Controller) CanEdit(t model.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CanEditTask(c.st.User.ID, c.roleLocked(t.SpaceID), &t)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.Employees = append([]model.Profile(nil), c.st.Employees...)
	st.Spaces = append([]model.Space(nil), c.st.Spaces...)
	st.Memberships = append([]model.SpaceMember(nil), c.st.Memberships...)
	st.AllTasks = cloneTasks(c.st.AllTasks)
	st.CurrentTasks = cloneTasks(c.st.CurrentTasks)
	st.Lists = make(map[int64][]model.List, len(c.st.Lists))
	for k, v := range c.st.Lists {
		st.Lists[k] = append([]model.List(nil), v...)
	}
	if c.st.ListFilter != nil {
		id := *c.st.ListFilter
		st.ListFilter = &id
	}
	return st
}

func (c *Controller) SetListFilter(listID *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if listID == nil {
		c.st.ListFilter = nil
		return
	}
	id := *listID
	c.st.ListFilter = &id
}

// VisibleTasks is the active space's tasks with the list filter applied.
func (c *Controller) VisibleTasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return view.FilterByList(cloneTasks(c.st.CurrentTasks), c.st.ListFilter)
}

// Toasts drains the pending notifications.
func (c *Controller) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.toasts
	c.toasts = nil
	return out
}

func (c *Controller) pushToast(kind ToastKind, msg string) {
	c.mu.Lock()
	c.toasts = append(c.toasts, Toast{Kind: kind, Message: msg, At: c.now()})
	c.mu.Unlock()
}

// fail logs err, queues an error toast and returns err wrapped with action.
func (c *Controller) fail(action string, err error) error {
	logger.Warn("workspace."+action+" failed", "err", err)
	c.pushToast(ToastError, fmt.Sprintf("Could not %s: %v", action, err))
	return fmt.Errorf("%s: %w", action, err)
}

// StaleTimers lists tasks whose timer has been running longer than maxAge at now.
func (c *Controller) StaleTimers(now time.Time, maxAge time.Duration) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[int64]bool{}
	var out []model.Task
	for _, slice := range [][]model.Task{c.st.AllTasks, c.st.CurrentTasks} {
		for _, t := range slice {
			if seen[t.ID] || t.TimerStartTime == nil {
				continue
			}
			seen[t.ID] = true
			if now.Sub(*t.TimerStartTime) > maxAge {
				out = append(out, cloneTask(t))
			}
		}
	}
	return out
}

// findTaskLocked returns a copy of the task with id from either slice.
func (c *Controller) findTaskLocked(id int64) (model.Task, bool) {
	for _, slice := range [][]model.Task{c.st.CurrentTasks, c.st.AllTasks} {
		if i := indexOf(slice, id); i >= 0 {
			return cloneTask(slice[i]), true
		}
	}
	return model.Task{}, false
}

// mutate applies local to the task in both slices, runs remote and merges its result. On failure
// the previous copies are restored, a toast is queued and a conflict reloads the space.
func (c *Controller) mutate(ctx context.Context, action string, taskID int64, local func(*model.Task), remote func() (*model.Task, error)) (*model.Task, error) {
	c.mu.Lock()
	prev, ok := c.findTaskLocked(taskID)
	if !ok {
		c.mu.Unlock()
		return nil, model.NotFoundError{Kind: "task", ID: fmt.Sprint(taskID)}
	}
	c.applyLocked(taskID, local)
	c.mu.Unlock()

	got, err := remote()
	if err != nil {
		c.mu.Lock()
		c.replaceLocked(prev)
		c.mu.Unlock()
		err = c.fail(action, err)
		if model.IsConflict(err) {
			c.Reload(ctx, prev.SpaceID)
		}
		return nil, err
	}
	c.mu.Lock()
	c.mergeLocked(*got)
	c.mu.Unlock()
	return got, nil
}

func (c *Controller) applyLocked(id int64, fn func(*model.Task)) {
	for _, slice := range [][]model.Task{c.st.CurrentTasks, c.st.AllTasks} {
		if i := indexOf(slice, id); i >= 0 {
			fn(&slice[i])
		}
	}
}

func (c *Controller) replaceLocked(t model.Task) {
	for _, slice := range [][]model.Task{c.st.CurrentTasks, c.st.AllTasks} {
		if i := indexOf(slice, t.ID); i >= 0 {
			slice[i] = cloneTask(t)
		}
	}
}

// mergeLocked writes the authoritative row into every slice that should hold it.
func (c *Controller) mergeLocked(t model.Task) {
	if i := indexOf(c.st.AllTasks, t.ID); i >= 0 {
		c.st.AllTasks[i] = cloneTask(t)
	} else if findSpace(c.st.Spaces, t.SpaceID) != nil {
		c.st.AllTasks = append(c.st.AllTasks, cloneTask(t))
	}
	if i := indexOf(c.st.CurrentTasks, t.ID); i >= 0 {
		if t.SpaceID == c.st.Route.SpaceID {
			c.st.CurrentTasks[i] = cloneTask(t)
		} else {
			c.st.CurrentTasks = append(c.st.CurrentTasks[:i:i], c.st.CurrentTasks[i+1:]...)
		}
	} else if t.SpaceID == c.st.Route.SpaceID && c.st.Route.SpaceID != 0 {
		c.st.CurrentTasks = append(c.st.CurrentTasks, cloneTask(t))
	}
}

func (c *Controller) removeLocked(id int64) {
	c.st.AllTasks = without(c.st.AllTasks, id)
	c.st.CurrentTasks = without(c.st.CurrentTasks, id)
}

// UpdateStatus is the quick status change. A task whose blocker is not done is refused before any
// state changes.
func (c *Controller) UpdateStatus(ctx context.Context, taskID int64, status model.Status) (*model.Task, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	c.mu.Lock()
	t, ok := c.findTaskLocked(taskID)
	var blocker *model.Task
	if ok && t.BlockedByID != nil {
		if b, found := c.findTaskLocked(*t.BlockedByID); found {
			blocker = &b
		}
	}
	c.mu.Unlock()
	if ok {
		if err := model.CanChangeStatus(&t, blocker); err != nil {
			c.pushToast(ToastError, fmt.Sprintf("%q is blocked by %q", t.Title, blocker.Title))
			return nil, err
		}
	}

	now := c.now()
	return c.mutate(ctx, "update status", taskID,
		func(t *model.Task) { model.ApplyStatus(t, status, now) },
		func() (*model.Task, error) { return c.gw.SetStatus(ctx, taskID, status) })
}

// UpdateTask patches an existing task.
func (c *Controller) UpdateTask(ctx context.Context, p model.TaskPatch) (*model.Task, error) {
	if p.ID == nil {
		return nil, errors.New("update task: missing id")
	}
	now := c.now()
	return c.mutate(ctx, "update task", *p.ID,
		func(t *model.Task) {
			p.Apply(t)
			if p.Status != nil {
				model.ApplyStatus(t, *p.Status, now)
			}
		},
		func() (*model.Task, error) { return c.gw.UpsertTask(ctx, p) })
}

// CreateTask inserts a task into the active space unless p names one. A temporary row with a
// negative id is shown until the server answers.
func (c *Controller) CreateTask(ctx context.Context, p model.TaskPatch) (*model.Task, error) {
	c.mu.Lock()
	if p.SpaceID == nil && c.st.Route.SpaceID != 0 {
		id := c.st.Route.SpaceID
		p.SpaceID = &id
	}
	if p.SpaceID == nil {
		c.mu.Unlock()
		return nil, c.fail("create task", model.ErrSpaceRequired)
	}
	c.nextTemp--
	temp := model.Task{
		ID:        c.nextTemp,
		CreatorID: c.st.User.ID,
		Status:    model.StatusTodo,
		Priority:  model.PriorityMedium,
		DueDate:   model.DateOf(c.now()),
		CreatedAt: c.now(),
		Version:   1,
	}
	p.Apply(&temp)
	if p.Status != nil {
		model.ApplyStatus(&temp, *p.Status, c.now())
	}
	c.mergeLocked(temp)
	c.mu.Unlock()

	got, err := c.gw.UpsertTask(ctx, p)
	c.mu.Lock()
	c.removeLocked(temp.ID)
	if err == nil {
		c.mergeLocked(*got)
	}
	c.mu.Unlock()
	if err != nil {
		return nil, c.fail("create task", err)
	}
	return got, nil
}

func (c *Controller) DeleteTask(ctx context.Context, taskID int64) error {
	c.mu.Lock()
	prevAll, prevCur := cloneTasks(c.st.AllTasks), cloneTasks(c.st.CurrentTasks)
	if _, ok := c.findTaskLocked(taskID); !ok {
		c.mu.Unlock()
		return model.NotFoundError{Kind: "task", ID: fmt.Sprint(taskID)}
	}
	c.removeLocked(taskID)
	for _, slice := range [][]model.Task{c.st.AllTasks, c.st.CurrentTasks} {
		for i := range slice {
			if slice[i].BlockedByID != nil && *slice[i].BlockedByID == taskID {
				slice[i].BlockedByID = nil
			}
		}
	}
	c.mu.Unlock()

	if err := c.gw.DeleteTask(ctx, taskID); err != nil {
		c.mu.Lock()
		c.st.AllTasks = mergeBack(c.st.AllTasks, prevAll, taskID)
		c.st.CurrentTasks = mergeBack(c.st.CurrentTasks, prevCur, taskID)
		c.mu.Unlock()
		return c.fail("delete task", err)
	}
	return nil
}

// mergeBack restores the deleted task and its dependents' blocker links from prev, keeping any
// other change made to cur in the meantime.
func mergeBack(cur, prev []model.Task, deleted int64) []model.Task {
	out := make([]model.Task, 0, len(prev))
	for _, p := range prev {
		if p.ID == deleted {
			out = append(out, p)
			continue
		}
		i := indexOf(cur, p.ID)
		if i < 0 {
			continue
		}
		t := cur[i]
		if p.BlockedByID != nil && *p.BlockedByID == deleted && t.BlockedByID == nil {
			t.BlockedByID = p.BlockedByID
		}
		out = append(out, t)
	}
	for _, t := range cur {
		if indexOf(out, t.ID) < 0 {
			out = append(out, t)
		}
	}
	return out
}

// ToggleTimer starts a stopped timer or stops a running one.
func (c *Controller) ToggleTimer(ctx context.Context, taskID int64) (*model.Task, error) {
	c.mu.Lock()
	t, ok := c.findTaskLocked(taskID)
	userID := c.st.User.ID
	c.mu.Unlock()
	if !ok {
		return nil, model.NotFoundError{Kind: "task", ID: fmt.Sprint(taskID)}
	}
	now := c.now()
	if t.TimerRunning() {
		start := *t.TimerStartTime
		return c.mutate(ctx, "stop timer", taskID,
			func(t *model.Task) {
				t.TimeLogs = append(t.TimeLogs, model.TimeLog{
					TaskID: taskID, UserID: userID, StartTime: start, EndTime: now,
					DurationMs: max(now.Sub(start).Milliseconds(), 0),
				})
				t.TimerStartTime = nil
			},
			func() (*model.Task, error) { return c.gw.StopTimer(ctx, taskID, now) })
	}
	return c.mutate(ctx, "start timer", taskID,
		func(t *model.Task) { t.TimerStartTime = &now },
		func() (*model.Task, error) { return c.gw.StartTimer(ctx, taskID, now) })
}

func (c *Controller) AddComment(ctx context.Context, taskID int64, content string) (*model.Comment, error) {
	c.mu.Lock()
	prev, ok := c.findTaskLocked(taskID)
	if !ok {
		c.mu.Unlock()
		return nil, model.NotFoundError{Kind: "task", ID: fmt.Sprint(taskID)}
	}
	c.nextTemp--
	temp := model.Comment{ID: c.nextTemp, TaskID: taskID, AuthorID: c.st.User.ID, Content: content, CreatedAt: c.now()}
	c.applyLocked(taskID, func(t *model.Task) { t.Comments = append(t.Comments, temp) })
	c.mu.Unlock()

	got, err := c.gw.AddComment(ctx, taskID, content)
	c.mu.Lock()
	if err != nil {
		c.replaceLocked(prev)
	} else {
		c.applyLocked(taskID, func(t *model.Task) {
			for i := range t.Comments {
				if t.Comments[i].ID == temp.ID {
					t.Comments[i] = *got
				}
			}
		})
	}
	c.mu.Unlock()
	if err != nil {
		return nil, c.fail("add comment", err)
	}
	return got, nil
}

func (c *Controller) JoinSpace(ctx context.Context, code string) (*model.Space, error) {
	sp, err := c.gw.JoinSpace(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyMember) {
			c.pushToast(ToastInfo, "You are already a member of this space")
			return nil, err
		}
		return nil, c.fail("join space", err)
	}
	if err := c.adoptSpace(ctx, *sp); err != nil {
		return sp, err
	}
	c.pushToast(ToastInfo, fmt.Sprintf("Joined %s", sp.Name))
	return sp, nil
}

func (c *Controller) CreateSpace(ctx context.Context, req model.CreateSpaceRequest) (*model.Space, error) {
	sp, err := c.gw.CreateSpace(ctx, req)
	if err != nil {
		return nil, c.fail("create space", err)
	}
	if err := c.adoptSpace(ctx, *sp); err != nil {
		return sp, err
	}
	return sp, nil
}

// adoptSpace adds a newly reachable space with its lists, memberships and tasks.
func (c *Controller) adoptSpace(ctx context.Context, sp model.Space) error {
	var lists []model.List
	var rows []model.SpaceMember
	var tasks []model.Task
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { lists, err = c.gw.GetLists(gctx, sp.ID); return err })
	g.Go(func() (err error) { rows, err = c.gw.GetMemberships(gctx, []int64{sp.ID}); return err })
	g.Go(func() (err error) { tasks, err = c.gw.GetTasks(gctx, sp.ID); return err })
	loadErr := g.Wait()

	c.mu.Lock()
	if findSpace(c.st.Spaces, sp.ID) == nil {
		c.st.Spaces = append(c.st.Spaces, sp)
	}
	if loadErr == nil {
		c.st.Lists[sp.ID] = lists
		kept := c.st.Memberships[:0:0]
		for _, m := range c.st.Memberships {
			if m.SpaceID != sp.ID {
				kept = append(kept, m)
			}
		}
		c.st.Memberships = append(kept, rows...)
		for _, t := range tasks {
			c.mergeLocked(t)
		}
	}
	c.mu.Unlock()
	if loadErr != nil {
		return c.fail("load space", loadErr)
	}
	return nil
}

func findSpace(spaces []model.Space, id int64) *model.Space {
	if id == 0 {
		return nil
	}
	for i := range spaces {
		if spaces[i].ID == id {
			return &spaces[i]
		}
	}
	return nil
}

func indexOf(tasks []model.Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func without(tasks []model.Task, id int64) []model.Task {
	if i := indexOf(tasks, id); i >= 0 {
		return append(tasks[:i:i], tasks[i+1:]...)
	}
	return tasks
}

func cloneTasks(tasks []model.Task) []model.Task {
	if tasks == nil {
		return nil
	}
	out := make([]model.Task, len(tasks))
	for i := range tasks {
		out[i] = cloneTask(tasks[i])
	}
	return out
}

func cloneTask(t model.Task) model.Task {
	t.Tags = append([]string(nil), t.Tags...)
	t.Subtasks = append([]model.Subtask(nil), t.Subtasks...)
	t.Comments = append([]model.Comment(nil), t.Comments...)
	t.TimeLogs = append([]model.TimeLog(nil), t.TimeLogs...)
	t.ListID = clonePtr(t.ListID)
	t.AssigneeID = clonePtr(t.AssigneeID)
	t.BlockedByID = clonePtr(t.BlockedByID)
	t.TimerStartTime = clonePtr(t.TimerStartTime)
	t.CompletedAt = clonePtr(t.CompletedAt)
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

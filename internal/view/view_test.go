package view

import (
	"testing"
	"time"

	"taskflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) model.Date { return model.Date{Year: y, Month: m, Day: day} }

func id(v int64) *int64 { return &v }

func TestBoard_ColumnsAndOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Status: model.StatusTodo, Priority: model.PriorityLow, DueDate: d(2025, 3, 1)},
		{ID: 2, Status: model.StatusTodo, Priority: model.PriorityUrgent, DueDate: d(2025, 3, 9)},
		{ID: 3, Status: model.StatusDone, Priority: model.PriorityHigh},
		{ID: 4, Status: model.StatusTodo, Priority: model.PriorityUrgent, DueDate: d(2025, 3, 2)},
	}
	cols := Board(tasks)
	require.Len(t, cols, 3)
	assert.Equal(t, model.StatusTodo, cols[0].Status)
	var ids []int64
	for _, task := range cols[0].Tasks {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []int64{4, 2, 1}, ids)
	assert.Empty(t, cols[1].Tasks)
	assert.Len(t, cols[2].Tasks, 1)
}

func TestLists_GroupsAndFilter(t *testing.T) {
	lists := []model.List{{ID: 10, Name: "Backlog"}, {ID: 11, Name: "Sprint"}}
	tasks := []model.Task{
		{ID: 1, ListID: id(10)},
		{ID: 2, ListID: id(11)},
		{ID: 3},
		{ID: 4, ListID: id(99)},
	}
	groups := Lists(tasks, lists, nil)
	require.Len(t, groups, 3)
	assert.Equal(t, "Backlog", groups[0].List.Name)
	assert.Nil(t, groups[2].List)
	assert.Len(t, groups[2].Tasks, 2)

	only := Lists(tasks, lists, id(11))
	require.Len(t, only, 1)
	assert.Equal(t, int64(2), only[0].Tasks[0].ID)

	assert.Len(t, FilterByList(tasks, id(10)), 1)
	assert.Len(t, FilterByList(tasks, nil), 4)
}

func TestCalendar_Weeks(t *testing.T) {
	tasks := []model.Task{{ID: 1, DueDate: d(2025, 3, 1)}, {ID: 2, DueDate: d(2025, 4, 1)}}

	// March 2025 starts on a Saturday.
	m := Calendar(tasks, 2025, time.March, false)
	require.Len(t, m.Weeks, 6)
	assert.Equal(t, d(2025, 2, 23), m.Weeks[0][0].Date)
	assert.False(t, m.Weeks[0][0].InMonth)
	assert.Equal(t, d(2025, 3, 1), m.Weeks[0][6].Date)
	assert.Len(t, m.Weeks[0][6].Tasks, 1)
	assert.Len(t, m.Weeks[5][2].Tasks, 1, "April 1st shows in the trailing week")

	mon := Calendar(tasks, 2025, time.March, true)
	assert.Equal(t, time.Monday, mon.Weeks[0][0].Date.In(time.UTC).Weekday())
	assert.Len(t, mon.Weeks, 6)
}

func TestGantt_Bars(t *testing.T) {
	today := d(2025, 3, 10)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bars := Gantt([]model.Task{
		{ID: 2, CreatedAt: created, DueDate: d(2025, 3, 5), Status: model.StatusTodo},
		{ID: 1, CreatedAt: created, DueDate: d(2025, 2, 1), Status: model.StatusDone},
	}, today)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1), bars[0].TaskID)
	assert.Equal(t, 1, bars[0].Days)
	assert.False(t, bars[0].Overdue)
	assert.Equal(t, 5, bars[1].Days)
	assert.True(t, bars[1].Overdue)
}

func TestOverview_Counts(t *testing.T) {
	today := d(2025, 3, 10)
	members := []model.Profile{{ID: 1, DisplayName: "Ann"}, {ID: 2, DisplayName: "Bo"}}
	tasks := []model.Task{
		{ID: 1, AssigneeID: id(1), Status: model.StatusDone, TimeLogs: []model.TimeLog{{DurationMs: 1000}}},
		{ID: 2, AssigneeID: id(1), Status: model.StatusInProgress, DueDate: d(2025, 3, 1)},
		{ID: 3, Status: model.StatusTodo, BlockedByID: id(2)},
	}
	s := Overview(tasks, members, today)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Done)
	assert.Equal(t, 2, s.Open)
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 1, s.Blocked)
	assert.Equal(t, 1, s.Unassigned)
	assert.Equal(t, int64(1000), s.LoggedMs)
	require.Len(t, s.Members, 2)
	assert.Equal(t, MemberLoad{UserID: 1, Name: "Ann", InProgress: 1, Done: 1, Overdue: 1, LoggedMs: 1000}, s.Members[0])
	assert.Equal(t, MemberLoad{UserID: 2, Name: "Bo"}, s.Members[1])
}

func TestDirectory_Roles(t *testing.T) {
	space := &model.Space{ID: 5, OwnerID: 3}
	employees := []model.Profile{
		{ID: 1, DisplayName: "Zed"},
		{ID: 2, DisplayName: "Amy"},
		{ID: 3, DisplayName: "Owner"},
		{ID: 4, DisplayName: "Outsider"},
	}
	rows := []model.SpaceMember{
		{SpaceID: 5, UserID: 1, Role: model.RoleAdmin},
		{SpaceID: 5, UserID: 2, Role: model.RoleMember},
		{SpaceID: 6, UserID: 4, Role: model.RoleAdmin},
	}
	dir := Directory(employees, rows, space)
	require.Len(t, dir, 3)
	assert.True(t, dir[0].IsOwner)
	assert.Equal(t, model.RoleAdmin, dir[0].Role)
	assert.Equal(t, "Amy", dir[1].DisplayName)
	assert.Equal(t, model.RoleMember, dir[1].Role)
	assert.Equal(t, model.RoleAdmin, dir[2].Role)
}

func TestTotalLogged_IncludesRunningTimer(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	task := model.Task{TimeLogs: []model.TimeLog{{DurationMs: 60000}}, TimerStartTime: &start}
	assert.Equal(t, 2*time.Minute, TotalLogged(task, start.Add(time.Minute)))
}

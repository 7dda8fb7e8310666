package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatus_StampsAndClearsCompletedAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	task := &Task{Status: StatusTodo}

	ApplyStatus(task, StatusInProgress, now)
	assert.Nil(t, task.CompletedAt)

	ApplyStatus(task, StatusDone, now)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	ApplyStatus(task, StatusTodo, now.Add(time.Hour))
	assert.Equal(t, StatusTodo, task.Status)
	assert.Nil(t, task.CompletedAt, "leaving done clears completed_at")
}

func TestCanChangeStatus(t *testing.T) {
	blockerID := int64(7)
	task := &Task{ID: 8, BlockedByID: &blockerID}

	err := CanChangeStatus(task, &Task{ID: 7, Status: StatusInProgress})
	var be BlockedError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, int64(7), be.BlockedBy)

	assert.NoError(t, CanChangeStatus(task, &Task{ID: 7, Status: StatusDone}))
	assert.NoError(t, CanChangeStatus(&Task{ID: 9}, nil))
	assert.NoError(t, CanChangeStatus(task, nil), "a deleted blocker no longer blocks")
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Marketing Team":      "marketing-team",
		"  Q3 -- Launch!! ":   "q3-launch",
		"R&D / Platform 2025": "r-d-platform-2025",
		"already-slugged":     "already-slugged",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestNormalizeJoinCode(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizeJoinCode(" abc-123 "))
	assert.Equal(t, "XY7Q2K", NormalizeJoinCode("xy7\tq2-k"))
}

func TestResolveRole(t *testing.T) {
	space := &Space{ID: 1, OwnerID: 10}
	rows := []SpaceMember{
		{SpaceID: 1, UserID: 20, Role: RoleAdmin},
		{SpaceID: 1, UserID: 30, Role: RoleMember},
		{SpaceID: 2, UserID: 40, Role: RoleAdmin},
	}

	assert.Equal(t, RoleAdmin, ResolveRole(&Profile{ID: 10}, space, nil), "owner")
	assert.Equal(t, RoleAdmin, ResolveRole(&Profile{ID: 20}, space, rows))
	assert.Equal(t, RoleMember, ResolveRole(&Profile{ID: 30}, space, rows))
	assert.Equal(t, RoleMember, ResolveRole(&Profile{ID: 40}, space, rows), "admin elsewhere only")
	assert.Equal(t, RoleMember, ResolveRole(&Profile{ID: 50}, space, rows), "no row defaults to member")

	super := &Profile{ID: 99, IsSuperAdmin: true}
	assert.Equal(t, RoleAdmin, ResolveRole(super, space, rows))
	assert.Equal(t, RoleAdmin, ResolveRole(super, &Space{ID: 77, OwnerID: 1}, nil), "never joined")
}

func TestCanEditTask(t *testing.T) {
	alice, bob := int64(1), int64(2)
	assigned := &Task{AssigneeID: &alice, CreatorID: 3}

	assert.True(t, CanEditTask(alice, RoleMember, assigned))
	assert.False(t, CanEditTask(bob, RoleMember, assigned))
	assert.True(t, CanEditTask(bob, RoleAdmin, assigned))
	assert.True(t, CanEditTask(3, RoleMember, assigned), "creator")
	assert.True(t, CanEditTask(bob, RoleMember, &Task{}), "unassigned")
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"In Progress", "in-progress", "IN_PROGRESS", "inprogress"} {
		s, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, StatusInProgress, s)
	}
	_, err := ParseStatus("blocked")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDate_JSONAndScan(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01"`), &d))
	assert.Equal(t, Date{2025, time.March, 1}, d)

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01T23:30:00-08:00"`), &d))
	assert.Equal(t, "2025-03-01", d.String(), "the date part of a timestamp is kept as written")

	out, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	require.NoError(t, d.Scan(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-12-31", d.String())
	require.NoError(t, d.Scan([]byte("2024-02-29")))
	assert.Equal(t, "2024-02-29", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", v)

	assert.Equal(t, "2025-01-01", Date{2024, time.December, 31}.AddDays(1).String())
}

func TestTaskPatch_JSONDistinguishesAbsentAndNull(t *testing.T) {
	var p TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"id":4,"assignee_id":null,"list_id":3}`), &p))
	assert.True(t, p.AssigneeID.Set)
	assert.False(t, p.AssigneeID.Valid)
	assert.True(t, p.ListID.Valid)
	assert.Equal(t, int64(3), p.ListID.Value)
	assert.False(t, p.BlockedByID.Set)
	assert.Nil(t, p.Title)

	out, err := json.Marshal(TaskPatch{AssigneeID: Null[int64]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"assignee_id":null}`, string(out))
}

func TestTaskPatch_ApplyLeavesAbsentFields(t *testing.T) {
	a := int64(5)
	task := &Task{Title: "Keep", Description: "old", AssigneeID: &a, Tags: []string{"x"}}
	desc := "new"
	TaskPatch{Description: &desc}.Apply(task)

	assert.Equal(t, "Keep", task.Title)
	assert.Equal(t, "new", task.Description)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, []string{"x"}, task.Tags)

	TaskPatch{AssigneeID: Null[int64]()}.Apply(task)
	assert.Nil(t, task.AssigneeID)
}

func TestTask_TotalLoggedAndOverdue(t *testing.T) {
	task := &Task{
		Status:   StatusTodo,
		DueDate:  Date{2025, time.March, 1},
		TimeLogs: []TimeLog{{DurationMs: 90000}, {DurationMs: 30000}},
	}
	assert.Equal(t, 2*time.Minute, task.TotalLogged())
	assert.True(t, task.Overdue(Date{2025, time.March, 2}))
	assert.False(t, task.Overdue(Date{2025, time.March, 1}))
	task.Status = StatusDone
	assert.False(t, task.Overdue(Date{2025, time.March, 2}))
}

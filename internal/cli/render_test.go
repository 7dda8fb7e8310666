package cli

import (
	"bytes"
	"testing"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/view"

	"github.com/stretchr/testify/assert"
)

func sample() []model.Task {
	assignee := int64(2)
	blocker := int64(1)
	return []model.Task{
		{ID: 1, Title: "Draft brief", Status: model.StatusDone, Priority: model.PriorityHigh,
			DueDate: model.Date{Year: 2025, Month: 3, Day: 3}, CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Title: "Publish", Status: model.StatusTodo, Priority: model.PriorityUrgent, AssigneeID: &assignee,
			BlockedByID: &blocker, DueDate: model.Date{Year: 2025, Month: 3, Day: 5}, CreatedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
}

func TestBoardShowsEveryColumn(t *testing.T) {
	var buf bytes.Buffer
	today := model.Date{Year: 2025, Month: 3, Day: 10}
	Board(&buf, view.Board(sample()), Names{2: "Bea"}, today, 120)
	out := buf.String()
	for _, want := range []string{"To Do (1)", "Done (1)", "#2 Publish", "Bea", "blocked by #1"} {
		assert.Contains(t, out, want)
	}
}

func TestCalendarMarksDays(t *testing.T) {
	var buf bytes.Buffer
	m := view.Calendar(sample(), 2025, time.March, true)
	Calendar(&buf, m, model.Date{Year: 2025, Month: 3, Day: 10}, true)
	out := buf.String()
	assert.Contains(t, out, "March 2025")
	assert.Contains(t, out, "Draft bri")
	assert.Contains(t, out, "Mon")
}

func TestTablesAndGantt(t *testing.T) {
	var buf bytes.Buffer
	Tasks(&buf, sample(), Names{2: "Bea"})
	assert.Contains(t, buf.String(), "Publish")
	assert.Contains(t, buf.String(), "unassigned")

	buf.Reset()
	Gantt(&buf, view.Gantt(sample(), model.Date{Year: 2025, Month: 3, Day: 10}), 40)
	assert.Contains(t, buf.String(), "2025-03-02 → 2025-03-05")

	buf.Reset()
	Gantt(&buf, nil, 40)
	assert.Contains(t, buf.String(), "no tasks")

	buf.Reset()
	Daily(&buf, []model.DailyTask{{ID: 4, Text: "standup", Status: model.StatusDone, Priority: model.PriorityLow}})
	assert.Contains(t, buf.String(), "[x]")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

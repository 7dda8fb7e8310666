// Package view derives presentation-ready structures from workspace state. Every function is pure.
package view

import (
	"sort"
	"time"

	"taskflow/internal/model"
)

type Column struct {
	Status model.Status `json:"status"`
	Label  string       `json:"label"`
	Tasks  []model.Task `json:"tasks"`
}

// Board groups tasks into one column per status, most urgent first, then by due date.
func Board(tasks []model.Task) []Column {
	cols := make([]Column, len(model.Statuses))
	index := make(map[model.Status]int, len(model.Statuses))
	for i, s := range model.Statuses {
		cols[i] = Column{Status: s, Label: s.Label(), Tasks: []model.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			i = 0
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	for i := range cols {
		sortByUrgency(cols[i].Tasks)
	}
	return cols
}

func sortByUrgency(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return lessDue(a, b)
	})
}

// lessDue orders by due date with undated tasks last, then by id.
func lessDue(a, b model.Task) bool {
	switch {
	case a.DueDate.IsZero() != b.DueDate.IsZero():
		return b.DueDate.IsZero()
	case a.DueDate != b.DueDate:
		return a.DueDate.Before(b.DueDate)
	}
	return a.ID < b.ID
}

// FilterByList keeps the tasks of listID; a nil listID keeps everything.
func FilterByList(tasks []model.Task, listID *int64) []model.Task {
	if listID == nil {
		return tasks
	}
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ListID != nil && *t.ListID == *listID {
			out = append(out, t)
		}
	}
	return out
}

type ListGroup struct {
	List  *model.List  `json:"list"`
	Tasks []model.Task `json:"tasks"`
}

// Lists groups tasks by list in list order, with a trailing group for tasks without a list.
// With filter set only that list's group is returned.
func Lists(tasks []model.Task, lists []model.List, filter *int64) []ListGroup {
	byList := map[int64][]model.Task{}
	var loose []model.Task
	known := map[int64]bool{}
	for _, l := range lists {
		known[l.ID] = true
	}
	for _, t := range tasks {
		if t.ListID != nil && known[*t.ListID] {
			byList[*t.ListID] = append(byList[*t.ListID], t)
		} else {
			loose = append(loose, t)
		}
	}

	var out []ListGroup
	for i := range lists {
		l := lists[i]
		if filter != nil && l.ID != *filter {
			continue
		}
		group := byList[l.ID]
		sort.SliceStable(group, func(i, j int) bool { return lessDue(group[i], group[j]) })
		out = append(out, ListGroup{List: &l, Tasks: nonNil(group)})
	}
	if filter == nil && len(loose) > 0 {
		sort.SliceStable(loose, func(i, j int) bool { return lessDue(loose[i], loose[j]) })
		out = append(out, ListGroup{Tasks: loose})
	}
	return out
}

func nonNil(tasks []model.Task) []model.Task {
	if tasks == nil {
		return []model.Task{}
	}
	return tasks
}

type Day struct {
	Date    model.Date   `json:"date"`
	InMonth bool         `json:"in_month"`
	Tasks   []model.Task `json:"tasks"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][]Day    `json:"weeks"`
}

// Calendar lays out the weeks covering year/month, each day holding the tasks due on it.
func Calendar(tasks []model.Task, year int, month time.Month, weekStartsMonday bool) Month {
	due := map[model.Date][]model.Task{}
	for _, t := range tasks {
		if !t.DueDate.IsZero() {
			due[t.DueDate] = append(due[t.DueDate], t)
		}
	}

	firstDay := model.Date{Year: year, Month: month, Day: 1}
	offset := int(firstDay.In(time.UTC).Weekday())
	if weekStartsMonday {
		offset = (offset + 6) % 7
	}
	cursor := firstDay.AddDays(-offset)
	lastDay := model.DateOf(firstDay.In(time.UTC).AddDate(0, 1, -1))

	out := Month{Year: year, Month: month}
	for !cursor.After(lastDay) {
		week := make([]Day, 7)
		for i := range week {
			week[i] = Day{Date: cursor, InMonth: cursor.Month == month && cursor.Year == year, Tasks: nonNil(due[cursor])}
			sortByUrgency(week[i].Tasks)
			cursor = cursor.AddDays(1)
		}
		out.Weeks = append(out.Weeks, week)
	}
	return out
}

type Bar struct {
	TaskID    int64        `json:"task_id"`
	Title     string       `json:"title"`
	Status    model.Status `json:"status"`
	Start     model.Date   `json:"start"`
	End       model.Date   `json:"end"`
	Days      int          `json:"days"`
	Overdue   bool         `json:"overdue"`
	BlockedBy *int64       `json:"blocked_by,omitempty"`
}

// Gantt draws one bar per task from its creation date to its due date.
func Gantt(tasks []model.Task, today model.Date) []Bar {
	bars := make([]Bar, 0, len(tasks))
	for _, t := range tasks {
		start := model.DateOf(t.CreatedAt)
		if t.CreatedAt.IsZero() {
			start = today
		}
		end := t.DueDate
		if end.IsZero() || end.Before(start) {
			end = start
		}
		days := int(end.In(time.UTC).Sub(start.In(time.UTC)).Hours()/24) + 1
		bars = append(bars, Bar{
			TaskID:    t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Start:     start,
			End:       end,
			Days:      days,
			Overdue:   t.Overdue(today),
			BlockedBy: t.BlockedByID,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Start != bars[j].Start {
			return bars[i].Start.Before(bars[j].Start)
		}
		return bars[i].TaskID < bars[j].TaskID
	})
	return bars
}

type MemberLoad struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	Open       int    `json:"open"`
	InProgress int    `json:"in_progress"`
	Done       int    `json:"done"`
	Overdue    int    `json:"overdue"`
	LoggedMs   int64  `json:"logged_ms"`
}

type Summary struct {
	Total      int          `json:"total"`
	Open       int          `json:"open"`
	Done       int          `json:"done"`
	Overdue    int          `json:"overdue"`
	Blocked    int          `json:"blocked"`
	Unassigned int          `json:"unassigned"`
	LoggedMs   int64        `json:"logged_ms"`
	Members    []MemberLoad `json:"members"`
}

// Overview counts work per assignee. Members without tasks still get a zero row.
func Overview(tasks []model.Task, members []model.Profile, today model.Date) Summary {
	loads := make(map[int64]*MemberLoad, len(members))
	order := make([]int64, 0, len(members))
	for _, m := range members {
		loads[m.ID] = &MemberLoad{UserID: m.ID, Name: m.DisplayName}
		order = append(order, m.ID)
	}

	done := map[int64]bool{}
	for _, t := range tasks {
		done[t.ID] = t.Status == model.StatusDone
	}

	var s Summary
	for _, t := range tasks {
		s.Total++
		logged := t.TotalLogged().Milliseconds()
		s.LoggedMs += logged
		overdue := t.Overdue(today)
		if t.Status == model.StatusDone {
			s.Done++
		} else {
			s.Open++
		}
		if overdue {
			s.Overdue++
		}
		if t.BlockedByID != nil && !done[*t.BlockedByID] && t.Status != model.StatusDone {
			s.Blocked++
		}
		if t.AssigneeID == nil {
			s.Unassigned++
			continue
		}
		l, ok := loads[*t.AssigneeID]
		if !ok {
			l = &MemberLoad{UserID: *t.AssigneeID}
			loads[*t.AssigneeID] = l
			order = append(order, *t.AssigneeID)
		}
		switch t.Status {
		case model.StatusDone:
			l.Done++
		case model.StatusInProgress:
			l.InProgress++
		default:
			l.Open++
		}
		if overdue {
			l.Overdue++
		}
		l.LoggedMs += logged
	}
	s.Members = make([]MemberLoad, 0, len(order))
	for _, id := range order {
		s.Members = append(s.Members, *loads[id])
	}
	return s
}

// Directory lists the members of space with their resolved roles, owner first.
func Directory(employees []model.Profile, memberships []model.SpaceMember, space *model.Space) []model.MemberEntry {
	if space == nil {
		return nil
	}
	in := map[int64]bool{space.OwnerID: true}
	for _, m := range memberships {
		if m.SpaceID == space.ID {
			in[m.UserID] = true
		}
	}
	var out []model.MemberEntry
	for i := range employees {
		e := employees[i]
		if !in[e.ID] {
			continue
		}
		out = append(out, model.MemberEntry{Profile: e, Role: model.ResolveRole(&e, space, memberships), IsOwner: e.ID == space.OwnerID})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsOwner != out[j].IsOwner {
			return out[i].IsOwner
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// TotalLogged is the logged time of t plus the running stretch of its timer at now.
func TotalLogged(t model.Task, now time.Time) time.Duration {
	d := t.TotalLogged()
	if t.TimerStartTime != nil && now.After(*t.TimerStartTime) {
		d += now.Sub(*t.TimerStartTime)
	}
	return d
}

// Package cli renders workspace views for the terminal.
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/view"

	"github.com/charmbracelet/lipgloss"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted  = ac("240", "243")
	colorBorder = ac("250", "240")
	colorAccent = ac("#2563eb", "#60a5fa")
	colorDanger = ac("#b91c1c", "#f87171")

	priorityColor = map[model.Priority]lipgloss.TerminalColor{
		model.PriorityUrgent: colorDanger,
		model.PriorityHigh:   ac("#c2410c", "#fb923c"),
		model.PriorityMedium: colorAccent,
		model.PriorityLow:    colorMuted,
	}

	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	dangerStyle = lipgloss.NewStyle().Foreground(colorDanger)
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	dayStyle = lipgloss.NewStyle().Width(12).Height(3).Padding(0, 1)
)

// Names resolves user ids to display names for rendering.
type Names map[int64]string

func NamesOf(profiles []model.Profile) Names {
	n := make(Names, len(profiles))
	for _, p := range profiles {
		name := p.DisplayName
		if name == "" {
			name = p.Email
		}
		n[p.ID] = name
	}
	return n
}

func (n Names) of(id *int64) string {
	if id == nil {
		return "unassigned"
	}
	if name, ok := n[*id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}

func priorityTag(p model.Priority) string {
	c, ok := priorityColor[p]
	if !ok {
		c = colorMuted
	}
	return lipgloss.NewStyle().Foreground(c).Render(string(p))
}

func card(t model.Task, names Names, today model.Date, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(fmt.Sprintf("#%d %s", t.ID, t.Title), width)))
	b.WriteString("\n")
	meta := priorityTag(t.Priority) + " " + mutedStyle.Render(names.of(t.AssigneeID))
	if !t.DueDate.IsZero() {
		due := t.DueDate.String()
		if t.Overdue(today) {
			due = dangerStyle.Render(due)
		} else {
			due = mutedStyle.Render(due)
		}
		meta += " " + due
	}
	b.WriteString(meta)
	if t.BlockedByID != nil {
		b.WriteString("\n" + dangerStyle.Render(fmt.Sprintf("blocked by #%d", *t.BlockedByID)))
	}
	if t.TimerRunning() {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(colorAccent).Render("timer running"))
	}
	return b.String()
}

// Board prints one bordered column per status side by side.
func Board(w io.Writer, cols []view.Column, names Names, today model.Date, width int) {
	if width <= 0 {
		width = 120
	}
	colWidth := max(width/max(len(cols), 1)-4, 16)
	rendered := make([]string, len(cols))
	for i, c := range cols {
		parts := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", c.Label, len(c.Tasks)))}
		for _, t := range c.Tasks {
			parts = append(parts, "", card(t, names, today, colWidth))
		}
		rendered[i] = columnStyle.Width(colWidth).Render(strings.Join(parts, "\n"))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

// Calendar prints the month grid with the number of tasks due on each day.
func Calendar(w io.Writer, m view.Month, today model.Date, weekStartsMonday bool) {
	header := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekStartsMonday {
		header = append(header[1:], header[0])
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s %d", m.Month, m.Year)))
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = dayStyle.Height(1).Render(mutedStyle.Render(h))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cells...))

	for _, week := range m.Weeks {
		cells := make([]string, len(week))
		for i, d := range week {
			label := fmt.Sprint(d.Date.Day)
			style := dayStyle
			switch {
			case d.Date == today:
				label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(label)
			case !d.InMonth:
				label = mutedStyle.Render(label)
			}
			lines := []string{label}
			for j, t := range d.Tasks {
				if j == 2 {
					lines = append(lines, mutedStyle.Render(fmt.Sprintf("+%d more", len(d.Tasks)-2)))
					break
				}
				lines = append(lines, truncate(t.Title, 10))
			}
			cells[i] = style.Render(strings.Join(lines, "\n"))
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
}

// Lists prints list groups as aligned tables.
func Lists(w io.Writer, groups []view.ListGroup, names Names) {
	for _, g := range groups {
		name := "No list"
		if g.List != nil {
			name = g.List.Name
		}
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%d)", name, len(g.Tasks))))
		Tasks(w, g.Tasks, names)
		fmt.Fprintln(w)
	}
}

// Tasks prints a plain table of tasks.
func Tasks(w io.Writer, tasks []model.Task, names Names) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNEE\tDUE\tV")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			t.ID, truncate(t.Title, 40), t.Status.Label(), t.Priority, names.of(t.AssigneeID), t.DueDate, t.Version)
	}
	tw.Flush()
}

// Task prints one task with its subtasks, comments and logged time.
func Task(w io.Writer, t model.Task, names Names, now time.Time) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("#%d %s", t.ID, t.Title)))
	fmt.Fprintf(w, "%s · %s · %s · due %s · v%d\n",
		t.Status.Label(), priorityTag(t.Priority), names.of(t.AssigneeID), t.DueDate, t.Version)
	if t.Description != "" {
		fmt.Fprintln(w, lipgloss.NewStyle().Width(80).Render(t.Description))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("tags: "+strings.Join(t.Tags, ", ")))
	}
	if t.BlockedByID != nil {
		fmt.Fprintln(w, dangerStyle.Render(fmt.Sprintf("blocked by #%d", *t.BlockedByID)))
	}
	for _, s := range t.Subtasks {
		box := "[ ]"
		if s.Completed {
			box = "[x]"
		}
		fmt.Fprintf(w, "  %s %s\n", box, s.Title)
	}
	logged := view.TotalLogged(t, now).Round(time.Second)
	line := "logged " + logged.String()
	if t.TimerRunning() {
		line += " (running)"
	}
	fmt.Fprintln(w, mutedStyle.Render(line))
	for _, c := range t.Comments {
		fmt.Fprintf(w, "  %s %s: %s\n", mutedStyle.Render(c.CreatedAt.Format("01-02 15:04")), names[c.AuthorID], c.Content)
	}
}

// Gantt prints one bar per task scaled to the visible date range.
func Gantt(w io.Writer, bars []view.Bar, width int) {
	if len(bars) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no tasks"))
		return
	}
	if width <= 0 {
		width = 60
	}
	first, last := bars[0].Start, bars[0].End
	for _, b := range bars {
		if b.Start.Before(first) {
			first = b.Start
		}
		if b.End.After(last) {
			last = b.End
		}
	}
	span := int(last.In(time.UTC).Sub(first.In(time.UTC)).Hours()/24) + 1
	scale := float64(width) / float64(span)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range bars {
		offset := int(b.Start.In(time.UTC).Sub(first.In(time.UTC)).Hours() / 24 * scale)
		length := max(int(float64(b.Days)*scale), 1)
		bar := strings.Repeat("█", length)
		switch {
		case b.Overdue:
			bar = dangerStyle.Render(bar)
		case b.Status == model.StatusDone:
			bar = mutedStyle.Render(bar)
		default:
			bar = lipgloss.NewStyle().Foreground(colorAccent).Render(bar)
		}
		fmt.Fprintf(tw, "#%d %s\t%s → %s\t%s%s\n", b.TaskID, truncate(b.Title, 30), b.Start, b.End, strings.Repeat(" ", offset), bar)
	}
	tw.Flush()
}

// Overview prints the space summary and per-member workload.
func Overview(w io.Writer, s view.Summary) {
	fmt.Fprintln(w, titleStyle.Render("Overview"))
	fmt.Fprintf(w, "%d tasks · %d open · %d done · %s · %d blocked · %d unassigned · logged %s\n",
		s.Total, s.Open, s.Done, dangerStyle.Render(fmt.Sprintf("%d overdue", s.Overdue)), s.Blocked, s.Unassigned,
		(time.Duration(s.LoggedMs) * time.Millisecond).Round(time.Second))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tOPEN\tIN PROGRESS\tDONE\tOVERDUE\tLOGGED")
	for _, m := range s.Members {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", m.Name, m.Open, m.InProgress, m.Done, m.Overdue,
			(time.Duration(m.LoggedMs) * time.Millisecond).Round(time.Second))
	}
	tw.Flush()
}

// Members prints the member directory.
func Members(w io.Writer, entries []model.MemberEntry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	for _, e := range entries {
		role := string(e.Role)
		if e.IsOwner {
			role += " (owner)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.DisplayName, e.Email, role)
	}
	tw.Flush()
}

// Spaces prints the spaces with their join codes; active is marked.
func Spaces(w io.Writer, spaces []model.Space, active int64) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSLUG\tCODE\tMEMBERS")
	for _, sp := range spaces {
		mark := ""
		if sp.ID == active {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\n", mark, sp.ID, sp.Name, sp.Slug(), sp.JoinCode, len(sp.Members))
	}
	tw.Flush()
}

// Daily prints the personal daily task list.
func Daily(w io.Writer, items []model.DailyTask) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("nothing planned"))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range items {
		box := "[ ]"
		switch d.Status {
		case model.StatusDone:
			box = "[x]"
		case model.StatusInProgress:
			box = "[~]"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", box, d.ID, d.Text, priorityTag(d.Priority))
	}
	tw.Flush()
}

func Notification(w io.Writer, n model.Notification) {
	fmt.Fprintf(w, "%s %s %s\n", mutedStyle.Render(n.CreatedAt.Local().Format("15:04")),
		lipgloss.NewStyle().Foreground(colorAccent).Render(n.Kind), n.Message)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

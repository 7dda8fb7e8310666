package model

import (
	"strings"
	"time"
	"unicode"
)

// ApplyStatus moves t to status. CompletedAt is stamped when the task enters Done and cleared
// whenever it leaves Done.
func ApplyStatus(t *Task, status Status, now time.Time) {
	if t.Status == status {
		if status == StatusDone && t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}
	t.Status = status
	if status == StatusDone {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// CanChangeStatus reports whether t may be moved through the quick status affordances.
// blocker is the task referenced by t.BlockedByID, nil when it no longer exists.
func CanChangeStatus(t *Task, blocker *Task) error {
	if t.BlockedByID == nil || blocker == nil {
		return nil
	}
	if blocker.Status != StatusDone {
		return BlockedError{TaskID: t.ID, BlockedBy: blocker.ID}
	}
	return nil
}

// Slugify lowercases name and collapses every run of non-alphanumerics into one hyphen.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// NormalizeJoinCode uppercases code and strips whitespace and hyphens.
func NormalizeJoinCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}

// ResolveRole derives user's role in space. Super-admins and owners are always admins; otherwise
// the membership row decides, defaulting to member.
func ResolveRole(user *Profile, space *Space, memberships []SpaceMember) Role {
	if user == nil || space == nil {
		return RoleMember
	}
	if user.IsSuperAdmin || space.OwnerID == user.ID {
		return RoleAdmin
	}
	for _, m := range memberships {
		if m.SpaceID == space.ID && m.UserID == user.ID {
			if m.Role.Valid() {
				return m.Role
			}
			break
		}
	}
	return RoleMember
}

// CanEditTask reports whether a user with role may mutate t.
// Admins edit everything; members edit tasks assigned to them, created by them, or unassigned.
func CanEditTask(userID int64, role Role, t *Task) bool {
	if role == RoleAdmin {
		return true
	}
	if t.AssigneeID == nil {
		return true
	}
	return *t.AssigneeID == userID || t.CreatorID == userID
}

// IsMember reports whether userID has a membership row for spaceID or owns it.
func IsMember(userID int64, space *Space, memberships []SpaceMember) bool {
	if space != nil && space.OwnerID == userID {
		return true
	}
	for _, m := range memberships {
		if space != nil && m.SpaceID == space.ID && m.UserID == userID {
			return true
		}
	}
	return false
}

// TotalLogged sums the durations of t's time logs.
func (t *Task) TotalLogged() time.Duration {
	var ms int64
	for _, l := range t.TimeLogs {
		ms += l.DurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (t *Task) TimerRunning() bool { return t.TimerStartTime != nil }

// Overdue reports whether t is unfinished and due before today.
func (t *Task) Overdue(today Date) bool {
	return t.Status != StatusDone && !t.DueDate.IsZero() && t.DueDate.Before(today)
}

func (s *Space) Slug() string { return Slugify(s.Name) }

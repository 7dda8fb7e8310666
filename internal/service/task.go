package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskService struct {
	db     *gorm.DB
	notify *NotificationService
	now    func() time.Time
}

func NewTaskService(db *gorm.DB, notify *NotificationService) *TaskService {
	return &TaskService{db: db, notify: notify}
}

// WithClock replaces the wall clock used for creation dates and completion stamps.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

func preloadTask(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("TimeLogs", func(db *gorm.DB) *gorm.DB { return db.Order("start_time, id") })
}

func loadTask(ctx context.Context, db *gorm.DB, id int64) (*model.Task, error) {
	var t model.Task
	if err := preloadTask(db.WithContext(ctx)).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("task", id)
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	normalizeTask(&t)
	return &t, nil
}

// normalizeTask replaces nil collections so readers always see empty lists.
func normalizeTask(t *model.Task) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []model.Subtask{}
	}
	if t.Comments == nil {
		t.Comments = []model.Comment{}
	}
	if t.TimeLogs == nil {
		t.TimeLogs = []model.TimeLog{}
	}
}

// lockTask reads the bare task row for update inside tx.
func lockTask(tx *gorm.DB, id int64) (*model.Task, error) {
	var t model.Task
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("task", id)
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return &t, nil
}

// editable loads the caller's access to t's space and checks edit permission.
func editable(ctx context.Context, tx *gorm.DB, userID int64, t *model.Task, action string) (*Access, error) {
	acc, err := loadAccess(ctx, tx, userID, t.SpaceID)
	if err != nil {
		return nil, err
	}
	if !model.CanEditTask(userID, acc.Role, t) {
		return nil, model.ForbiddenError{Action: action}
	}
	return acc, nil
}

// GetTasks returns every task of spaceID, ordered by due date then id. The caller must be a member.
func (s *TaskService) GetTasks(ctx context.Context, userID, spaceID int64) ([]model.Task, error) {
	if _, err := loadAccess(ctx, s.db, userID, spaceID); err != nil {
		return nil, err
	}
	var tasks []model.Task
	err := preloadTask(s.db.WithContext(ctx)).
		Where("space_id = ?", spaceID).
		Order("due_date, id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	for i := range tasks {
		normalizeTask(&tasks[i])
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	t, err := loadTask(ctx, s.db, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := loadAccess(ctx, s.db, userID, t.SpaceID); err != nil {
		return nil, err
	}
	return t, nil
}

// UpsertTask inserts a task when p has no id and otherwise writes only the fields present in p.
// A present Version must match the stored one.
func (s *TaskService) UpsertTask(ctx context.Context, userID int64, p model.TaskPatch) (*model.Task, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return nil, model.ErrInvalidPriority
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return nil, model.ErrTitleRequired
	}
	if p.ID == nil || *p.ID == 0 {
		return s.insertTask(ctx, userID, p)
	}
	return s.updateTask(ctx, userID, p)
}

func (s *TaskService) insertTask(ctx context.Context, userID int64, p model.TaskPatch) (*model.Task, error) {
	if p.SpaceID == nil || *p.SpaceID == 0 {
		return nil, model.ErrSpaceRequired
	}
	if p.Title == nil {
		return nil, model.ErrTitleRequired
	}
	if _, err := loadAccess(ctx, s.db, userID, *p.SpaceID); err != nil {
		return nil, err
	}

	now := nowFrom(s.now)
	t := &model.Task{
		CreatorID: userID,
		Status:    model.StatusTodo,
		Priority:  model.PriorityMedium,
		DueDate:   model.DateOf(now),
		Tags:      []string{},
		Version:   1,
	}
	p.Apply(t)
	t.Title = strings.TrimSpace(t.Title)
	if p.Status != nil {
		model.ApplyStatus(t, *p.Status, now)
	}
	for i := range t.Subtasks {
		t.Subtasks[i].ID = 0
	}
	if err := s.checkListAndBlocker(ctx, s.db, t); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	logger.From(ctx).Info("task.create", "task_id", t.ID, "space_id", t.SpaceID, "user_id", userID)

	if t.AssigneeID != nil && *t.AssigneeID != userID {
		s.notify.notify(ctx, *t.AssigneeID, model.NotifyTaskAssigned,
			fmt.Sprintf("You were assigned %q", t.Title), &t.ID, &t.SpaceID)
	}
	return loadTask(ctx, s.db, t.ID)
}

func (s *TaskService) updateTask(ctx context.Context, userID int64, p model.TaskPatch) (*model.Task, error) {
	id := *p.ID
	var assigned *int64
	var title string
	var spaceID int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, id)
		if err != nil {
			return err
		}
		if _, err := editable(ctx, tx, userID, t, "edit task"); err != nil {
			return err
		}
		if p.Version != nil && *p.Version != t.Version {
			return model.ConflictError{Kind: "task", ID: id, Expected: *p.Version, Actual: t.Version}
		}
		if p.SpaceID != nil && *p.SpaceID != t.SpaceID {
			if _, err := loadAccess(ctx, tx, userID, *p.SpaceID); err != nil {
				return err
			}
		}

		prevAssignee := t.AssigneeID
		oldVersion := t.Version
		p.Apply(t)
		t.Title = strings.TrimSpace(t.Title)
		if err := s.checkListAndBlocker(ctx, tx, t); err != nil {
			return err
		}

		cols := updatedColumns(p)
		if p.Status != nil {
			if *p.Status != t.Status && t.BlockedByID != nil {
				blocker, err := first[model.Task](ctx, tx, "task", *t.BlockedByID)
				if err != nil && !model.IsNotFound(err) {
					return err
				}
				if err := model.CanChangeStatus(t, blocker); err != nil {
					return err
				}
			}
			model.ApplyStatus(t, *p.Status, nowFrom(s.now))
			cols = append(cols, "status", "completed_at")
		}
		t.Version = oldVersion + 1
		t.UpdatedAt = nowFrom(s.now)
		cols = append(cols, "version", "updated_at")

		res := tx.Model(t).Where("version = ?", oldVersion).Select(cols).Omit(clause.Associations).Updates(t)
		if res.Error != nil {
			return fmt.Errorf("update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ConflictError{Kind: "task", ID: id, Expected: oldVersion}
		}

		if p.Subtasks != nil {
			if err := syncSubtasks(tx, id, *p.Subtasks); err != nil {
				return err
			}
		}
		// tasks left behind in the old space no longer wait on this one
		if p.SpaceID != nil {
			err := tx.Model(&model.Task{}).Where("blocked_by_id = ? AND space_id <> ?", id, t.SpaceID).
				Update("blocked_by_id", nil).Error
			if err != nil {
				return fmt.Errorf("detach dependents: %w", err)
			}
		}
		title, spaceID = t.Title, t.SpaceID
		if p.AssigneeID.Set {
			assigned = newAssignee(prevAssignee, t.AssigneeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("task.update", "task_id", id, "user_id", userID)

	if assigned != nil && *assigned != userID {
		s.notify.notify(ctx, *assigned, model.NotifyTaskAssigned,
			fmt.Sprintf("You were assigned %q", title), &id, &spaceID)
	}
	return loadTask(ctx, s.db, id)
}

// newAssignee returns next when it differs from prev, nil otherwise.
func newAssignee(prev, next *int64) *int64 {
	if next == nil {
		return nil
	}
	if prev != nil && *prev == *next {
		return nil
	}
	return next
}

func updatedColumns(p model.TaskPatch) []string {
	var cols []string
	add := func(present bool, col string) {
		if present {
			cols = append(cols, col)
		}
	}
	add(p.SpaceID != nil, "space_id")
	add(p.ListID.Set, "list_id")
	add(p.Title != nil, "title")
	add(p.Description != nil, "description")
	add(p.AssigneeID.Set, "assignee_id")
	add(p.DueDate != nil, "due_date")
	add(p.Priority != nil, "priority")
	add(p.Tags != nil, "tags")
	add(p.BlockedByID.Set, "blocked_by_id")
	return cols
}

// checkListAndBlocker rejects references to lists or tasks outside t's space.
func (s *TaskService) checkListAndBlocker(ctx context.Context, db *gorm.DB, t *model.Task) error {
	if t.ListID != nil {
		list, err := first[model.List](ctx, db, "list", *t.ListID)
		if err != nil {
			return err
		}
		if list.SpaceID != t.SpaceID {
			return model.ForbiddenError{Action: "use a list from another space"}
		}
	}
	if t.BlockedByID != nil {
		if t.ID != 0 && *t.BlockedByID == t.ID {
			return model.ErrSelfBlock
		}
		blocker, err := first[model.Task](ctx, db, "task", *t.BlockedByID)
		if err != nil {
			return err
		}
		if blocker.SpaceID != t.SpaceID {
			return model.ForbiddenError{Action: "depend on a task from another space"}
		}
	}
	return nil
}

// syncSubtasks makes the stored subtasks of taskID equal want. Matching ids are updated in place,
// new entries inserted and the rest deleted.
func syncSubtasks(tx *gorm.DB, taskID int64, want []model.Subtask) error {
	var existing []model.Subtask
	if err := tx.Where("task_id = ?", taskID).Find(&existing).Error; err != nil {
		return fmt.Errorf("query subtasks: %w", err)
	}
	known := make(map[int64]model.Subtask, len(existing))
	for _, st := range existing {
		known[st.ID] = st
	}

	keep := make(map[int64]bool, len(want))
	for _, st := range want {
		title := strings.TrimSpace(st.Title)
		if cur, ok := known[st.ID]; ok && st.ID != 0 && !keep[st.ID] {
			keep[st.ID] = true
			if cur.Title == title && cur.Completed == st.Completed {
				continue
			}
			err := tx.Model(&model.Subtask{}).Where("id = ?", st.ID).
				Updates(map[string]any{"title": title, "completed": st.Completed}).Error
			if err != nil {
				return fmt.Errorf("update subtask: %w", err)
			}
			continue
		}
		row := model.Subtask{TaskID: taskID, Title: title, Completed: st.Completed}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}
	}

	var drop []int64
	for id := range known {
		if !keep[id] {
			drop = append(drop, id)
		}
	}
	if len(drop) > 0 {
		if err := tx.Where("id IN ?", drop).Delete(&model.Subtask{}).Error; err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
	}
	return nil
}

// SetStatus is the quick status change. A task whose blocker is not done cannot move.
func (s *TaskService) SetStatus(ctx context.Context, userID, taskID int64, status model.Status) (*model.Task, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if _, err := editable(ctx, tx, userID, t, "change status"); err != nil {
			return err
		}
		if t.Status == status {
			return nil
		}
		var blocker *model.Task
		if t.BlockedByID != nil {
			blocker, err = first[model.Task](ctx, tx, "task", *t.BlockedByID)
			if err != nil && !model.IsNotFound(err) {
				return err
			}
		}
		if err := model.CanChangeStatus(t, blocker); err != nil {
			return err
		}
		model.ApplyStatus(t, status, nowFrom(s.now))
		return tx.Model(&model.Task{}).Where("id = ?", taskID).Updates(map[string]any{
			"status":       t.Status,
			"completed_at": t.CompletedAt,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   nowFrom(s.now),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return loadTask(ctx, s.db, taskID)
}

// DeleteTask removes the task with its subtasks, comments and time logs. Tasks it blocked become unblocked.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if _, err := editable(ctx, tx, userID, t, "delete task"); err != nil {
			return err
		}
		for _, child := range []any{&model.Subtask{}, &model.Comment{}, &model.TimeLog{}} {
			if err := tx.Where("task_id = ?", taskID).Delete(child).Error; err != nil {
				return fmt.Errorf("delete task children: %w", err)
			}
		}
		if err := tx.Model(&model.Task{}).Where("blocked_by_id = ?", taskID).Update("blocked_by_id", nil).Error; err != nil {
			return fmt.Errorf("unblock dependents: %w", err)
		}
		return tx.Delete(&model.Task{}, taskID).Error
	})
	if err != nil {
		return err
	}
	logger.From(ctx).Info("task.delete", "task_id", taskID, "user_id", userID)
	return nil
}

// AddComment appends a comment. Any member of the task's space may comment.
func (s *TaskService) AddComment(ctx context.Context, userID, taskID int64, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	t, err := first[model.Task](ctx, s.db, "task", taskID)
	if err != nil {
		return nil, err
	}
	if _, err := loadAccess(ctx, s.db, userID, t.SpaceID); err != nil {
		return nil, err
	}
	c := &model.Comment{TaskID: taskID, AuthorID: userID, Content: content}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	if t.AssigneeID != nil && *t.AssigneeID != userID {
		s.notify.notify(ctx, *t.AssigneeID, model.NotifyComment,
			fmt.Sprintf("New comment on %q", t.Title), &t.ID, &t.SpaceID)
	}
	return c, nil
}

func (s *TaskService) StartTimer(ctx context.Context, userID, taskID int64, at time.Time) (*model.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if _, err := editable(ctx, tx, userID, t, "start timer"); err != nil {
			return err
		}
		if t.TimerRunning() {
			return model.ErrTimerRunning
		}
		return tx.Model(&model.Task{}).Where("id = ?", taskID).Updates(map[string]any{
			"timer_start_time": at,
			"version":          gorm.Expr("version + 1"),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return loadTask(ctx, s.db, taskID)
}

// StopTimer records the elapsed time as one time log and clears the running marker in a single
// transaction.
func (s *TaskService) StopTimer(ctx context.Context, userID, taskID int64, at time.Time) (*model.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockTask(tx, taskID)
		if err != nil {
			return err
		}
		if _, err := editable(ctx, tx, userID, t, "stop timer"); err != nil {
			return err
		}
		if !t.TimerRunning() {
			return model.ErrTimerNotRunning
		}
		start := *t.TimerStartTime
		ms := at.Sub(start).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		entry := model.TimeLog{TaskID: taskID, UserID: userID, StartTime: start, EndTime: at, DurationMs: ms}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("insert time log: %w", err)
		}
		res := tx.Model(&model.Task{}).
			Where("id = ? AND timer_start_time IS NOT NULL", taskID).
			Updates(map[string]any{"timer_start_time": nil, "version": gorm.Expr("version + 1")})
		if res.Error != nil {
			return fmt.Errorf("clear timer: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ErrTimerNotRunning
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("task.timer.stop", "task_id", taskID, "user_id", userID)
	return loadTask(ctx, s.db, taskID)
}

// StaleTimers lists tasks visible to userID whose timer has been running longer than olderThan.
func (s *TaskService) StaleTimers(ctx context.Context, userID int64, olderThan time.Duration) ([]model.Task, error) {
	user, err := first[model.Profile](ctx, s.db, "profile", userID)
	if err != nil {
		return nil, err
	}
	cutoff := nowFrom(s.now).Add(-olderThan)
	q := s.db.WithContext(ctx).Where("timer_start_time IS NOT NULL AND timer_start_time < ?", cutoff)
	if !user.IsSuperAdmin {
		spaces := s.db.Model(&model.Space{}).Select("id").Where("owner_id = ? OR id IN (?)", userID,
			s.db.Model(&model.SpaceMember{}).Select("space_id").Where("user_id = ?", userID))
		q = q.Where("space_id IN (?)", spaces)
	}
	var out []model.Task
	if err := q.Order("timer_start_time, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query stale timers: %w", err)
	}
	return out, nil
}

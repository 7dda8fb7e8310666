package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyTaskService stores personal daily tasks. Every operation is scoped to the owning user.
type DailyTaskService struct{ db *gorm.DB }

func NewDailyTaskService(db *gorm.DB) *DailyTaskService { return &DailyTaskService{db: db} }

func (s *DailyTaskService) List(ctx context.Context, userID int64) ([]model.DailyTask, error) {
	var out []model.DailyTask
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query daily tasks: %w", err)
	}
	return out, nil
}

func (s *DailyTaskService) Create(ctx context.Context, userID int64, d model.DailyTask) (*model.DailyTask, error) {
	d.Text = strings.TrimSpace(d.Text)
	if d.Text == "" {
		return nil, model.ErrTitleRequired
	}
	if d.Status == "" {
		d.Status = model.StatusTodo
	}
	if d.Priority == "" {
		d.Priority = model.PriorityMedium
	}
	if !d.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	if !d.Priority.Valid() {
		return nil, model.ErrInvalidPriority
	}
	d.ID = 0
	d.UserID = userID
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, fmt.Errorf("insert daily task: %w", err)
	}
	return &d, nil
}

func (s *DailyTaskService) Update(ctx context.Context, userID, id int64, p model.DailyTaskPatch) (*model.DailyTask, error) {
	updates := map[string]any{}
	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return nil, model.ErrTitleRequired
		}
		updates["text"] = text
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, model.ErrInvalidStatus
		}
		updates["status"] = *p.Status
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, model.ErrInvalidPriority
		}
		updates["priority"] = *p.Priority
	}
	if p.Schedule != nil {
		updates["schedule"] = *p.Schedule
	}
	if p.Unplanned != nil {
		updates["unplanned"] = *p.Unplanned
	}

	var d model.DailyTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&d).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("daily task", id)
			}
			return fmt.Errorf("query daily task: %w", err)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&d).Updates(updates).Error; err != nil {
			return fmt.Errorf("update daily task: %w", err)
		}
		return tx.First(&d, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DailyTaskService) Delete(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.DailyTask{})
	if res.Error != nil {
		return fmt.Errorf("delete daily task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("daily task", id)
	}
	return nil
}

type ScratchpadService struct{ db *gorm.DB }

func NewScratchpadService(db *gorm.DB) *ScratchpadService { return &ScratchpadService{db: db} }

// Get returns userID's note; an empty one when nothing was saved yet.
func (s *ScratchpadService) Get(ctx context.Context, userID int64) (*model.Scratchpad, error) {
	var p model.Scratchpad
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Scratchpad{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query scratchpad: %w", err)
	}
	return &p, nil
}

func (s *ScratchpadService) Save(ctx context.Context, userID int64, content string) (*model.Scratchpad, error) {
	p := model.Scratchpad{UserID: userID, Content: content}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("save scratchpad: %w", err)
	}
	return &p, nil
}

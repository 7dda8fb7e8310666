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

type ProfileService struct{ db *gorm.DB }

func NewProfileService(db *gorm.DB) *ProfileService { return &ProfileService{db: db} }

func (s *ProfileService) GetAllEmployees(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile
	if err := s.db.WithContext(ctx).Order("display_name, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	return out, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	return first[model.Profile](ctx, s.db, "profile", userID)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, p model.ProfilePatch) (*model.Profile, error) {
	updates := map[string]any{}
	if p.DisplayName != nil {
		name := strings.TrimSpace(*p.DisplayName)
		if name == "" {
			return nil, model.ErrNameRequired
		}
		updates["display_name"] = name
	}
	if p.FullName != nil {
		updates["full_name"] = *p.FullName
	}
	if p.AvatarURL != nil {
		updates["avatar_url"] = *p.AvatarURL
	}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.Position != nil {
		updates["position"] = *p.Position
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update profile: %w", res.Error)
		}
	}
	return s.GetProfile(ctx, userID)
}

// GetPreferences returns userID's preferences, or the defaults when none were saved.
func (s *ProfileService) GetPreferences(ctx context.Context, userID int64) (*model.Preferences, error) {
	var p model.Preferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Preferences{UserID: userID, Theme: "system", DefaultView: "board"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	return &p, nil
}

func (s *ProfileService) SavePreferences(ctx context.Context, userID int64, p model.Preferences) (*model.Preferences, error) {
	p.UserID = userID
	if p.Theme == "" {
		p.Theme = "system"
	}
	if p.DefaultView == "" {
		p.DefaultView = "board"
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"theme", "default_view", "week_starts_monday"}),
	}).Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	return &p, nil
}

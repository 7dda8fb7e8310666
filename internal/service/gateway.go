package service

import (
	"context"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/model"

	"gorm.io/gorm"
)

// Services bundles every service over one database.
type Services struct {
	Auth          *AuthService
	Profiles      *ProfileService
	Spaces        *SpaceService
	Tasks         *TaskService
	Daily         *DailyTaskService
	Scratchpads   *ScratchpadService
	Notifications *NotificationService
	AI            *AIService
}

func New(db *gorm.DB, cfg *config.Config, pub Publisher) *Services {
	notify := NewNotificationService(db, pub)
	return &Services{
		Auth:          NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.SuperAdminEmails),
		Profiles:      NewProfileService(db),
		Spaces:        NewSpaceService(db, notify),
		Tasks:         NewTaskService(db, notify),
		Daily:         NewDailyTaskService(db),
		Scratchpads:   NewScratchpadService(db),
		Notifications: notify,
		AI:            NewAIService(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout),
	}
}

// As returns a gateway acting as userID.
func (s *Services) As(userID int64) *Gateway { return &Gateway{svc: s, userID: userID} }

// CreateDrafts inserts AI drafts into spaceID as userID.
func (s *Services) CreateDrafts(ctx context.Context, userID, spaceID int64, drafts []model.TaskDraft) ([]model.Task, error) {
	today := model.Today()
	out := make([]model.Task, 0, len(drafts))
	for _, d := range drafts {
		t, err := s.Tasks.UpsertTask(ctx, userID, DraftPatch(d, spaceID, today))
		if err != nil {
			return out, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// Gateway is the in-process data gateway for one signed-in user.
type Gateway struct {
	svc    *Services
	userID int64
}

func (g *Gateway) UserID() int64 { return g.userID }

func (g *Gateway) Me(ctx context.Context) (*model.Profile, error) {
	return g.svc.Profiles.GetProfile(ctx, g.userID)
}

func (g *Gateway) GetAllEmployees(ctx context.Context) ([]model.Profile, error) {
	return g.svc.Profiles.GetAllEmployees(ctx)
}

func (g *Gateway) GetSpaces(ctx context.Context) ([]model.Space, error) {
	return g.svc.Spaces.GetSpaces(ctx, g.userID)
}

func (g *Gateway) GetLists(ctx context.Context, spaceID int64) ([]model.List, error) {
	return g.svc.Spaces.GetLists(ctx, g.userID, spaceID)
}

func (g *Gateway) GetMemberships(ctx context.Context, spaceIDs []int64) ([]model.SpaceMember, error) {
	return g.svc.Spaces.GetMemberships(ctx, g.userID, spaceIDs)
}

func (g *Gateway) GetTasks(ctx context.Context, spaceID int64) ([]model.Task, error) {
	return g.svc.Tasks.GetTasks(ctx, g.userID, spaceID)
}

func (g *Gateway) UpsertTask(ctx context.Context, p model.TaskPatch) (*model.Task, error) {
	return g.svc.Tasks.UpsertTask(ctx, g.userID, p)
}

func (g *Gateway) SetStatus(ctx context.Context, taskID int64, status model.Status) (*model.Task, error) {
	return g.svc.Tasks.SetStatus(ctx, g.userID, taskID, status)
}

func (g *Gateway) DeleteTask(ctx context.Context, taskID int64) error {
	return g.svc.Tasks.DeleteTask(ctx, g.userID, taskID)
}

func (g *Gateway) AddComment(ctx context.Context, taskID int64, content string) (*model.Comment, error) {
	return g.svc.Tasks.AddComment(ctx, g.userID, taskID, content)
}

func (g *Gateway) StartTimer(ctx context.Context, taskID int64, at time.Time) (*model.Task, error) {
	return g.svc.Tasks.StartTimer(ctx, g.userID, taskID, at)
}

func (g *Gateway) StopTimer(ctx context.Context, taskID int64, at time.Time) (*model.Task, error) {
	return g.svc.Tasks.StopTimer(ctx, g.userID, taskID, at)
}

func (g *Gateway) JoinSpace(ctx context.Context, code string) (*model.Space, error) {
	return g.svc.Spaces.JoinSpace(ctx, code, g.userID)
}

func (g *Gateway) CreateSpace(ctx context.Context, req model.CreateSpaceRequest) (*model.Space, error) {
	return g.svc.Spaces.CreateSpace(ctx, g.userID, req)
}

func (g *Gateway) ListDailyTasks(ctx context.Context) ([]model.DailyTask, error) {
	return g.svc.Daily.List(ctx, g.userID)
}

func (g *Gateway) CreateDailyTask(ctx context.Context, d model.DailyTask) (*model.DailyTask, error) {
	return g.svc.Daily.Create(ctx, g.userID, d)
}

func (g *Gateway) UpdateDailyTask(ctx context.Context, id int64, p model.DailyTaskPatch) (*model.DailyTask, error) {
	return g.svc.Daily.Update(ctx, g.userID, id, p)
}

func (g *Gateway) DeleteDailyTask(ctx context.Context, id int64) error {
	return g.svc.Daily.Delete(ctx, g.userID, id)
}

func (g *Gateway) GetScratchpad(ctx context.Context) (string, error) {
	p, err := g.svc.Scratchpads.Get(ctx, g.userID)
	if err != nil {
		return "", err
	}
	return p.Content, nil
}

func (g *Gateway) SaveScratchpad(ctx context.Context, content string) error {
	_, err := g.svc.Scratchpads.Save(ctx, g.userID, content)
	return err
}

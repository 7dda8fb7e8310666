package service

import (
	"context"
	"fmt"

	"taskflow/internal/logger"
	"taskflow/internal/model"

	"gorm.io/gorm"
)

// Publisher receives every notification after it is stored.
type Publisher interface {
	Publish(n model.Notification)
}

type NotificationService struct {
	db  *gorm.DB
	pub Publisher
}

func NewNotificationService(db *gorm.DB, pub Publisher) *NotificationService {
	return &NotificationService{db: db, pub: pub}
}

func (s *NotificationService) Create(ctx context.Context, n *model.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if s.pub != nil {
		s.pub.Publish(*n)
	}
	return nil
}

// notify stores a notification for userID. Failures are logged, never returned: a missed
// notification must not fail the write that caused it.
func (s *NotificationService) notify(ctx context.Context, userID int64, kind, msg string, taskID, spaceID *int64) {
	if s == nil {
		return
	}
	n := &model.Notification{UserID: userID, Kind: kind, Message: msg, TaskID: taskID, SpaceID: spaceID}
	if err := s.Create(ctx, n); err != nil {
		logger.Warn("notification.create failed", "user_id", userID, "kind", kind, "err", err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []model.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("notification", id)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"
)

// Notifier is the fire-and-forget side of the notification service. Callers
// on the reservation path depend on this narrow interface only: a failed
// append is logged and swallowed, never surfaced, never retried.
type Notifier interface {
	Notify(ctx context.Context, userID, typ, title, message string)
}

type NotificationService interface {
	Notifier
	GetUnread(ctx context.Context, userID string) ([]models.Notification, error)
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID string, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *slog.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// Notify appends a notification as a best-effort side effect. Reservations are
// transactional, notifications are advisory; the two tiers must not leak into
// each other.
func (s *notificationService) Notify(ctx context.Context, userID, typ, title, message string) {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("notification append failed",
			"user_id", userID,
			"type", typ,
			"error", err)
	}
}

func (s *notificationService) GetUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.GetUnreadByUser(ctx, userID)
}

func (s *notificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.repo.GetByUser(ctx, userID, limit)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID string, notificationID int64) error {
	// Verify notification belongs to user
	notifications, err := s.repo.GetUnreadByUser(ctx, userID)
	if err != nil {
		return err
	}

	found := false
	for _, n := range notifications {
		if n.ID == notificationID {
			found = true
			break
		}
	}

	if !found {
		return errors.New("notification not found or already read")
	}

	return s.repo.MarkAsRead(ctx, notificationID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/event"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// NotificationService implements the per-user notification inbox. New
// notifications go through Kafka so fan-out stays off the request path; if
// publishing fails the record is written directly so nothing is lost.
type NotificationService struct {
	notifications repository.NotificationRepository
	producer      *event.Producer
	logger        *slog.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(
	notifications repository.NotificationRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		producer:      producer,
		logger:        logger,
	}
}

// Notify creates a notification for the user.
func (s *NotificationService) Notify(ctx context.Context, userID, notifType, title, body string) {
	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	if s.producer != nil {
		err := s.producer.PublishNotificationCreated(ctx, n)
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "notification publish failed, writing directly",
			slog.String("user_id", userID),
			slog.String("type", notifType),
			slog.String("error", err.Error()),
		)
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to create notification",
			slog.String("user_id", userID),
			slog.String("type", notifType),
			slog.String("error", err.Error()),
		)
	}
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, params pagination.Params) (pagination.Result[domain.Notification], error) {
	notifications, total, err := s.notifications.ListByUser(ctx, userID, params)
	if err != nil {
		return pagination.Result[domain.Notification]{}, fmt.Errorf("list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return pagination.NewResult(notifications, total, params), nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification owned by the user.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.notifications.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

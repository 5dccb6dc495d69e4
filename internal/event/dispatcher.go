package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	pkgkafka "github.com/REVIVAL-MIMI/psychology/pkg/kafka"
)

// Pusher delivers a notification to the user's live WebSocket connection, if
// any. Implementations must tolerate offline users.
type Pusher interface {
	PushNotification(ctx context.Context, userID string, n *domain.Notification)
}

// Dispatcher consumes notification.created events, persists the notification
// and pushes it to the recipient when they are online. Running delivery
// through Kafka keeps notification fan-out off the request path.
type Dispatcher struct {
	notifications repository.NotificationRepository
	pusher        Pusher
	logger        *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(notifications repository.NotificationRepository, pusher Pusher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
	}
}

// Handler returns the event handler, wrapped with idempotent delivery so a
// redelivered event cannot duplicate a notification row.
func (d *Dispatcher) Handler(store pkgkafka.IdempotencyStore) pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(store, d.handle, d.logger)
}

func (d *Dispatcher) handle(ctx context.Context, event *pkgkafka.Event) error {
	var data NotificationCreatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal notification.created payload: %w", err)
	}

	n := &domain.Notification{
		ID:        data.ID,
		UserID:    data.UserID,
		Type:      data.Type,
		Title:     data.Title,
		Body:      data.Body,
		CreatedAt: data.CreatedAt,
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := d.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if d.pusher != nil {
		d.pusher.PushNotification(ctx, n.UserID, n)
	}

	d.logger.DebugContext(ctx, "notification dispatched",
		slog.String("notification_id", n.ID),
		slog.String("user_id", n.UserID),
		slog.String("type", n.Type),
	)

	return nil
}

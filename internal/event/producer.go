// Package event publishes and consumes platform domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	pkgkafka "github.com/REVIVAL-MIMI/psychology/pkg/kafka"
)

// Kafka topics for platform domain events.
var (
	TopicNotificationCreated = pkgkafka.Topic("notification", "created")
	TopicSessionScheduled    = pkgkafka.Topic("session", "scheduled")
	TopicSessionCancelled    = pkgkafka.Topic("session", "cancelled")
)

// Aggregate type constants.
const (
	AggregateTypeNotification = "notification"
	AggregateTypeSession      = "session"
)

// Source identifier for events originating from this service.
const SourcePlatform = "psychology-platform"

// NotificationCreatedData is the payload for a notification.created event.
type NotificationCreatedData struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionEventData is the payload for session lifecycle events.
type SessionEventData struct {
	ID             string    `json:"id"`
	PsychologistID string    `json:"psychologist_id"`
	ClientID       string    `json:"client_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Status         string    `json:"status"`
}

// Producer publishes platform domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishNotificationCreated publishes a notification.created event. The
// notification dispatcher consumes it, persists the record and pushes it to
// the recipient's WebSocket connection.
func (p *Producer) PublishNotificationCreated(ctx context.Context, n *domain.Notification) error {
	data := NotificationCreatedData{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}

	event, err := pkgkafka.NewEvent(TopicNotificationCreated, n.ID, AggregateTypeNotification, SourcePlatform, data)
	if err != nil {
		return fmt.Errorf("create notification.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicNotificationCreated, event); err != nil {
		return fmt.Errorf("publish notification.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published notification.created event",
		slog.String("notification_id", n.ID),
		slog.String("user_id", n.UserID),
		slog.String("type", n.Type),
	)

	return nil
}

// PublishSessionScheduled publishes a session.scheduled event.
func (p *Producer) PublishSessionScheduled(ctx context.Context, s *domain.Session) error {
	return p.publishSessionEvent(ctx, TopicSessionScheduled, s)
}

// PublishSessionCancelled publishes a session.cancelled event.
func (p *Producer) PublishSessionCancelled(ctx context.Context, s *domain.Session) error {
	return p.publishSessionEvent(ctx, TopicSessionCancelled, s)
}

func (p *Producer) publishSessionEvent(ctx context.Context, topic string, s *domain.Session) error {
	data := SessionEventData{
		ID:             s.ID,
		PsychologistID: s.PsychologistID,
		ClientID:       s.ClientID,
		ScheduledAt:    s.ScheduledAt,
		Status:         s.Status,
	}

	event, err := pkgkafka.NewEvent(topic, s.ID, AggregateTypeSession, SourcePlatform, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// ChatPusher delivers chat frames to live WebSocket connections.
// Implementations must tolerate offline users.
type ChatPusher interface {
	PushMessage(ctx context.Context, userID string, msg *domain.Message)
	PushRead(ctx context.Context, userID, readerID string)
}

// ChatService implements messaging between a psychologist and their clients.
// REST is the source of truth; WebSocket delivery is fire and forget.
type ChatService struct {
	messages      repository.MessageRepository
	clients       repository.ClientProfileRepository
	notifications *NotificationService
	pusher        ChatPusher
	logger        *slog.Logger
}

// NewChatService creates a new chat service.
func NewChatService(
	messages repository.MessageRepository,
	clients repository.ClientProfileRepository,
	notifications *NotificationService,
	pusher ChatPusher,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		messages:      messages,
		clients:       clients,
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
	}
}

// Send stores a message and pushes it to the recipient if they are online.
func (s *ChatService) Send(ctx context.Context, senderID, recipientID, text string) (*domain.Message, error) {
	if text == "" {
		return nil, apperrors.InvalidInput("message text is required")
	}
	if len([]rune(text)) > domain.MaxMessageLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("message must not exceed %d characters", domain.MaxMessageLength))
	}
	if senderID == recipientID {
		return nil, apperrors.InvalidInput("cannot message yourself")
	}

	if err := s.checkPaired(ctx, senderID, recipientID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if s.pusher != nil {
		s.pusher.PushMessage(ctx, recipientID, msg)
	}
	s.notifications.Notify(ctx, recipientID, domain.NotificationNewMessage,
		"New message", "You have a new message")

	s.logger.InfoContext(ctx, "message sent",
		slog.String("message_id", msg.ID),
		slog.String("sender_id", senderID),
		slog.String("recipient_id", recipientID),
	)

	return msg, nil
}

// History returns a page of the conversation between the user and a paired
// peer, newest first.
func (s *ChatService) History(ctx context.Context, userID, peerID string, params pagination.Params) (pagination.Result[domain.Message], error) {
	if err := s.checkPaired(ctx, userID, peerID); err != nil {
		return pagination.Result[domain.Message]{}, err
	}

	messages, total, err := s.messages.GetConversation(ctx, userID, peerID, params)
	if err != nil {
		return pagination.Result[domain.Message]{}, fmt.Errorf("get conversation: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return pagination.NewResult(messages, total, params), nil
}

// UnreadCount returns the total number of unread messages for the user.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// UnreadCountFrom returns the number of unread messages from a specific peer.
func (s *ChatService) UnreadCountFrom(ctx context.Context, userID, peerID string) (int, error) {
	count, err := s.messages.CountUnreadFrom(ctx, userID, peerID)
	if err != nil {
		return 0, fmt.Errorf("count unread messages from peer: %w", err)
	}
	return count, nil
}

// MarkRead marks the peer's messages to the user as read and echoes a read
// receipt to the peer's live connection.
func (s *ChatService) MarkRead(ctx context.Context, userID, peerID string) (int64, error) {
	updated, err := s.messages.MarkConversationRead(ctx, userID, peerID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}

	if updated > 0 && s.pusher != nil {
		s.pusher.PushRead(ctx, peerID, userID)
	}

	return updated, nil
}

// VerifyPaired checks that the two users form a psychologist and own-client
// pair. The WebSocket layer uses it to gate typing and call signalling frames.
func (s *ChatService) VerifyPaired(ctx context.Context, userA, userB string) error {
	return s.checkPaired(ctx, userA, userB)
}

// checkPaired verifies the two users form a psychologist and own-client pair,
// in either direction.
func (s *ChatService) checkPaired(ctx context.Context, userA, userB string) error {
	if paired, err := s.isClientOf(ctx, userB, userA); err != nil {
		return err
	} else if paired {
		return nil
	}

	if paired, err := s.isClientOf(ctx, userA, userB); err != nil {
		return err
	} else if paired {
		return nil
	}

	return apperrors.Forbidden("chat is only available between a psychologist and their clients")
}

// isClientOf reports whether clientID is a client bound to psychologistID.
func (s *ChatService) isClientOf(ctx context.Context, clientID, psychologistID string) (bool, error) {
	profile, err := s.clients.GetByUserID(ctx, clientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get client profile: %w", err)
	}

	return profile.PsychologistID != nil && *profile.PsychologistID == psychologistID, nil
}

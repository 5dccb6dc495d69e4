package postgres

import (
	"context"
	"fmt"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/pkg/database"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// MessageRepository implements repository.MessageRepository using PostgreSQL.
type MessageRepository struct {
	pool database.DBTX
}

// NewMessageRepository creates a new PostgreSQL-backed message repository.
func NewMessageRepository(pool database.DBTX) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `id, sender_id, recipient_id, text, read, read_at, created_at`

// Create inserts a new message.
func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.SenderID, m.RecipientID, m.Text, m.Read, m.ReadAt, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// GetConversation returns a page of messages between two users, newest first.
func (r *MessageRepository) GetConversation(ctx context.Context, userA, userB string, params pagination.Params) ([]domain.Message, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)`,
		userA, userB).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, userA, userB, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Text, &m.Read, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, total, nil
}

// CountUnread returns the number of unread messages addressed to the user.
func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read = FALSE`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// CountUnreadFrom returns the number of unread messages from a specific peer.
func (r *MessageRepository) CountUnreadFrom(ctx context.Context, userID, peerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND sender_id = $2 AND read = FALSE`,
		userID, peerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread messages from peer: %w", err)
	}
	return count, nil
}

// MarkConversationRead marks all messages from peer to user as read.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, userID, peerID string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE, read_at = NOW()
		WHERE recipient_id = $1 AND sender_id = $2 AND read = FALSE`,
		userID, peerID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	return ct.RowsAffected(), nil
}

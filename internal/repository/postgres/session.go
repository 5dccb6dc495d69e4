package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/pkg/database"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `
	id, psychologist_id, client_id, scheduled_at, duration_minutes, status,
	notes, reminder_24h_sent, reminder_1h_sent, created_at, updated_at`

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.PsychologistID,
		s.ClientID,
		s.ScheduledAt,
		s.DurationMinutes,
		s.Status,
		s.Notes,
		s.Reminder24hSent,
		s.Reminder1hSent,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return s, nil
}

// Update modifies an existing session.
func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sessions
		SET scheduled_at = $1, duration_minutes = $2, status = $3, notes = $4,
		    reminder_24h_sent = $5, reminder_1h_sent = $6, updated_at = $7
		WHERE id = $8`

	ct, err := r.pool.Exec(ctx, query,
		s.ScheduledAt,
		s.DurationMinutes,
		s.Status,
		s.Notes,
		s.Reminder24hSent,
		s.Reminder1hSent,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("session", s.ID)
	}

	return nil
}

// ListByPsychologist returns sessions for a psychologist within [from, to).
func (r *SessionRepository) ListByPsychologist(ctx context.Context, psychologistID string, from, to time.Time) ([]domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE psychologist_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at`

	return r.listSessions(ctx, query, psychologistID, from, to)
}

// ListByClient returns sessions for a client within [from, to).
func (r *SessionRepository) ListByClient(ctx context.Context, clientID string, from, to time.Time) ([]domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE client_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at`

	return r.listSessions(ctx, query, clientID, from, to)
}

// ListNeedingReminder returns active sessions starting within the window after
// now whose reminder flag for that window is not yet set.
func (r *SessionRepository) ListNeedingReminder(ctx context.Context, now time.Time, window time.Duration) ([]domain.Session, error) {
	flag, err := reminderFlagColumn(window)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status IN ('SCHEDULED', 'CONFIRMED')
		  AND scheduled_at > $1 AND scheduled_at <= $2
		  AND ` + flag + ` = FALSE
		ORDER BY scheduled_at`

	return r.listSessions(ctx, query, now, now.Add(window))
}

// MarkReminderSent sets the reminder flag for the given window.
func (r *SessionRepository) MarkReminderSent(ctx context.Context, id string, window time.Duration) error {
	flag, err := reminderFlagColumn(window)
	if err != nil {
		return err
	}

	query := `UPDATE sessions SET ` + flag + ` = TRUE, updated_at = $1 WHERE id = $2`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("session", id)
	}

	return nil
}

// reminderFlagColumn maps a reminder window to its flag column. Only the two
// supported windows exist as columns.
func reminderFlagColumn(window time.Duration) (string, error) {
	switch window {
	case 24 * time.Hour:
		return "reminder_24h_sent", nil
	case time.Hour:
		return "reminder_1h_sent", nil
	default:
		return "", fmt.Errorf("unsupported reminder window %s", window)
	}
}

func (r *SessionRepository) listSessions(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID,
		&s.PsychologistID,
		&s.ClientID,
		&s.ScheduledAt,
		&s.DurationMinutes,
		&s.Status,
		&s.Notes,
		&s.Reminder24hSent,
		&s.Reminder1hSent,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

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
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// JournalRepository implements repository.JournalRepository using PostgreSQL.
type JournalRepository struct {
	pool database.DBTX
}

// NewJournalRepository creates a new PostgreSQL-backed journal repository.
func NewJournalRepository(pool database.DBTX) *JournalRepository {
	return &JournalRepository{pool: pool}
}

const journalColumns = `id, client_id, text, mood, created_at, updated_at`

// Create inserts a new journal entry.
func (r *JournalRepository) Create(ctx context.Context, e *domain.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (` + journalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, e.ID, e.ClientID, e.Text, e.Mood, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry by its ID.
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE id = $1`

	var e domain.JournalEntry
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.ClientID, &e.Text, &e.Mood, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan journal entry: %w", err)
	}

	return &e, nil
}

// Update modifies an existing entry.
func (r *JournalRepository) Update(ctx context.Context, e *domain.JournalEntry) error {
	e.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE journal_entries
		SET text = $1, mood = $2, updated_at = $3
		WHERE id = $4 AND client_id = $5`

	ct, err := r.pool.Exec(ctx, query, e.Text, e.Mood, e.UpdatedAt, e.ID, e.ClientID)
	if err != nil {
		return fmt.Errorf("update journal entry: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("journal entry", e.ID)
	}

	return nil
}

// Delete removes an entry owned by the given client.
func (r *JournalRepository) Delete(ctx context.Context, id, clientID string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM journal_entries WHERE id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("journal entry", id)
	}

	return nil
}

// ListByClient returns a page of the client's entries, newest first.
func (r *JournalRepository) ListByClient(ctx context.Context, clientID string, params pagination.Params) ([]domain.JournalEntry, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE client_id = $1`, clientID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count journal entries: %w", err)
	}

	query := `
		SELECT ` + journalColumns + `
		FROM journal_entries
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, clientID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Text, &e.Mood, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan journal row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate journal entries: %w", err)
	}

	return entries, total, nil
}

// CountForDay returns how many entries the client created on the given day (UTC).
func (r *JournalRepository) CountForDay(ctx context.Context, clientID string, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM journal_entries
		WHERE client_id = $1 AND created_at >= $2 AND created_at < $3`,
		clientID, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count journal entries for day: %w", err)
	}

	return count, nil
}

// DeleteOlderThan removes entries created before the cutoff.
func (r *JournalRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM journal_entries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old journal entries: %w", err)
	}
	return ct.RowsAffected(), nil
}

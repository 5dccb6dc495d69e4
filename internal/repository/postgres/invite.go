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

// InviteRepository implements repository.InviteRepository using PostgreSQL.
type InviteRepository struct {
	pool database.DBTX
}

// NewInviteRepository creates a new PostgreSQL-backed invite repository.
func NewInviteRepository(pool database.DBTX) *InviteRepository {
	return &InviteRepository{pool: pool}
}

const inviteColumns = `id, psychologist_id, token, expires_at, used, used_by, created_at`

// Create inserts a new invite.
func (r *InviteRepository) Create(ctx context.Context, inv *domain.Invite) error {
	query := `
		INSERT INTO invites (` + inviteColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		inv.ID,
		inv.PsychologistID,
		inv.Token,
		inv.ExpiresAt,
		inv.Used,
		inv.UsedBy,
		inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("invite", "token", inv.Token)
		}
		return fmt.Errorf("insert invite: %w", err)
	}

	return nil
}

// GetByToken retrieves an invite by its token.
func (r *InviteRepository) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE token = $1`

	var inv domain.Invite
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&inv.ID,
		&inv.PsychologistID,
		&inv.Token,
		&inv.ExpiresAt,
		&inv.Used,
		&inv.UsedBy,
		&inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan invite: %w", err)
	}

	return &inv, nil
}

// MarkUsed consumes the invite for the given user. The used = FALSE guard
// makes consumption atomic: of two concurrent registrations only one can win.
func (r *InviteRepository) MarkUsed(ctx context.Context, id, usedBy string) error {
	query := `UPDATE invites SET used = TRUE, used_by = $1 WHERE id = $2 AND used = FALSE`

	ct, err := r.pool.Exec(ctx, query, usedBy, id)
	if err != nil {
		return fmt.Errorf("mark invite used: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.Gone("invite already used")
	}

	return nil
}

// ListByPsychologist returns all invites created by the given psychologist.
func (r *InviteRepository) ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.Invite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE psychologist_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("query invites: %w", err)
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		var inv domain.Invite
		if err := rows.Scan(&inv.ID, &inv.PsychologistID, &inv.Token, &inv.ExpiresAt, &inv.Used, &inv.UsedBy, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invite row: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invites: %w", err)
	}

	return invites, nil
}

// Delete removes an invite owned by the given psychologist.
func (r *InviteRepository) Delete(ctx context.Context, id, psychologistID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM invites WHERE id = $1 AND psychologist_id = $2`, id, psychologistID)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("invite", id)
	}

	return nil
}

// DeleteExpired removes invites whose expiry is before the cutoff.
func (r *InviteRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM invites WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired invites: %w", err)
	}
	return ct.RowsAffected(), nil
}

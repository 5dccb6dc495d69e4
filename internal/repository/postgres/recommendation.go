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

// RecommendationRepository implements repository.RecommendationRepository using PostgreSQL.
type RecommendationRepository struct {
	pool database.DBTX
}

// NewRecommendationRepository creates a new PostgreSQL-backed recommendation repository.
func NewRecommendationRepository(pool database.DBTX) *RecommendationRepository {
	return &RecommendationRepository{pool: pool}
}

const recommendationColumns = `
	id, psychologist_id, client_id, text, due_date, status, completed_at,
	created_at, updated_at`

// Create inserts a new recommendation.
func (r *RecommendationRepository) Create(ctx context.Context, rec *domain.Recommendation) error {
	query := `
		INSERT INTO recommendations (` + recommendationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.PsychologistID,
		rec.ClientID,
		rec.Text,
		rec.DueDate,
		rec.Status,
		rec.CompletedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}

	return nil
}

// GetByID retrieves a recommendation by its ID.
func (r *RecommendationRepository) GetByID(ctx context.Context, id string) (*domain.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE id = $1`

	rec, err := scanRecommendation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan recommendation: %w", err)
	}

	return rec, nil
}

// Update modifies an existing recommendation.
func (r *RecommendationRepository) Update(ctx context.Context, rec *domain.Recommendation) error {
	rec.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE recommendations
		SET text = $1, due_date = $2, status = $3, completed_at = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.pool.Exec(ctx, query,
		rec.Text,
		rec.DueDate,
		rec.Status,
		rec.CompletedAt,
		rec.UpdatedAt,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update recommendation: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("recommendation", rec.ID)
	}

	return nil
}

// Delete removes a recommendation owned by the given psychologist.
func (r *RecommendationRepository) Delete(ctx context.Context, id, psychologistID string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM recommendations WHERE id = $1 AND psychologist_id = $2`, id, psychologistID)
	if err != nil {
		return fmt.Errorf("delete recommendation: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("recommendation", id)
	}

	return nil
}

// ListByClient returns recommendations assigned to the given client.
func (r *RecommendationRepository) ListByClient(ctx context.Context, clientID string) ([]domain.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE client_id = $1
		ORDER BY created_at DESC`

	return r.listRecommendations(ctx, query, clientID)
}

// ListByPsychologist returns recommendations created by the given psychologist.
func (r *RecommendationRepository) ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE psychologist_id = $1
		ORDER BY created_at DESC`

	return r.listRecommendations(ctx, query, psychologistID)
}

// ListActiveDueBefore returns active recommendations whose due date has passed.
func (r *RecommendationRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE status = 'ACTIVE' AND due_date IS NOT NULL AND due_date < $1
		ORDER BY due_date`

	return r.listRecommendations(ctx, query, cutoff)
}

func (r *RecommendationRepository) listRecommendations(ctx context.Context, query string, args ...any) ([]domain.Recommendation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []domain.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation row: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}

	return recs, nil
}

func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	err := row.Scan(
		&rec.ID,
		&rec.PsychologistID,
		&rec.ClientID,
		&rec.Text,
		&rec.DueDate,
		&rec.Status,
		&rec.CompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

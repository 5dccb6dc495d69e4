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

// PsychologistProfileRepository implements repository.PsychologistProfileRepository
// using PostgreSQL.
type PsychologistProfileRepository struct {
	pool database.DBTX
}

// NewPsychologistProfileRepository creates a new PostgreSQL-backed profile repository.
func NewPsychologistProfileRepository(pool database.DBTX) *PsychologistProfileRepository {
	return &PsychologistProfileRepository{pool: pool}
}

const psychologistProfileColumns = `
	user_id, full_name, about, specializations, education, experience_years,
	session_price, verified, verification_status, verification_document,
	rejection_reason, created_at, updated_at`

// Create inserts a new psychologist profile.
func (r *PsychologistProfileRepository) Create(ctx context.Context, p *domain.PsychologistProfile) error {
	query := `
		INSERT INTO psychologist_profiles (` + psychologistProfileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.UserID,
		p.FullName,
		p.About,
		p.Specializations,
		p.Education,
		p.ExperienceYears,
		p.SessionPrice,
		p.Verified,
		p.VerificationStatus,
		p.VerificationDocument,
		p.RejectionReason,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("psychologist profile", "user_id", p.UserID)
		}
		return fmt.Errorf("insert psychologist profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves a psychologist profile by the owning user's ID.
func (r *PsychologistProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.PsychologistProfile, error) {
	query := `SELECT ` + psychologistProfileColumns + ` FROM psychologist_profiles WHERE user_id = $1`

	p, err := scanPsychologistProfile(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan psychologist profile: %w", err)
	}

	return p, nil
}

// Update modifies the editable fields of a psychologist profile.
func (r *PsychologistProfileRepository) Update(ctx context.Context, p *domain.PsychologistProfile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE psychologist_profiles
		SET full_name = $1, about = $2, specializations = $3, education = $4,
		    experience_years = $5, session_price = $6, updated_at = $7
		WHERE user_id = $8`

	ct, err := r.pool.Exec(ctx, query,
		p.FullName,
		p.About,
		p.Specializations,
		p.Education,
		p.ExperienceYears,
		p.SessionPrice,
		p.UpdatedAt,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("update psychologist profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("psychologist profile", p.UserID)
	}

	return nil
}

// ListUnverified returns profiles awaiting verification review.
func (r *PsychologistProfileRepository) ListUnverified(ctx context.Context) ([]domain.PsychologistProfile, error) {
	query := `
		SELECT ` + psychologistProfileColumns + `
		FROM psychologist_profiles
		WHERE verified = FALSE AND verification_status = 'PENDING'
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query unverified profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.PsychologistProfile
	for rows.Next() {
		p, err := scanPsychologistProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

// SetVerification records a verification decision for the given user.
func (r *PsychologistProfileRepository) SetVerification(ctx context.Context, userID, status, reason string) error {
	query := `
		UPDATE psychologist_profiles
		SET verified = $1, verification_status = $2, rejection_reason = $3, updated_at = $4
		WHERE user_id = $5`

	ct, err := r.pool.Exec(ctx, query,
		status == domain.VerificationApproved,
		status,
		reason,
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("psychologist profile", userID)
	}

	return nil
}

// SetVerificationDocument stores the uploaded document key and resets the
// verification status to pending.
func (r *PsychologistProfileRepository) SetVerificationDocument(ctx context.Context, userID, documentKey string) error {
	query := `
		UPDATE psychologist_profiles
		SET verification_document = $1, verification_status = 'PENDING',
		    rejection_reason = '', updated_at = $2
		WHERE user_id = $3`

	ct, err := r.pool.Exec(ctx, query, documentKey, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("set verification document: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("psychologist profile", userID)
	}

	return nil
}

// scanPsychologistProfile scans one profile row.
func scanPsychologistProfile(row pgx.Row) (*domain.PsychologistProfile, error) {
	var p domain.PsychologistProfile
	err := row.Scan(
		&p.UserID,
		&p.FullName,
		&p.About,
		&p.Specializations,
		&p.Education,
		&p.ExperienceYears,
		&p.SessionPrice,
		&p.Verified,
		&p.VerificationStatus,
		&p.VerificationDocument,
		&p.RejectionReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Client Profile Repository ---

// ClientProfileRepository implements repository.ClientProfileRepository using PostgreSQL.
type ClientProfileRepository struct {
	pool database.DBTX
}

// NewClientProfileRepository creates a new PostgreSQL-backed client profile repository.
func NewClientProfileRepository(pool database.DBTX) *ClientProfileRepository {
	return &ClientProfileRepository{pool: pool}
}

const clientProfileColumns = `user_id, full_name, birth_date, psychologist_id, created_at, updated_at`

// Create inserts a new client profile.
func (r *ClientProfileRepository) Create(ctx context.Context, p *domain.ClientProfile) error {
	query := `
		INSERT INTO client_profiles (` + clientProfileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		p.UserID,
		p.FullName,
		p.BirthDate,
		p.PsychologistID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("client profile", "user_id", p.UserID)
		}
		return fmt.Errorf("insert client profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves a client profile by the owning user's ID.
func (r *ClientProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error) {
	query := `SELECT ` + clientProfileColumns + ` FROM client_profiles WHERE user_id = $1`

	var p domain.ClientProfile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.FullName,
		&p.BirthDate,
		&p.PsychologistID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan client profile: %w", err)
	}

	return &p, nil
}

// Update modifies the editable fields of a client profile.
func (r *ClientProfileRepository) Update(ctx context.Context, p *domain.ClientProfile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE client_profiles
		SET full_name = $1, birth_date = $2, updated_at = $3
		WHERE user_id = $4`

	ct, err := r.pool.Exec(ctx, query, p.FullName, p.BirthDate, p.UpdatedAt, p.UserID)
	if err != nil {
		return fmt.Errorf("update client profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("client profile", p.UserID)
	}

	return nil
}

// ListByPsychologist returns all clients bound to the given psychologist.
func (r *ClientProfileRepository) ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.ClientProfile, error) {
	query := `
		SELECT ` + clientProfileColumns + `
		FROM client_profiles
		WHERE psychologist_id = $1
		ORDER BY full_name`

	rows, err := r.pool.Query(ctx, query, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var profiles []domain.ClientProfile
	for rows.Next() {
		var p domain.ClientProfile
		if err := rows.Scan(&p.UserID, &p.FullName, &p.BirthDate, &p.PsychologistID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	return profiles, nil
}

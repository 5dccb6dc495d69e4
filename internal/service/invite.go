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
)

// InviteService implements invite creation and validation.
type InviteService struct {
	invites       repository.InviteRepository
	psychologists repository.PsychologistProfileRepository
	logger        *slog.Logger
}

// NewInviteService creates a new invite service.
func NewInviteService(
	invites repository.InviteRepository,
	psychologists repository.PsychologistProfileRepository,
	logger *slog.Logger,
) *InviteService {
	return &InviteService{
		invites:       invites,
		psychologists: psychologists,
		logger:        logger,
	}
}

// InviteValidation is the public view of an invite returned by Validate.
type InviteValidation struct {
	Valid            bool   `json:"valid"`
	PsychologistName string `json:"psychologist_name,omitempty"`
}

// Create issues a new single-use invite for the psychologist.
func (s *InviteService) Create(ctx context.Context, psychologistID string) (*domain.Invite, error) {
	token, err := generateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}

	now := time.Now().UTC()
	invite := &domain.Invite{
		ID:             uuid.New().String(),
		PsychologistID: psychologistID,
		Token:          token,
		ExpiresAt:      now.Add(domain.InviteTTL),
		CreatedAt:      now,
	}

	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	s.logger.InfoContext(ctx, "invite created",
		slog.String("invite_id", invite.ID),
		slog.String("psychologist_id", psychologistID),
	)

	return invite, nil
}

// Validate reports whether the token can still be consumed. The inviting
// psychologist's name is included so the registration page can show who sent
// the invite.
func (s *InviteService) Validate(ctx context.Context, token string) (*InviteValidation, error) {
	invite, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &InviteValidation{Valid: false}, nil
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}

	if !invite.IsUsable(time.Now().UTC()) {
		return &InviteValidation{Valid: false}, nil
	}

	validation := &InviteValidation{Valid: true}
	if profile, err := s.psychologists.GetByUserID(ctx, invite.PsychologistID); err == nil {
		validation.PsychologistName = profile.FullName
	}

	return validation, nil
}

// List returns all invites created by the psychologist.
func (s *InviteService) List(ctx context.Context, psychologistID string) ([]domain.Invite, error) {
	invites, err := s.invites.ListByPsychologist(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

// Revoke deletes an invite owned by the psychologist.
func (s *InviteService) Revoke(ctx context.Context, id, psychologistID string) error {
	if err := s.invites.Delete(ctx, id, psychologistID); err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}

	s.logger.InfoContext(ctx, "invite revoked",
		slog.String("invite_id", id),
		slog.String("psychologist_id", psychologistID),
	)

	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

// RecommendationService implements homework recommendations from a
// psychologist to their clients.
type RecommendationService struct {
	recommendations repository.RecommendationRepository
	clients         repository.ClientProfileRepository
	notifications   *NotificationService
	logger          *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(
	recommendations repository.RecommendationRepository,
	clients repository.ClientProfileRepository,
	notifications *NotificationService,
	logger *slog.Logger,
) *RecommendationService {
	return &RecommendationService{
		recommendations: recommendations,
		clients:         clients,
		notifications:   notifications,
		logger:          logger,
	}
}

// CreateRecommendationInput holds the parameters for a new recommendation.
type CreateRecommendationInput struct {
	ClientID string
	Text     string
	DueDate  *time.Time
}

// UpdateRecommendationInput holds the editable recommendation fields.
type UpdateRecommendationInput struct {
	Text    *string
	DueDate *time.Time
}

// Create issues a recommendation to one of the psychologist's own clients.
func (s *RecommendationService) Create(ctx context.Context, psychologistID string, input CreateRecommendationInput) (*domain.Recommendation, error) {
	if err := validateRecommendationText(input.Text); err != nil {
		return nil, err
	}

	profile, err := s.clients.GetByUserID(ctx, input.ClientID)
	if err != nil {
		return nil, apperrors.NotFound("client", input.ClientID)
	}
	if profile.PsychologistID == nil || *profile.PsychologistID != psychologistID {
		return nil, apperrors.Forbidden("client is not bound to this psychologist")
	}

	now := time.Now().UTC()
	rec := &domain.Recommendation{
		ID:             uuid.New().String(),
		PsychologistID: psychologistID,
		ClientID:       input.ClientID,
		Text:           input.Text,
		DueDate:        input.DueDate,
		Status:         domain.RecommendationActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.recommendations.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create recommendation: %w", err)
	}

	s.notifications.Notify(ctx, rec.ClientID, domain.NotificationNewRecommendation,
		"New recommendation", "Your psychologist left you a new recommendation")

	s.logger.InfoContext(ctx, "recommendation created",
		slog.String("recommendation_id", rec.ID),
		slog.String("client_id", rec.ClientID),
	)

	return rec, nil
}

// Update edits a recommendation owned by the psychologist.
func (s *RecommendationService) Update(ctx context.Context, psychologistID, id string, input UpdateRecommendationInput) (*domain.Recommendation, error) {
	rec, err := s.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recommendation for update: %w", err)
	}
	if rec.PsychologistID != psychologistID {
		return nil, apperrors.NotFound("recommendation", id)
	}

	if input.Text != nil {
		if err := validateRecommendationText(*input.Text); err != nil {
			return nil, err
		}
		rec.Text = *input.Text
	}
	if input.DueDate != nil {
		rec.DueDate = input.DueDate
		// A new due date brings an overdue recommendation back to life.
		if rec.Status == domain.RecommendationOverdue && input.DueDate.After(time.Now().UTC()) {
			rec.Status = domain.RecommendationActive
		}
	}

	if err := s.recommendations.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update recommendation: %w", err)
	}

	s.notifications.Notify(ctx, rec.ClientID, domain.NotificationRecommendationUpdated,
		"Recommendation updated", "Your psychologist updated a recommendation")

	return rec, nil
}

// Delete removes a recommendation owned by the psychologist.
func (s *RecommendationService) Delete(ctx context.Context, psychologistID, id string) error {
	if err := s.recommendations.Delete(ctx, id, psychologistID); err != nil {
		return fmt.Errorf("delete recommendation: %w", err)
	}
	return nil
}

// ListForClient returns recommendations assigned to the client.
func (s *RecommendationService) ListForClient(ctx context.Context, clientID string) ([]domain.Recommendation, error) {
	recs, err := s.recommendations.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

// ListForPsychologist returns recommendations created by the psychologist.
func (s *RecommendationService) ListForPsychologist(ctx context.Context, psychologistID string) ([]domain.Recommendation, error) {
	recs, err := s.recommendations.ListByPsychologist(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

// Complete lets the client mark their recommendation as done.
func (s *RecommendationService) Complete(ctx context.Context, clientID, id string) (*domain.Recommendation, error) {
	rec, err := s.recommendations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recommendation for complete: %w", err)
	}
	if rec.ClientID != clientID {
		return nil, apperrors.NotFound("recommendation", id)
	}
	if rec.Status == domain.RecommendationCompleted {
		return rec, nil
	}

	now := time.Now().UTC()
	rec.Status = domain.RecommendationCompleted
	rec.CompletedAt = &now

	if err := s.recommendations.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("complete recommendation: %w", err)
	}

	s.logger.InfoContext(ctx, "recommendation completed",
		slog.String("recommendation_id", id),
		slog.String("client_id", clientID),
	)

	return rec, nil
}

// SweepOverdue flags active recommendations past their due date and notifies
// both parties. Returns the number flagged.
func (s *RecommendationService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.recommendations.ListActiveDueBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue recommendations: %w", err)
	}

	flagged := 0
	for i := range overdue {
		rec := &overdue[i]
		rec.Status = domain.RecommendationOverdue
		if err := s.recommendations.Update(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "failed to flag overdue recommendation",
				slog.String("recommendation_id", rec.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		flagged++

		s.notifications.Notify(ctx, rec.ClientID, domain.NotificationRecommendationOverdue,
			"Recommendation overdue", "A recommendation from your psychologist is past its due date")
		s.notifications.Notify(ctx, rec.PsychologistID, domain.NotificationRecommendationOverdue,
			"Recommendation overdue", "A client recommendation is past its due date")
	}

	return flagged, nil
}

func validateRecommendationText(text string) error {
	if text == "" {
		return apperrors.InvalidInput("text is required")
	}
	if len([]rune(text)) > domain.MaxRecommendationLength {
		return apperrors.InvalidInput(fmt.Sprintf("text must not exceed %d characters", domain.MaxRecommendationLength))
	}
	return nil
}

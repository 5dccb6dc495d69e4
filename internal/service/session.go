package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/event"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

// Session duration bounds in minutes.
const (
	minSessionDuration = 15
	maxSessionDuration = 240
)

// SessionService implements therapy appointment scheduling.
type SessionService struct {
	sessions      repository.SessionRepository
	clients       repository.ClientProfileRepository
	notifications *NotificationService
	producer      *event.Producer
	logger        *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	sessions repository.SessionRepository,
	clients repository.ClientProfileRepository,
	notifications *NotificationService,
	producer *event.Producer,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		sessions:      sessions,
		clients:       clients,
		notifications: notifications,
		producer:      producer,
		logger:        logger,
	}
}

// CreateSessionInput holds the parameters for scheduling a session.
type CreateSessionInput struct {
	ClientID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Notes           string
}

// UpdateSessionInput holds the editable session fields.
type UpdateSessionInput struct {
	ScheduledAt     *time.Time
	DurationMinutes *int
	Notes           *string
}

// Create schedules a session between the psychologist and one of their own
// clients.
func (s *SessionService) Create(ctx context.Context, psychologistID string, input CreateSessionInput) (*domain.Session, error) {
	if input.ClientID == "" {
		return nil, apperrors.InvalidInput("client id is required")
	}
	if input.ScheduledAt.Before(time.Now().UTC()) {
		return nil, apperrors.InvalidInput("session must be scheduled in the future")
	}
	if input.DurationMinutes < minSessionDuration || input.DurationMinutes > maxSessionDuration {
		return nil, apperrors.InvalidInput(fmt.Sprintf("duration must be between %d and %d minutes", minSessionDuration, maxSessionDuration))
	}

	if err := s.checkPairing(ctx, psychologistID, input.ClientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:              uuid.New().String(),
		PsychologistID:  psychologistID,
		ClientID:        input.ClientID,
		ScheduledAt:     input.ScheduledAt.UTC(),
		DurationMinutes: input.DurationMinutes,
		Status:          domain.SessionScheduled,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.notifications.Notify(ctx, session.ClientID, domain.NotificationSessionCreated,
		"Session scheduled",
		fmt.Sprintf("A session was scheduled for %s", session.ScheduledAt.Format("02.01.2006 15:04")),
	)

	if s.producer != nil {
		if err := s.producer.PublishSessionScheduled(ctx, session); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish session.scheduled event",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", session.ID),
		slog.String("psychologist_id", psychologistID),
		slog.String("client_id", input.ClientID),
	)

	return session, nil
}

// Get returns a session visible to the given participant.
func (s *SessionService) Get(ctx context.Context, userID, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.PsychologistID != userID && session.ClientID != userID {
		return nil, apperrors.NotFound("session", id)
	}

	return session, nil
}

// ListForPsychologist returns the psychologist's sessions within [from, to).
func (s *SessionService) ListForPsychologist(ctx context.Context, psychologistID string, from, to time.Time) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByPsychologist(ctx, psychologistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ListForClient returns the client's sessions within [from, to).
func (s *SessionService) ListForClient(ctx context.Context, clientID string, from, to time.Time) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByClient(ctx, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Update reschedules or annotates a session. Only the owning psychologist may
// update, and only while the session is active.
func (s *SessionService) Update(ctx context.Context, psychologistID, id string, input UpdateSessionInput) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session for update: %w", err)
	}
	if session.PsychologistID != psychologistID {
		return nil, apperrors.NotFound("session", id)
	}
	if !session.IsActive() {
		return nil, apperrors.Conflict("session is no longer active")
	}

	rescheduled := false
	if input.ScheduledAt != nil {
		if input.ScheduledAt.Before(time.Now().UTC()) {
			return nil, apperrors.InvalidInput("session must be scheduled in the future")
		}
		if !input.ScheduledAt.Equal(session.ScheduledAt) {
			session.ScheduledAt = input.ScheduledAt.UTC()
			session.Status = domain.SessionRescheduled
			// A moved session needs its reminders again.
			session.Reminder24hSent = false
			session.Reminder1hSent = false
			rescheduled = true
		}
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes < minSessionDuration || *input.DurationMinutes > maxSessionDuration {
			return nil, apperrors.InvalidInput(fmt.Sprintf("duration must be between %d and %d minutes", minSessionDuration, maxSessionDuration))
		}
		session.DurationMinutes = *input.DurationMinutes
	}
	if input.Notes != nil {
		session.Notes = *input.Notes
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if rescheduled {
		s.notifications.Notify(ctx, session.ClientID, domain.NotificationSessionUpdated,
			"Session rescheduled",
			fmt.Sprintf("Your session was moved to %s", session.ScheduledAt.Format("02.01.2006 15:04")),
		)
	}

	s.logger.InfoContext(ctx, "session updated", slog.String("session_id", id))
	return session, nil
}

// Cancel cancels a session. Psychologists may cancel anytime; clients only
// with at least 12 hours of lead time.
func (s *SessionService) Cancel(ctx context.Context, userID, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session for cancel: %w", err)
	}

	if session.PsychologistID != userID && session.ClientID != userID {
		return nil, apperrors.NotFound("session", id)
	}

	now := time.Now().UTC()
	if !session.CancellableBy(userID, now) {
		if !session.IsActive() {
			return nil, apperrors.Conflict("session is no longer active")
		}
		return nil, apperrors.Forbidden("sessions can be cancelled no later than 12 hours before start")
	}

	session.Status = domain.SessionCancelled
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("cancel session: %w", err)
	}

	// Notify the other participant.
	recipient := session.ClientID
	if userID == session.ClientID {
		recipient = session.PsychologistID
	}
	s.notifications.Notify(ctx, recipient, domain.NotificationSessionCancelled,
		"Session cancelled",
		fmt.Sprintf("The session on %s was cancelled", session.ScheduledAt.Format("02.01.2006 15:04")),
	)

	if s.producer != nil {
		if err := s.producer.PublishSessionCancelled(ctx, session); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish session.cancelled event",
				slog.String("session_id", session.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "session cancelled",
		slog.String("session_id", id),
		slog.String("by", userID),
	)

	return session, nil
}

// Confirm lets the client confirm an upcoming session.
func (s *SessionService) Confirm(ctx context.Context, clientID, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session for confirm: %w", err)
	}
	if session.ClientID != clientID {
		return nil, apperrors.NotFound("session", id)
	}
	if session.Status != domain.SessionScheduled && session.Status != domain.SessionRescheduled {
		return nil, apperrors.Conflict("only scheduled sessions can be confirmed")
	}

	session.Status = domain.SessionConfirmed
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("confirm session: %w", err)
	}

	s.notifications.Notify(ctx, session.PsychologistID, domain.NotificationSessionConfirmed,
		"Session confirmed",
		fmt.Sprintf("The session on %s was confirmed", session.ScheduledAt.Format("02.01.2006 15:04")),
	)

	s.logger.InfoContext(ctx, "session confirmed", slog.String("session_id", id))
	return session, nil
}

// Complete lets the psychologist mark a session as held.
func (s *SessionService) Complete(ctx context.Context, psychologistID, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session for complete: %w", err)
	}
	if session.PsychologistID != psychologistID {
		return nil, apperrors.NotFound("session", id)
	}
	if !session.IsActive() {
		return nil, apperrors.Conflict("session is no longer active")
	}

	session.Status = domain.SessionCompleted
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}

	s.logger.InfoContext(ctx, "session completed", slog.String("session_id", id))
	return session, nil
}

// checkPairing verifies the client belongs to the psychologist.
func (s *SessionService) checkPairing(ctx context.Context, psychologistID, clientID string) error {
	profile, err := s.clients.GetByUserID(ctx, clientID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("client", clientID)
		}
		return fmt.Errorf("get client profile: %w", err)
	}

	if profile.PsychologistID == nil || *profile.PsychologistID != psychologistID {
		return apperrors.Forbidden("client is not bound to this psychologist")
	}

	return nil
}

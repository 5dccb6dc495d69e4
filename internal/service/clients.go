package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

// clientHistoryWindow bounds how far back and forward the roster looks when
// resolving a client's last and next session.
const clientHistoryWindow = 365 * 24 * time.Hour

// ClientRosterService gives psychologists a view of their clients.
type ClientRosterService struct {
	clients  repository.ClientProfileRepository
	sessions repository.SessionRepository
	messages repository.MessageRepository
	logger   *slog.Logger
}

// NewClientRosterService creates a new client roster service.
func NewClientRosterService(
	clients repository.ClientProfileRepository,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	logger *slog.Logger,
) *ClientRosterService {
	return &ClientRosterService{
		clients:  clients,
		sessions: sessions,
		messages: messages,
		logger:   logger,
	}
}

// ClientSummary is one roster row.
type ClientSummary struct {
	Profile        domain.ClientProfile `json:"profile"`
	LastSessionAt  *time.Time           `json:"last_session_at,omitempty"`
	NextSessionAt  *time.Time           `json:"next_session_at,omitempty"`
	UnreadMessages int                  `json:"unread_messages"`
}

// ClientDetail is the full view of a single client.
type ClientDetail struct {
	Profile        domain.ClientProfile `json:"profile"`
	Sessions       []domain.Session     `json:"sessions"`
	UnreadMessages int                  `json:"unread_messages"`
}

// List returns the psychologist's clients with session and unread info.
func (s *ClientRosterService) List(ctx context.Context, psychologistID string) ([]ClientSummary, error) {
	profiles, err := s.clients.ListByPsychologist(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	now := time.Now().UTC()
	summaries := make([]ClientSummary, 0, len(profiles))
	for _, profile := range profiles {
		summary := ClientSummary{Profile: profile}

		last, next, err := s.sessionBounds(ctx, profile.UserID, now)
		if err != nil {
			return nil, err
		}
		summary.LastSessionAt = last
		summary.NextSessionAt = next

		unread, err := s.messages.CountUnreadFrom(ctx, psychologistID, profile.UserID)
		if err != nil {
			return nil, fmt.Errorf("count unread from client: %w", err)
		}
		summary.UnreadMessages = unread

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// Get returns the detail view of one client bound to the psychologist.
func (s *ClientRosterService) Get(ctx context.Context, psychologistID, clientID string) (*ClientDetail, error) {
	profile, err := s.clients.GetByUserID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client profile: %w", err)
	}
	if profile.PsychologistID == nil || *profile.PsychologistID != psychologistID {
		return nil, apperrors.NotFound("client", clientID)
	}

	now := time.Now().UTC()
	sessions, err := s.sessions.ListByClient(ctx, clientID, now.Add(-clientHistoryWindow), now.Add(clientHistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("list client sessions: %w", err)
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}

	unread, err := s.messages.CountUnreadFrom(ctx, psychologistID, clientID)
	if err != nil {
		return nil, fmt.Errorf("count unread from client: %w", err)
	}

	return &ClientDetail{
		Profile:        *profile,
		Sessions:       sessions,
		UnreadMessages: unread,
	}, nil
}

// sessionBounds finds the client's most recent completed or past session and
// their soonest upcoming one within the roster window.
func (s *ClientRosterService) sessionBounds(ctx context.Context, clientID string, now time.Time) (last, next *time.Time, err error) {
	sessions, err := s.sessions.ListByClient(ctx, clientID, now.Add(-clientHistoryWindow), now.Add(clientHistoryWindow))
	if err != nil {
		return nil, nil, fmt.Errorf("list client sessions: %w", err)
	}

	for i := range sessions {
		session := &sessions[i]
		if session.Status == domain.SessionCancelled {
			continue
		}
		at := session.ScheduledAt
		if at.Before(now) {
			if last == nil || at.After(*last) {
				t := at
				last = &t
			}
		} else if session.IsActive() {
			if next == nil || at.Before(*next) {
				t := at
				next = &t
			}
		}
	}

	return last, next, nil
}

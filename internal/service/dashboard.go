package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// journalStreakLookback caps how many recent entries the streak calculation
// inspects.
const journalStreakLookback = 100

// DashboardService assembles the landing views for both roles.
type DashboardService struct {
	sessions        repository.SessionRepository
	clients         repository.ClientProfileRepository
	recommendations repository.RecommendationRepository
	messages        repository.MessageRepository
	journal         repository.JournalRepository
	logger          *slog.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	sessions repository.SessionRepository,
	clients repository.ClientProfileRepository,
	recommendations repository.RecommendationRepository,
	messages repository.MessageRepository,
	journal repository.JournalRepository,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		sessions:        sessions,
		clients:         clients,
		recommendations: recommendations,
		messages:        messages,
		journal:         journal,
		logger:          logger,
	}
}

// PsychologistDashboard is the psychologist's landing view.
type PsychologistDashboard struct {
	TodaySessions          []domain.Session `json:"today_sessions"`
	ActiveClients          int              `json:"active_clients"`
	ActiveRecommendations  int              `json:"active_recommendations"`
	OverdueRecommendations int              `json:"overdue_recommendations"`
	UnreadMessages         int              `json:"unread_messages"`
}

// ClientDashboard is the client's landing view.
type ClientDashboard struct {
	NextSession           *domain.Session         `json:"next_session,omitempty"`
	ActiveRecommendations []domain.Recommendation `json:"active_recommendations"`
	UnreadMessages        int                     `json:"unread_messages"`
	JournalStreakDays     int                     `json:"journal_streak_days"`
}

// ForPsychologist builds the psychologist dashboard.
func (s *DashboardService) ForPsychologist(ctx context.Context, psychologistID string) (*PsychologistDashboard, error) {
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	today, err := s.sessions.ListByPsychologist(ctx, psychologistID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list today's sessions: %w", err)
	}
	if today == nil {
		today = []domain.Session{}
	}

	profiles, err := s.clients.ListByPsychologist(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	recs, err := s.recommendations.ListByPsychologist(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	active, overdue := 0, 0
	for i := range recs {
		switch recs[i].Status {
		case domain.RecommendationActive:
			active++
		case domain.RecommendationOverdue:
			overdue++
		}
	}

	unread, err := s.messages.CountUnread(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}

	return &PsychologistDashboard{
		TodaySessions:          today,
		ActiveClients:          len(profiles),
		ActiveRecommendations:  active,
		OverdueRecommendations: overdue,
		UnreadMessages:         unread,
	}, nil
}

// ForClient builds the client dashboard.
func (s *DashboardService) ForClient(ctx context.Context, clientID string) (*ClientDashboard, error) {
	now := time.Now().UTC()

	upcoming, err := s.sessions.ListByClient(ctx, clientID, now, now.Add(clientHistoryWindow))
	if err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	var next *domain.Session
	for i := range upcoming {
		session := &upcoming[i]
		if !session.IsActive() {
			continue
		}
		if next == nil || session.ScheduledAt.Before(next.ScheduledAt) {
			next = session
		}
	}

	recs, err := s.recommendations.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	activeRecs := make([]domain.Recommendation, 0, len(recs))
	for i := range recs {
		if recs[i].Status == domain.RecommendationActive || recs[i].Status == domain.RecommendationOverdue {
			activeRecs = append(activeRecs, recs[i])
		}
	}

	unread, err := s.messages.CountUnread(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("count unread messages: %w", err)
	}

	streak, err := s.journalStreak(ctx, clientID, now)
	if err != nil {
		return nil, fmt.Errorf("compute journal streak: %w", err)
	}

	return &ClientDashboard{
		NextSession:           next,
		ActiveRecommendations: activeRecs,
		UnreadMessages:        unread,
		JournalStreakDays:     streak,
	}, nil
}

// journalStreak counts consecutive calendar days with at least one entry,
// ending today or yesterday. A day without entries before that breaks the run.
func (s *DashboardService) journalStreak(ctx context.Context, clientID string, now time.Time) (int, error) {
	entries, _, err := s.journal.ListByClient(ctx, clientID, pagination.Params{
		Page:    1,
		PerPage: journalStreakLookback,
	})
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}

	expected := day(now)
	latest := day(entries[0].CreatedAt)
	if latest.Before(expected.AddDate(0, 0, -1)) {
		return 0, nil
	}
	expected = latest

	streak := 0
	for i := range entries {
		entryDay := day(entries[i].CreatedAt)
		switch {
		case entryDay.Equal(expected):
			streak++
			expected = expected.AddDate(0, 0, -1)
		case entryDay.After(expected):
			// Another entry on a day already counted.
			continue
		default:
			return streak, nil
		}
	}

	return streak, nil
}

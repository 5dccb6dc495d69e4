package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/internal/service"
)

// Sweep cadence and retention windows.
const (
	reminderInterval = 30 * time.Minute
	cleanupInterval  = 24 * time.Hour

	journalRetention      = 3 * 365 * 24 * time.Hour
	notificationRetention = 183 * 24 * time.Hour
)

// Scheduler runs the periodic background jobs: session reminders, the overdue
// recommendation sweep and data retention cleanup.
type Scheduler struct {
	sessions        repository.SessionRepository
	journal         repository.JournalRepository
	inbox           repository.NotificationRepository
	invites         repository.InviteRepository
	recommendations *service.RecommendationService
	notifications   *service.NotificationService
	logger          *slog.Logger
}

// New creates a scheduler.
func New(
	sessions repository.SessionRepository,
	journal repository.JournalRepository,
	inbox repository.NotificationRepository,
	invites repository.InviteRepository,
	recommendations *service.RecommendationService,
	notifications *service.NotificationService,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		sessions:        sessions,
		journal:         journal,
		inbox:           inbox,
		invites:         invites,
		recommendations: recommendations,
		notifications:   notifications,
		logger:          logger,
	}
}

// Run blocks until the context is cancelled, firing the sweeps on their
// tickers. One sweep failing is logged and does not stop the others.
func (s *Scheduler) Run(ctx context.Context) {
	reminders := time.NewTicker(reminderInterval)
	defer reminders.Stop()
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	s.logger.InfoContext(ctx, "scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return
		case <-reminders.C:
			if err := s.SweepReminders(ctx, time.Now().UTC()); err != nil {
				s.logger.ErrorContext(ctx, "reminder sweep failed",
					slog.String("error", err.Error()))
			}
		case <-cleanup.C:
			now := time.Now().UTC()
			if err := s.Cleanup(ctx, now); err != nil {
				s.logger.ErrorContext(ctx, "cleanup sweep failed",
					slog.String("error", err.Error()))
			}
			if flagged, err := s.recommendations.SweepOverdue(ctx, now); err != nil {
				s.logger.ErrorContext(ctx, "overdue recommendation sweep failed",
					slog.String("error", err.Error()))
			} else if flagged > 0 {
				s.logger.InfoContext(ctx, "flagged overdue recommendations",
					slog.Int("count", flagged))
			}
		}
	}
}

// SweepReminders sends the 24 hour and 1 hour session reminders. Each session
// carries a sent flag per window so a reminder goes out at most once.
func (s *Scheduler) SweepReminders(ctx context.Context, now time.Time) error {
	windows := []struct {
		window   time.Duration
		notif    string
		title    string
		template string
	}{
		{24 * time.Hour, domain.NotificationSessionReminder24h,
			"Session tomorrow", "You have a session scheduled for %s"},
		{time.Hour, domain.NotificationSessionReminder1h,
			"Session in an hour", "Your session starts at %s"},
	}

	for _, w := range windows {
		due, err := s.sessions.ListNeedingReminder(ctx, now, w.window)
		if err != nil {
			return fmt.Errorf("list sessions needing %s reminder: %w", w.window, err)
		}

		for i := range due {
			session := &due[i]
			body := fmt.Sprintf(w.template, session.ScheduledAt.Format("02.01.2006 15:04"))
			s.notifications.Notify(ctx, session.ClientID, w.notif, w.title, body)
			s.notifications.Notify(ctx, session.PsychologistID, w.notif, w.title, body)

			if err := s.sessions.MarkReminderSent(ctx, session.ID, w.window); err != nil {
				s.logger.ErrorContext(ctx, "failed to mark reminder sent",
					slog.String("session_id", session.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return nil
}

// Cleanup enforces the retention policy: journal entries older than three
// years, notifications older than six months and expired invites are removed.
func (s *Scheduler) Cleanup(ctx context.Context, now time.Time) error {
	journalRemoved, err := s.journal.DeleteOlderThan(ctx, now.Add(-journalRetention))
	if err != nil {
		return fmt.Errorf("delete old journal entries: %w", err)
	}

	inboxRemoved, err := s.inbox.DeleteOlderThan(ctx, now.Add(-notificationRetention))
	if err != nil {
		return fmt.Errorf("delete old notifications: %w", err)
	}

	invitesRemoved, err := s.invites.DeleteExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired invites: %w", err)
	}

	s.logger.InfoContext(ctx, "retention cleanup done",
		slog.Int64("journal_entries", journalRemoved),
		slog.Int64("notifications", inboxRemoved),
		slog.Int64("invites", invitesRemoved),
	)

	return nil
}

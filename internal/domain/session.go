package domain

import "time"

// Session status values.
const (
	SessionScheduled   = "SCHEDULED"
	SessionConfirmed   = "CONFIRMED"
	SessionInProgress  = "IN_PROGRESS"
	SessionCompleted   = "COMPLETED"
	SessionCancelled   = "CANCELLED"
	SessionRescheduled = "RESCHEDULED"
)

// ClientCancelWindow is the minimum lead time a client needs to cancel a
// session. Psychologists may cancel at any time.
const ClientCancelWindow = 12 * time.Hour

// Session is a scheduled therapy appointment between a psychologist and one
// of their clients.
type Session struct {
	ID              string    `json:"id"`
	PsychologistID  string    `json:"psychologist_id"`
	ClientID        string    `json:"client_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	Reminder24hSent bool      `json:"-"`
	Reminder1hSent  bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsActive reports whether the session still occupies its time slot.
func (s *Session) IsActive() bool {
	return s.Status == SessionScheduled || s.Status == SessionConfirmed ||
		s.Status == SessionInProgress || s.Status == SessionRescheduled
}

// CancellableBy reports whether the given user may cancel the session at the
// given time. Clients must respect the cancel window.
func (s *Session) CancellableBy(userID string, now time.Time) bool {
	if !s.IsActive() {
		return false
	}
	if userID == s.PsychologistID {
		return true
	}
	if userID == s.ClientID {
		// Exactly ClientCancelWindow of lead time is still enough.
		return !s.ScheduledAt.Before(now.Add(ClientCancelWindow))
	}
	return false
}

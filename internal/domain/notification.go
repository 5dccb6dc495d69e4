package domain

import "time"

// Notification types.
const (
	NotificationNewMessage            = "NEW_MESSAGE"
	NotificationSessionReminder24h    = "SESSION_REMINDER_24H"
	NotificationSessionReminder1h     = "SESSION_REMINDER_1H"
	NotificationSessionCreated        = "SESSION_CREATED"
	NotificationSessionUpdated        = "SESSION_UPDATED"
	NotificationSessionCancelled      = "SESSION_CANCELLED"
	NotificationSessionConfirmed      = "SESSION_CONFIRMED"
	NotificationNewRecommendation     = "NEW_RECOMMENDATION"
	NotificationRecommendationUpdated = "RECOMMENDATION_UPDATED"
	NotificationRecommendationOverdue = "RECOMMENDATION_OVERDUE"
	NotificationVerificationApproved  = "VERIFICATION_APPROVED"
	NotificationVerificationRejected  = "VERIFICATION_REJECTED"
	NotificationJournalReminder       = "JOURNAL_REMINDER"
	NotificationSystemAnnouncement    = "SYSTEM_ANNOUNCEMENT"
	NotificationInfo                  = "INFO"
)

// Notification is a per-user inbox record, optionally pushed over the
// WebSocket connection when the recipient is online.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

package repository

import (
	"context"
	"time"

	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/pkg/pagination"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByPhone retrieves a user by their phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)

	// UpdatePhone re-keys a user to a new phone number.
	UpdatePhone(ctx context.Context, id, phone string) error

	// List returns a page of users, optionally filtered by role.
	List(ctx context.Context, role string, params pagination.Params) ([]domain.User, int, error)

	// CountByRole returns the number of users with the given role.
	CountByRole(ctx context.Context, role string) (int, error)

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// PsychologistProfileRepository defines psychologist profile persistence.
type PsychologistProfileRepository interface {
	// Create inserts a new profile for the given user.
	Create(ctx context.Context, profile *domain.PsychologistProfile) error

	// GetByUserID retrieves a profile by the owning user's identifier.
	GetByUserID(ctx context.Context, userID string) (*domain.PsychologistProfile, error)

	// Update modifies an existing profile.
	Update(ctx context.Context, profile *domain.PsychologistProfile) error

	// ListUnverified returns profiles awaiting verification review.
	ListUnverified(ctx context.Context) ([]domain.PsychologistProfile, error)

	// SetVerification records a verification decision for the given user.
	SetVerification(ctx context.Context, userID, status, reason string) error

	// SetVerificationDocument stores the uploaded document key and resets the
	// verification status to pending.
	SetVerificationDocument(ctx context.Context, userID, documentKey string) error
}

// ClientProfileRepository defines client profile persistence.
type ClientProfileRepository interface {
	// Create inserts a new profile for the given user.
	Create(ctx context.Context, profile *domain.ClientProfile) error

	// GetByUserID retrieves a profile by the owning user's identifier.
	GetByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error)

	// Update modifies an existing profile.
	Update(ctx context.Context, profile *domain.ClientProfile) error

	// ListByPsychologist returns all clients bound to the given psychologist.
	ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.ClientProfile, error)
}

// InviteRepository defines invite persistence.
type InviteRepository interface {
	// Create inserts a new invite.
	Create(ctx context.Context, invite *domain.Invite) error

	// GetByToken retrieves an invite by its token.
	GetByToken(ctx context.Context, token string) (*domain.Invite, error)

	// MarkUsed consumes the invite for the given user. Returns
	// apperrors.ErrGone when the invite was already consumed, so concurrent
	// registrations cannot share one invite.
	MarkUsed(ctx context.Context, id, usedBy string) error

	// ListByPsychologist returns all invites created by the given psychologist.
	ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.Invite, error)

	// Delete removes an invite owned by the given psychologist.
	Delete(ctx context.Context, id, psychologistID string) error

	// DeleteExpired removes invites whose expiry is before the cutoff.
	// Returns the number of rows removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionRepository defines therapy session persistence.
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// Update modifies an existing session.
	Update(ctx context.Context, session *domain.Session) error

	// ListByPsychologist returns sessions for a psychologist within [from, to).
	ListByPsychologist(ctx context.Context, psychologistID string, from, to time.Time) ([]domain.Session, error)

	// ListByClient returns sessions for a client within [from, to).
	ListByClient(ctx context.Context, clientID string, from, to time.Time) ([]domain.Session, error)

	// ListNeedingReminder returns active sessions starting within the window
	// after now whose reminder flag for that window is not yet set.
	ListNeedingReminder(ctx context.Context, now time.Time, window time.Duration) ([]domain.Session, error)

	// MarkReminderSent sets the reminder flag for the given window.
	MarkReminderSent(ctx context.Context, id string, window time.Duration) error
}

// RecommendationRepository defines recommendation persistence.
type RecommendationRepository interface {
	// Create inserts a new recommendation.
	Create(ctx context.Context, rec *domain.Recommendation) error

	// GetByID retrieves a recommendation by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Recommendation, error)

	// Update modifies an existing recommendation.
	Update(ctx context.Context, rec *domain.Recommendation) error

	// Delete removes a recommendation owned by the given psychologist.
	Delete(ctx context.Context, id, psychologistID string) error

	// ListByClient returns recommendations assigned to the given client.
	ListByClient(ctx context.Context, clientID string) ([]domain.Recommendation, error)

	// ListByPsychologist returns recommendations created by the given psychologist.
	ListByPsychologist(ctx context.Context, psychologistID string) ([]domain.Recommendation, error)

	// ListActiveDueBefore returns active recommendations whose due date has
	// passed. Used by the overdue sweep.
	ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Recommendation, error)
}

// JournalRepository defines journal entry persistence.
type JournalRepository interface {
	// Create inserts a new journal entry.
	Create(ctx context.Context, entry *domain.JournalEntry) error

	// GetByID retrieves an entry by its identifier.
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)

	// Update modifies an existing entry.
	Update(ctx context.Context, entry *domain.JournalEntry) error

	// Delete removes an entry owned by the given client.
	Delete(ctx context.Context, id, clientID string) error

	// ListByClient returns a page of the client's entries, newest first.
	ListByClient(ctx context.Context, clientID string, params pagination.Params) ([]domain.JournalEntry, int, error)

	// CountForDay returns how many entries the client created on the given day.
	CountForDay(ctx context.Context, clientID string, day time.Time) (int, error)

	// DeleteOlderThan removes entries created before the cutoff. Returns the
	// number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageRepository defines chat message persistence.
type MessageRepository interface {
	// Create inserts a new message.
	Create(ctx context.Context, msg *domain.Message) error

	// GetConversation returns a page of messages between two users, newest first.
	GetConversation(ctx context.Context, userA, userB string, params pagination.Params) ([]domain.Message, int, error)

	// CountUnread returns the number of unread messages addressed to the user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// CountUnreadFrom returns the number of unread messages from a specific peer.
	CountUnreadFrom(ctx context.Context, userID, peerID string) (int, error)

	// MarkConversationRead marks all messages from peer to user as read.
	// Returns the number of messages updated.
	MarkConversationRead(ctx context.Context, userID, peerID string) (int64, error)
}

// NotificationRepository defines notification persistence.
type NotificationRepository interface {
	// Create inserts a new notification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListByUser returns a page of the user's notifications, newest first.
	ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Notification, int, error)

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks a single notification as read.
	MarkRead(ctx context.Context, id, userID string) error

	// MarkAllRead marks every notification of the user as read.
	MarkAllRead(ctx context.Context, userID string) error

	// Delete removes a notification owned by the user.
	Delete(ctx context.Context, id, userID string) error

	// DeleteOlderThan removes notifications created before the cutoff.
	// Returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OTPStore manages one-time verification codes with throttling and blocking.
type OTPStore interface {
	// Issue generates and stores a fresh code for the phone. Fails with
	// apperrors.ErrBlocked while the phone is blocked and
	// apperrors.ErrThrottled inside the resend cooldown.
	Issue(ctx context.Context, phone string) (string, error)

	// Verify checks the submitted code. A correct code is consumed and the
	// attempt counter cleared. A wrong code increments the counter; the third
	// failure blocks the phone. Fails with apperrors.ErrBlocked,
	// apperrors.ErrInvalidCredentials or apperrors.ErrTooManyAttempts.
	Verify(ctx context.Context, phone, code string) error

	// LastCode returns the most recent code issued to the phone, for the
	// admin debug console. Empty when none is active.
	LastCode(ctx context.Context, phone string) (string, error)

	// RecentCodes returns the most recently issued codes, newest first.
	RecentCodes(ctx context.Context, limit int) ([]string, error)

	// ActiveCodes returns all phones with a currently active code.
	ActiveCodes(ctx context.Context) (map[string]string, error)
}

// TokenRegistry tracks the current refresh token per account and revoked
// tokens. The registry is the source of truth for refresh single-use.
type TokenRegistry interface {
	// StoreRefresh records the current refresh token for the phone.
	StoreRefresh(ctx context.Context, phone, token string, ttl time.Duration) error

	// CurrentRefresh returns the refresh token currently on record for the
	// phone. Fails with apperrors.ErrNotFound when none is stored.
	CurrentRefresh(ctx context.Context, phone string) (string, error)

	// DeleteRefresh removes the refresh token record for the phone.
	DeleteRefresh(ctx context.Context, phone string) error

	// Blacklist marks a token as revoked for the given duration.
	Blacklist(ctx context.Context, token string, ttl time.Duration) error

	// IsBlacklisted reports whether the token has been revoked.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

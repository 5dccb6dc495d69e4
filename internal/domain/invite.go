package domain

import "time"

// InviteTTL is how long an invite stays valid after creation.
const InviteTTL = 7 * 24 * time.Hour

// Invite is a single-use registration link from a psychologist to a future
// client.
type Invite struct {
	ID             string    `json:"id"`
	PsychologistID string    `json:"psychologist_id"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
	Used           bool      `json:"used"`
	UsedBy         *string   `json:"used_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsExpired reports whether the invite is past its expiry.
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsUsable reports whether the invite can still be consumed.
func (i *Invite) IsUsable(now time.Time) bool {
	return !i.Used && !i.IsExpired(now)
}

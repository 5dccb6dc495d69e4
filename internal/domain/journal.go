package domain

import "time"

// Mood values a client can attach to a journal entry.
const (
	MoodGreat   = "GREAT"
	MoodGood    = "GOOD"
	MoodNeutral = "NEUTRAL"
	MoodBad     = "BAD"
	MoodAwful   = "AWFUL"
)

// Journal limits.
const (
	MaxJournalEntryLength   = 5000
	MaxJournalEntriesPerDay = 10
)

// ValidMoods returns the set of allowed mood values.
func ValidMoods() []string {
	return []string{MoodGreat, MoodGood, MoodNeutral, MoodBad, MoodAwful}
}

// IsValidMood checks whether the given mood string is allowed.
func IsValidMood(mood string) bool {
	for _, m := range ValidMoods() {
		if m == mood {
			return true
		}
	}
	return false
}

// JournalEntry is a private diary record belonging to a client. Entries are
// never visible to the psychologist.
type JournalEntry struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Text      string    `json:"text"`
	Mood      string    `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

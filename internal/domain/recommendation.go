package domain

import "time"

// Recommendation status values.
const (
	RecommendationActive    = "ACTIVE"
	RecommendationCompleted = "COMPLETED"
	RecommendationOverdue   = "OVERDUE"
)

// MaxRecommendationLength caps the recommendation text size.
const MaxRecommendationLength = 5000

// Recommendation is an assignment from a psychologist to one of their
// clients, optionally with a due date.
type Recommendation struct {
	ID             string     `json:"id"`
	PsychologistID string     `json:"psychologist_id"`
	ClientID       string     `json:"client_id"`
	Text           string     `json:"text"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         string     `json:"status"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

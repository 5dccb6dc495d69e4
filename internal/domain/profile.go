package domain

import "time"

// Verification status values for psychologist profiles.
const (
	VerificationPending  = "PENDING"
	VerificationApproved = "APPROVED"
	VerificationRejected = "REJECTED"
)

// PsychologistProfile holds the public and verification data of a psychologist.
type PsychologistProfile struct {
	UserID               string    `json:"user_id"`
	FullName             string    `json:"full_name"`
	About                string    `json:"about"`
	Specializations      []string  `json:"specializations"`
	Education            string    `json:"education"`
	ExperienceYears      int       `json:"experience_years"`
	SessionPrice         int64     `json:"session_price"`
	Verified             bool      `json:"verified"`
	VerificationStatus   string    `json:"verification_status"`
	VerificationDocument string    `json:"-"`
	RejectionReason      string    `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ClientProfile holds a client's personal data and their binding to a
// psychologist. PsychologistID is nil until the client registers via invite.
type ClientProfile struct {
	UserID         string     `json:"user_id"`
	FullName       string     `json:"full_name"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	PsychologistID *string    `json:"psychologist_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

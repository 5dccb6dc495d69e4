package domain

import (
	"time"
)

// User represents a registered user in the system. Profile details live in
// role-specific profile records.
type User struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Principal is the authenticated identity attached to a request. Exactly one
// of the profile fields is set, matching the user's role; admins synthesized
// from configuration carry neither.
type Principal struct {
	User         User
	Psychologist *PsychologistProfile
	Client       *ClientProfile
}

// IsAdmin reports whether the principal has the admin role.
func (p *Principal) IsAdmin() bool {
	return p.User.Role == RoleAdmin
}

// IsPsychologist reports whether the principal has the psychologist role.
func (p *Principal) IsPsychologist() bool {
	return p.User.Role == RolePsychologist
}

// IsClient reports whether the principal has the client role.
func (p *Principal) IsClient() bool {
	return p.User.Role == RoleClient
}

// IsVerified reports whether the principal may use the full API surface.
// Clients and admins are always verified; psychologists must have an approved
// verification.
func (p *Principal) IsVerified() bool {
	if !p.IsPsychologist() {
		return true
	}
	return p.Psychologist != nil && p.Psychologist.Verified
}

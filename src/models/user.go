package models

import (
	"time"

	"github.com/google/uuid"
)

// MUser is the authenticated backend user.
type MUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// -----------------------------------------------------------------------------

// MSession holds the backend auth session. A nil session means signed out.
type MSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        MUser     `json:"user"`
}

// -----------------------------------------------------------------------------

// Expired reports whether the session's access token is past its expiry.
func (s *MSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

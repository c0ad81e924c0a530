package domain

import "time"

// Access levels applied to sessions. The level fixes the expiry duration at
// issuance and rotation time and is never recomputed retroactively.
const (
	AccessLevelUser    = "user"
	AccessLevelPremium = "premium"
	AccessLevelAdmin   = "admin"
	AccessLevelOwner   = "owner"
)

// Session is an opaque bearer-token session. The token is both the primary
// key and the credential: 32 bytes of crypto randomness, hex encoded.
type Session struct {
	Token       string     `gorm:"primaryKey;size:64" json:"token"`
	UserID      string     `gorm:"size:255;index" json:"user_id"`
	Email       string     `gorm:"size:255" json:"email,omitempty"`
	AccessLevel string     `gorm:"size:32;not null;default:user" json:"access_level"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	IssuedAt    time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt   time.Time  `gorm:"index;not null" json:"expires_at"`
	LastUsed    time.Time  `gorm:"not null" json:"last_used"`
}

// Expired reports whether the session is logically dead at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

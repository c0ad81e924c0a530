package domain

import "time"

// WhitelistEntry flags an account for extended-duration access outside the
// normal billing tiers. Entries match by user ID or, as a fallback, by email.
type WhitelistEntry struct {
	UserID    string     `gorm:"primaryKey;size:255" json:"user_id"`
	Email     string     `gorm:"size:255;index" json:"email,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the entry is usable at the given instant. A nil
// ExpiresAt means the entry never lapses.
func (e *WhitelistEntry) Active(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

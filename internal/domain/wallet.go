package domain

import "time"

// Wallet is a custodial wallet record. EncryptedPrivateKey holds the vault
// encoding (ciphertext:iv:authTag:salt, base64 fields) and is opaque to every
// layer except the vault.
type Wallet struct {
	ID                  string    `gorm:"primaryKey;size:64" json:"id"`
	UserID              string    `gorm:"size:255;index;not null" json:"user_id"`
	Address             string    `gorm:"size:255;uniqueIndex;not null" json:"address"`
	Chain               string    `gorm:"size:50;not null;default:solana" json:"chain"`
	Nickname            string    `gorm:"size:100" json:"nickname,omitempty"`
	EncryptedPrivateKey string    `gorm:"type:text;not null" json:"-"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

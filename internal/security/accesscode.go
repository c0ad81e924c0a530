package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAccessCode produces the bcrypt hash stored in ACCESS_CODE_HASH.
func HashAccessCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash access code: %w", err)
	}
	return string(hash), nil
}

// VerifyAccessCode checks a presented access code against the configured
// hash. The error is deliberately generic: callers must not be able to
// distinguish a wrong code from a malformed hash.
func VerifyAccessCode(code, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return fmt.Errorf("access code verification failed")
	}
	return nil
}

// Package vault protects custodial private keys at rest. Each secret is
// encrypted under a key derived from the master passphrase and a fresh random
// salt, so the passphrase itself is never stored next to any ciphertext.
//
// The encoded form is a compatibility contract with previously stored
// secrets: four base64 fields joined by ':' in ciphertext:iv:authTag:salt
// order. AES-256-GCM with a 16-byte IV and PBKDF2-SHA256 at 100,000
// iterations, 64-byte salt.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLen        = 32
	ivLen         = 16
	tagLen        = 16
	saltLen       = 64
	kdfIterations = 100_000
	fieldSep      = ":"
	fieldCount    = 4
)

var (
	// ErrMissingMasterSecret indicates a deployment misconfiguration: the
	// master passphrase is absent from process configuration.
	ErrMissingMasterSecret = errors.New("vault: master encryption secret is not configured")

	// ErrMalformedCiphertext indicates the encoded input does not carry four
	// decodable fields. Raised before any cryptographic work.
	ErrMalformedCiphertext = errors.New("vault: malformed encrypted payload")

	// ErrAuthenticationFailed indicates tampered or corrupt ciphertext, or a
	// key derived from the wrong master secret. No partial plaintext is ever
	// released.
	ErrAuthenticationFailed = errors.New("vault: ciphertext authentication failed")
)

// SecretSource yields the current master passphrase. It is consulted on
// every call so the secret is never cached inside the vault.
type SecretSource func() string

type Vault struct {
	secret SecretSource
}

func New(secret SecretSource) *Vault {
	return &Vault{secret: secret}
}

// NewStatic wraps a fixed passphrase, for tests and one-shot CLI use.
func NewStatic(secret string) *Vault {
	return New(func() string { return secret })
}

// Encrypt seals plaintext under a key derived from the master secret and a
// fresh salt, returning the opaque encoded string.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	master := v.secret()
	if master == "" {
		return "", ErrMissingMasterSecret
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("vault: generate salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("vault: generate iv: %w", err)
	}

	aead, err := newAEAD(deriveKey(master, salt))
	if err != nil {
		return "", err
	}

	// Seal appends the auth tag to the ciphertext; the encoding keeps the
	// two as separate fields.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	enc := base64.StdEncoding
	return strings.Join([]string{
		enc.EncodeToString(ciphertext),
		enc.EncodeToString(iv),
		enc.EncodeToString(tag),
		enc.EncodeToString(salt),
	}, fieldSep), nil
}

// Decrypt reverses Encrypt. The key is re-derived from the stored salt and
// the current master secret, so changing the master secret invalidates every
// previously encrypted value.
func (v *Vault) Decrypt(encoded string) (string, error) {
	master := v.secret()
	if master == "" {
		return "", ErrMissingMasterSecret
	}

	parts := strings.Split(encoded, fieldSep)
	if len(parts) != fieldCount {
		return "", ErrMalformedCiphertext
	}
	fields := make([][]byte, fieldCount)
	for i, p := range parts {
		if p == "" {
			return "", ErrMalformedCiphertext
		}
		decoded, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return "", ErrMalformedCiphertext
		}
		fields[i] = decoded
	}
	ciphertext, iv, tag, salt := fields[0], fields[1], fields[2], fields[3]
	if len(iv) != ivLen || len(tag) != tagLen {
		return "", ErrMalformedCiphertext
	}

	aead, err := newAEAD(deriveKey(master, salt))
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}

func deriveKey(master string, salt []byte) []byte {
	return pbkdf2.Key([]byte(master), salt, kdfIterations, keyLen, sha256.New)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	return aead, nil
}

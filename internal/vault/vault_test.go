package vault

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := NewStatic("master-passphrase")
	plaintexts := []string{
		"5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP7",
		"short",
		strings.Repeat("x", 4096),
		"unicode: こんにちは",
	}
	for _, pt := range plaintexts {
		encoded, err := v.Encrypt(pt)
		if err != nil {
			t.Fatalf("encrypt %q: %v", pt, err)
		}
		got, err := v.Decrypt(encoded)
		if err != nil {
			t.Fatalf("decrypt %q: %v", pt, err)
		}
		if got != pt {
			t.Fatalf("round trip mismatch: got %q want %q", got, pt)
		}
	}
}

func TestEncodedFormatHasFourBase64Fields(t *testing.T) {
	v := NewStatic("master-passphrase")
	encoded, err := v.Encrypt("secret-key-material")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	parts := strings.Split(encoded, ":")
	if len(parts) != 4 {
		t.Fatalf("expected 4 fields, got %d in %q", len(parts), encoded)
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("iv field not base64: %v", err)
	}
	if len(iv) != 16 {
		t.Fatalf("expected 16-byte iv, got %d", len(iv))
	}
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("tag field not base64: %v", err)
	}
	if len(tag) != 16 {
		t.Fatalf("expected 16-byte auth tag, got %d", len(tag))
	}
	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		t.Fatalf("salt field not base64: %v", err)
	}
	if len(salt) != 64 {
		t.Fatalf("expected 64-byte salt, got %d", len(salt))
	}
}

func TestEncryptProducesFreshSaltAndIV(t *testing.T) {
	v := NewStatic("master-passphrase")
	a, err := v.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("encrypt a: %v", err)
	}
	b, err := v.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("encrypt b: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct encodings for repeated plaintext")
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	v := NewStatic("master-passphrase")
	encoded, err := v.Encrypt("wallet private key")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for _, field := range []int{0, 2} { // ciphertext, authTag
		parts := strings.Split(encoded, ":")
		raw, err := base64.StdEncoding.DecodeString(parts[field])
		if err != nil {
			t.Fatalf("decode field %d: %v", field, err)
		}
		raw[0] ^= 0x01
		parts[field] = base64.StdEncoding.EncodeToString(raw)
		tampered := strings.Join(parts, ":")

		if _, err := v.Decrypt(tampered); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("field %d: expected ErrAuthenticationFailed, got %v", field, err)
		}
	}
}

func TestDecryptWrongMasterSecretFails(t *testing.T) {
	encoded, err := NewStatic("secret-a").Encrypt("wallet private key")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := NewStatic("secret-b").Decrypt(encoded); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	v := NewStatic("master-passphrase")
	cases := []string{
		"not:enough:parts",
		"",
		":::",
		"a:b:c:d:e",
		"!!!!:JJJJ:KKKK:LLLL",
	}
	for _, input := range cases {
		if _, err := v.Decrypt(input); !errors.Is(err, ErrMalformedCiphertext) {
			t.Fatalf("input %q: expected ErrMalformedCiphertext, got %v", input, err)
		}
	}
}

func TestMissingMasterSecret(t *testing.T) {
	v := NewStatic("")
	if _, err := v.Encrypt("anything"); !errors.Is(err, ErrMissingMasterSecret) {
		t.Fatalf("encrypt: expected ErrMissingMasterSecret, got %v", err)
	}
	if _, err := v.Decrypt("a:b:c:d"); !errors.Is(err, ErrMissingMasterSecret) {
		t.Fatalf("decrypt: expected ErrMissingMasterSecret, got %v", err)
	}
}

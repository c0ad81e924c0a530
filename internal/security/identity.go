package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IdentityClaims is the payload of a signed identity assertion: the upstream
// identity provider vouches for a user and the tier flags that drive session
// issuance. The assertion itself is short-lived; the opaque session token
// minted from it carries the long-lived state.
type IdentityClaims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Premium       bool   `json:"premium,omitempty"`
	AccessLevel   string `json:"access_level,omitempty"`
	jwt.RegisteredClaims
}

// IdentityVerifier validates HS256 identity assertions from the configured
// identity provider.
type IdentityVerifier struct {
	issuer   string
	audience string
	secret   []byte
}

func NewIdentityVerifier(issuer, audience, secret string) *IdentityVerifier {
	return &IdentityVerifier{issuer: issuer, audience: audience, secret: []byte(secret)}
}

// Sign mints an assertion. Production assertions come from the identity
// provider; this is used by the dev CLI and tests.
func (v *IdentityVerifier) Sign(subject, email string, premium bool, accessLevel string, ttl time.Duration) (string, error) {
	claims := IdentityClaims{
		Email:       email,
		Premium:     premium,
		AccessLevel: accessLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			Audience:  []string{v.audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses and validates an assertion, returning its claims.
func (v *IdentityVerifier) Verify(raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience))
	if err != nil {
		return nil, fmt.Errorf("verify identity assertion: %w", err)
	}
	if !tok.Valid {
		return nil, errors.New("invalid identity assertion")
	}
	if claims.Subject == "" {
		return nil, errors.New("identity assertion missing subject")
	}
	return claims, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/darkwavepulse/pulse-access/internal/repository"
	"github.com/darkwavepulse/pulse-access/internal/security"
)

var (
	ErrAccessCodeRejected     = errors.New("access code rejected")
	ErrAccessCodeUnconfigured = errors.New("no access code is configured")
	ErrAssertionRejected      = errors.New("identity assertion rejected")
)

// AccessService turns the two supported entry paths, access-code redemption
// and provider identity assertions, into issued sessions, resolving the
// whitelist along the way.
type AccessService struct {
	sessions  *SessionService
	whitelist repository.WhitelistRepository
	identity  *security.IdentityVerifier

	accessCodeHash string
	logger         *slog.Logger
}

func NewAccessService(sessions *SessionService, whitelist repository.WhitelistRepository, identity *security.IdentityVerifier, accessCodeHash string, logger *slog.Logger) *AccessService {
	return &AccessService{
		sessions:       sessions,
		whitelist:      whitelist,
		identity:       identity,
		accessCodeHash: accessCodeHash,
		logger:         logger,
	}
}

// RedeemAccessCode verifies the shared access code and issues a session for
// the presenting principal.
func (s *AccessService) RedeemAccessCode(ctx context.Context, code, userID, email string) (string, error) {
	if s.accessCodeHash == "" {
		return "", ErrAccessCodeUnconfigured
	}
	if err := security.VerifyAccessCode(code, s.accessCodeHash); err != nil {
		return "", ErrAccessCodeRejected
	}

	token, err := s.sessions.Issue(ctx, IssueParams{
		UserID:      userID,
		Email:       email,
		Whitelisted: s.resolveWhitelisted(ctx, userID, email),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// LoginWithAssertion verifies a signed identity assertion from the identity
// provider and issues a session carrying the asserted tier.
func (s *AccessService) LoginWithAssertion(ctx context.Context, rawAssertion string) (string, error) {
	claims, err := s.identity.Verify(rawAssertion)
	if err != nil {
		return "", ErrAssertionRejected
	}

	var verifiedAt *time.Time
	if claims.EmailVerified {
		now := time.Now().UTC()
		verifiedAt = &now
	}

	token, err := s.sessions.Issue(ctx, IssueParams{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Premium:     claims.Premium,
		Whitelisted: s.resolveWhitelisted(ctx, claims.Subject, claims.Email),
		AccessLevel: claims.AccessLevel,
		VerifiedAt:  verifiedAt,
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// resolveWhitelisted is best effort: a whitelist storage fault downgrades the
// session tier rather than blocking issuance.
func (s *AccessService) resolveWhitelisted(ctx context.Context, userID, email string) bool {
	now := time.Now().UTC()

	entry, err := s.whitelist.FindByUserID(ctx, userID)
	if err == nil {
		return entry.Active(now)
	}
	if !errors.Is(err, repository.ErrWhitelistEntryNotFound) {
		s.logger.Warn("whitelist lookup by user id failed", "error", err)
		return false
	}

	entry, err = s.whitelist.FindByEmail(ctx, email)
	if err == nil {
		return entry.Active(now)
	}
	if !errors.Is(err, repository.ErrWhitelistEntryNotFound) {
		s.logger.Warn("whitelist lookup by email failed", "error", err)
	}
	return false
}

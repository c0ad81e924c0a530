package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/observability"
	"github.com/darkwavepulse/pulse-access/internal/repository"
	"github.com/darkwavepulse/pulse-access/internal/security"
)

// Tier durations are computed at issuance and rotation only, never
// interpolated afterwards.
const (
	freeTierDuration  = 2 * 24 * time.Hour
	premiumDuration   = 30 * 24 * time.Hour
	whitelistDuration = 10 * 365 * 24 * time.Hour

	// Rotation triggers: activity gone stale, or expiry approaching.
	rotationLastUsedThreshold = time.Hour
	rotationExpiryThreshold   = 24 * time.Hour

	// Sessions must belong to a real principal; the demo identity the UI
	// falls back to is never allowed to mint one.
	placeholderUserID = "demo-user"

	negativeCacheNamespace = "session"
	negativeCacheTTL       = 5 * time.Minute
)

var (
	ErrInvalidPrincipal = errors.New("valid user id required for session issuance")
	ErrTokenMissing     = errors.New("session token missing")
	ErrTokenUnknown     = errors.New("session token unknown")
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionUnbound   = errors.New("session carries no user id")
)

type IssueParams struct {
	UserID      string
	Email       string
	Premium     bool
	Whitelisted bool
	// AccessLevel overrides the flag-derived tier when set to admin/owner.
	AccessLevel string
	VerifiedAt  *time.Time
}

type SessionSummary struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	AccessLevel string `json:"access_level"`
}

// VerifyResult is deliberately non-throwing: every auth-negative outcome,
// including storage failures on this hot path, collapses to Valid=false.
type VerifyResult struct {
	Valid   bool
	Rotated bool
	Session *SessionSummary
}

type SessionService struct {
	repo   repository.SessionRepository
	cache  NegativeTokenCacheStore
	logger *slog.Logger

	now      func() time.Time
	newToken func() (string, error)
}

func NewSessionService(repo repository.SessionRepository, cache NegativeTokenCacheStore, logger *slog.Logger) *SessionService {
	if cache == nil {
		cache = NewNoopNegativeTokenCacheStore()
	}
	return &SessionService{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		newToken: security.NewSessionToken,
	}
}

// Issue creates a session for a real principal and returns its bearer token.
// The expiry tier resolves whitelisted > premium > free, unless an explicit
// admin/owner access level is supplied.
func (s *SessionService) Issue(ctx context.Context, p IssueParams) (string, error) {
	if p.UserID == "" || p.UserID == placeholderUserID {
		observability.RecordSessionIssue("none", "invalid_principal")
		return "", ErrInvalidPrincipal
	}

	level := p.AccessLevel
	if level == "" {
		level = domain.AccessLevelUser
	}

	var duration time.Duration
	switch {
	case level == domain.AccessLevelAdmin || level == domain.AccessLevelOwner:
		duration = whitelistDuration
	case p.Whitelisted:
		duration = whitelistDuration
	case p.Premium || level == domain.AccessLevelPremium:
		duration = premiumDuration
		level = domain.AccessLevelPremium
	default:
		duration = freeTierDuration
	}

	token, err := s.newToken()
	if err != nil {
		observability.RecordSessionIssue(level, "error")
		return "", err
	}

	now := s.now().UTC()
	session := &domain.Session{
		Token:       token,
		UserID:      p.UserID,
		Email:       p.Email,
		AccessLevel: level,
		VerifiedAt:  p.VerifiedAt,
		IssuedAt:    now,
		ExpiresAt:   now.Add(duration),
		LastUsed:    now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		observability.RecordSessionIssue(level, "error")
		return "", err
	}
	observability.RecordSessionIssue(level, "success")

	// Opportunistic cleanup; failures are logged inside and never surface.
	go s.sweepAsync()

	return token, nil
}

// VerifyAndRotate validates a bearer token and applies the sliding-window
// rotation protocol. It never returns an error: missing, unknown, expired
// tokens and storage faults all yield Valid=false.
func (s *SessionService) VerifyAndRotate(ctx context.Context, token string) VerifyResult {
	if token == "" {
		observability.RecordSessionVerify("missing")
		return VerifyResult{}
	}

	if hit, err := s.cache.Get(ctx, negativeCacheNamespace, token); err == nil && hit {
		observability.RecordSessionVerify("not_found_cached")
		return VerifyResult{}
	}

	session, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordSessionVerify("not_found")
			if cacheErr := s.cache.Set(ctx, negativeCacheNamespace, token, negativeCacheTTL); cacheErr != nil {
				s.logger.Warn("negative token cache set failed", "error", cacheErr)
			}
			return VerifyResult{}
		}
		s.logger.Error("session lookup failed", "error", err)
		observability.RecordSessionVerify("error")
		return VerifyResult{}
	}

	now := s.now().UTC()
	if session.Expired(now) {
		if err := s.repo.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("expired session delete failed", "error", err)
		}
		observability.RecordSessionVerify("expired")
		return VerifyResult{}
	}

	lastUsedAge := now.Sub(session.LastUsed)
	timeToExpiry := session.ExpiresAt.Sub(now)

	var trigger string
	switch {
	case lastUsedAge > rotationLastUsedThreshold:
		trigger = "stale_activity"
	case timeToExpiry < rotationExpiryThreshold:
		trigger = "near_expiry"
	}

	if trigger == "" {
		if err := s.repo.TouchLastUsed(ctx, token, now); err != nil {
			s.logger.Error("session touch failed", "error", err)
			observability.RecordSessionVerify("error")
			return VerifyResult{}
		}
		observability.RecordSessionVerify("valid")
		return VerifyResult{
			Valid: true,
			Session: &SessionSummary{
				Token:       token,
				UserID:      session.UserID,
				Email:       session.Email,
				AccessLevel: session.AccessLevel,
			},
		}
	}

	rotated, err := s.rotate(ctx, session, now)
	if err != nil {
		// Two requests racing past the staleness check can both rotate; the
		// orphaned successor simply expires. Fail closed on anything else.
		s.logger.Error("session rotation failed", "error", err)
		observability.RecordSessionVerify("error")
		return VerifyResult{}
	}
	observability.RecordSessionVerify("valid")
	observability.RecordSessionRotation(trigger)
	return VerifyResult{Valid: true, Rotated: true, Session: rotated}
}

// rotate issues a successor token with a fresh full-duration expiry computed
// from the session's access level, then retires the old row.
func (s *SessionService) rotate(ctx context.Context, session *domain.Session, now time.Time) (*SessionSummary, error) {
	newToken, err := s.newToken()
	if err != nil {
		return nil, err
	}

	var duration time.Duration
	switch session.AccessLevel {
	case domain.AccessLevelAdmin, domain.AccessLevelOwner:
		duration = whitelistDuration
	case domain.AccessLevelPremium:
		duration = premiumDuration
	default:
		duration = freeTierDuration
	}

	successor := &domain.Session{
		Token:       newToken,
		UserID:      session.UserID,
		Email:       session.Email,
		AccessLevel: session.AccessLevel,
		VerifiedAt:  session.VerifiedAt,
		IssuedAt:    now,
		ExpiresAt:   now.Add(duration),
		LastUsed:    now,
	}
	if err := s.repo.Create(ctx, successor); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteByToken(ctx, session.Token); err != nil {
		return nil, err
	}
	return &SessionSummary{
		Token:       newToken,
		UserID:      session.UserID,
		Email:       session.Email,
		AccessLevel: session.AccessLevel,
	}, nil
}

// CheckRequest is the single-shot request-boundary check: it touches
// last_used but never rotates. Auth-negative outcomes come back as the
// sentinel errors in this package; anything else is an infrastructure fault
// the caller maps to a 500-style response.
func (s *SessionService) CheckRequest(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenMissing
	}

	session, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrTokenUnknown
		}
		return "", err
	}

	now := s.now().UTC()
	if session.Expired(now) {
		if err := s.repo.DeleteByToken(ctx, token); err != nil {
			s.logger.Warn("expired session delete failed", "error", err)
		}
		return "", ErrSessionExpired
	}

	if err := s.repo.TouchLastUsed(ctx, token, now); err != nil {
		return "", err
	}
	if session.UserID == "" {
		return "", ErrSessionUnbound
	}
	return session.UserID, nil
}

// Revoke deletes the session. Revoking an absent token is not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteByToken(ctx, token)
}

// CleanupExpired purges every strictly expired session row.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	purged, err := s.repo.DeleteExpiredBefore(ctx, s.now().UTC())
	if err != nil {
		return purged, err
	}
	if purged > 0 {
		observability.RecordSessionSweep(purged)
	}
	return purged, nil
}

func (s *SessionService) sweepAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.CleanupExpired(ctx); err != nil {
		s.logger.Warn("session sweep failed", "error", err)
	}
}

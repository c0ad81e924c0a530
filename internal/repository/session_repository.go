package repository

import (
	"context"
	"errors"
	"time"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository is the persistence contract the session manager relies
// on: atomic single-row insert/update/delete with unique-key semantics on the
// token column. There is no in-process locking above this layer.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	TouchLastUsed(ctx context.Context, token string, at time.Time) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "find_by_token", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "find_by_token", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_by_token", "success")
	return &s, nil
}

func (r *GormSessionRepository) TouchLastUsed(ctx context.Context, token string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("token = ?", token).
		Update("last_used", at).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "touch_last_used", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "touch_last_used", "success")
	return nil
}

// DeleteByToken is idempotent: deleting an absent token is a success.
func (r *GormSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.Session{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_token", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_token", "success")
	return nil
}

// DeleteExpiredBefore purges strictly expired rows. It is safe to run
// concurrently with verify/rotate: the condition is a timestamp comparison,
// never token identity contention.
func (r *GormSessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_expired", "success")
	return res.RowsAffected, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/observability"

	"gorm.io/gorm"
)

var ErrWhitelistEntryNotFound = errors.New("whitelist entry not found")

type WhitelistRepository interface {
	Upsert(ctx context.Context, e *domain.WhitelistEntry) error
	FindByUserID(ctx context.Context, userID string) (*domain.WhitelistEntry, error)
	FindByEmail(ctx context.Context, email string) (*domain.WhitelistEntry, error)
	Delete(ctx context.Context, userID string) error
}

type GormWhitelistRepository struct{ db *gorm.DB }

func NewWhitelistRepository(db *gorm.DB) WhitelistRepository {
	return &GormWhitelistRepository{db: db}
}

func (r *GormWhitelistRepository) Upsert(ctx context.Context, e *domain.WhitelistEntry) error {
	err := r.db.WithContext(ctx).Save(e).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "whitelist", "upsert", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "whitelist", "upsert", "success")
	return nil
}

func (r *GormWhitelistRepository) FindByUserID(ctx context.Context, userID string) (*domain.WhitelistEntry, error) {
	var e domain.WhitelistEntry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "whitelist", "find_by_user_id", "not_found")
			return nil, ErrWhitelistEntryNotFound
		}
		observability.RecordRepositoryOperation(ctx, "whitelist", "find_by_user_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "whitelist", "find_by_user_id", "success")
	return &e, nil
}

func (r *GormWhitelistRepository) FindByEmail(ctx context.Context, email string) (*domain.WhitelistEntry, error) {
	if email == "" {
		return nil, ErrWhitelistEntryNotFound
	}
	var e domain.WhitelistEntry
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "whitelist", "find_by_email", "not_found")
			return nil, ErrWhitelistEntryNotFound
		}
		observability.RecordRepositoryOperation(ctx, "whitelist", "find_by_email", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "whitelist", "find_by_email", "success")
	return &e, nil
}

func (r *GormWhitelistRepository) Delete(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.WhitelistEntry{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "whitelist", "delete", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "whitelist", "delete", "success")
	return nil
}

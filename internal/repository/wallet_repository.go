package repository

import (
	"context"
	"errors"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/observability"

	"gorm.io/gorm"
)

var ErrWalletNotFound = errors.New("wallet not found")

type WalletRepository interface {
	Create(ctx context.Context, w *domain.Wallet) error
	FindByIDForUser(ctx context.Context, userID, walletID string) (*domain.Wallet, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Wallet, error)
	Delete(ctx context.Context, userID, walletID string) error
}

type GormWalletRepository struct{ db *gorm.DB }

func NewWalletRepository(db *gorm.DB) WalletRepository { return &GormWalletRepository{db: db} }

func (r *GormWalletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	err := r.db.WithContext(ctx).Create(w).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "wallet", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "wallet", "create", "success")
	return nil
}

func (r *GormWalletRepository) FindByIDForUser(ctx context.Context, userID, walletID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, walletID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "wallet", "find_by_id_for_user", "not_found")
			return nil, ErrWalletNotFound
		}
		observability.RecordRepositoryOperation(ctx, "wallet", "find_by_id_for_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "wallet", "find_by_id_for_user", "success")
	return &w, nil
}

func (r *GormWalletRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Wallet, error) {
	var wallets []domain.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&wallets).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "wallet", "list_by_user_id", "error")
		return wallets, err
	}
	observability.RecordRepositoryOperation(ctx, "wallet", "list_by_user_id", "success")
	return wallets, nil
}

func (r *GormWalletRepository) Delete(ctx context.Context, userID, walletID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, walletID).Delete(&domain.Wallet{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "wallet", "delete", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "wallet", "delete", "success")
	return nil
}

package service

import (
	"context"
	"fmt"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/observability"
	"github.com/darkwavepulse/pulse-access/internal/repository"
	"github.com/darkwavepulse/pulse-access/internal/vault"

	"github.com/google/uuid"
)

// WalletService stores custodial wallets with their private keys sealed by
// the vault. Plaintext key material exists only transiently inside Import and
// Export and is never logged.
type WalletService struct {
	wallets repository.WalletRepository
	vault   *vault.Vault
}

func NewWalletService(wallets repository.WalletRepository, v *vault.Vault) *WalletService {
	return &WalletService{wallets: wallets, vault: v}
}

func (s *WalletService) Import(ctx context.Context, userID, address, chain, nickname, privateKey string) (*domain.Wallet, error) {
	encrypted, err := s.vault.Encrypt(privateKey)
	if err != nil {
		observability.RecordVaultOperation("encrypt", "error")
		return nil, fmt.Errorf("encrypt wallet key: %w", err)
	}
	observability.RecordVaultOperation("encrypt", "success")

	if chain == "" {
		chain = "solana"
	}
	w := &domain.Wallet{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Address:             address,
		Chain:               chain,
		Nickname:            nickname,
		EncryptedPrivateKey: encrypted,
	}
	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ExportPrivateKey decrypts and returns the key for a signing operation. The
// caller is responsible for discarding it immediately after use.
func (s *WalletService) ExportPrivateKey(ctx context.Context, userID, walletID string) (string, error) {
	w, err := s.wallets.FindByIDForUser(ctx, userID, walletID)
	if err != nil {
		return "", err
	}
	plaintext, err := s.vault.Decrypt(w.EncryptedPrivateKey)
	if err != nil {
		observability.RecordVaultOperation("decrypt", "error")
		return "", fmt.Errorf("decrypt wallet key: %w", err)
	}
	observability.RecordVaultOperation("decrypt", "success")
	return plaintext, nil
}

func (s *WalletService) List(ctx context.Context, userID string) ([]domain.Wallet, error) {
	return s.wallets.ListByUserID(ctx, userID)
}

func (s *WalletService) Delete(ctx context.Context, userID, walletID string) error {
	return s.wallets.Delete(ctx, userID, walletID)
}

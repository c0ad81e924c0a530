package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/http/middleware"
	"github.com/darkwavepulse/pulse-access/internal/http/response"
	"github.com/darkwavepulse/pulse-access/internal/observability"
	"github.com/darkwavepulse/pulse-access/internal/repository"
	"github.com/darkwavepulse/pulse-access/internal/service"
	"github.com/darkwavepulse/pulse-access/internal/vault"
)

type WalletHandler struct {
	wallets *service.WalletService
}

func NewWalletHandler(wallets *service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type importWalletRequest struct {
	Address    string `json:"address"`
	Chain      string `json:"chain"`
	Nickname   string `json:"nickname"`
	PrivateKey string `json:"private_key"`
}

func (h *WalletHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req importWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Address == "" || req.PrivateKey == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "address and private_key are required", nil)
		return
	}

	wallet, err := h.wallets.Import(r.Context(), userID, req.Address, req.Chain, req.Nickname, req.PrivateKey)
	if err != nil {
		if errors.Is(err, vault.ErrMissingMasterSecret) {
			response.Error(w, r, http.StatusServiceUnavailable, "VAULT_UNCONFIGURED", "wallet encryption is not available", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "wallet import failed", nil)
		return
	}

	observability.Audit(r, "wallet_imported", "user_id", userID, "wallet_id", wallet.ID)
	response.JSON(w, r, http.StatusCreated, wallet)
}

func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	wallets, err := h.wallets.List(r.Context(), userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "wallet listing failed", nil)
		return
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	response.JSON(w, r, http.StatusOK, wallets)
}

// Export returns the decrypted private key. Deliberately loud in the audit
// log: every export is an event someone may need to explain later.
func (h *WalletHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	walletID := chi.URLParam(r, "wallet_id")

	key, err := h.wallets.ExportPrivateKey(r.Context(), userID, walletID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWalletNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "wallet not found", nil)
		case errors.Is(err, vault.ErrMissingMasterSecret):
			response.Error(w, r, http.StatusServiceUnavailable, "VAULT_UNCONFIGURED", "wallet encryption is not available", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "wallet export failed", nil)
		}
		return
	}

	observability.Audit(r, "wallet_key_exported", "user_id", userID, "wallet_id", walletID)
	response.JSON(w, r, http.StatusOK, map[string]string{"private_key": key})
}

func (h *WalletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	walletID := chi.URLParam(r, "wallet_id")

	if err := h.wallets.Delete(r.Context(), userID, walletID); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "wallet delete failed", nil)
		return
	}
	observability.Audit(r, "wallet_deleted", "user_id", userID, "wallet_id", walletID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

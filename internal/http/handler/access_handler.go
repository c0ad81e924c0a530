package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/darkwavepulse/pulse-access/internal/http/middleware"
	"github.com/darkwavepulse/pulse-access/internal/http/response"
	"github.com/darkwavepulse/pulse-access/internal/observability"
	"github.com/darkwavepulse/pulse-access/internal/service"
)

// AccessHandler owns the endpoints that turn credentials into sessions and
// back: access-code redemption, identity-assertion login, token verification
// and logout.
type AccessHandler struct {
	access   *service.AccessService
	sessions *service.SessionService
}

func NewAccessHandler(access *service.AccessService, sessions *service.SessionService) *AccessHandler {
	return &AccessHandler{access: access, sessions: sessions}
}

type redeemRequest struct {
	AccessCode string `json:"access_code"`
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
}

type sessionTokenResponse struct {
	SessionToken string `json:"session_token"`
}

func (h *AccessHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.AccessCode == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "access_code is required", nil)
		return
	}

	token, err := h.access.RedeemAccessCode(r.Context(), req.AccessCode, req.UserID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccessCodeRejected):
			observability.Audit(r, "access_code_rejected", "user_id", req.UserID)
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED",
				"Access denied. Please enter the access code.",
				map[string]any{"requiresAccessCode": true})
		case errors.Is(err, service.ErrAccessCodeUnconfigured):
			response.Error(w, r, http.StatusServiceUnavailable, "ACCESS_CODE_UNCONFIGURED", "access code entry is not available", nil)
		case errors.Is(err, service.ErrInvalidPrincipal):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "valid user id required", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session issuance failed", nil)
		}
		return
	}

	observability.Audit(r, "access_code_redeemed", "user_id", req.UserID)
	response.JSON(w, r, http.StatusCreated, sessionTokenResponse{SessionToken: token})
}

type loginRequest struct {
	Assertion string `json:"assertion"`
}

func (h *AccessHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Assertion == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "assertion is required", nil)
		return
	}

	token, err := h.access.LoginWithAssertion(r.Context(), req.Assertion)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssertionRejected):
			observability.Audit(r, "identity_assertion_rejected")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "identity assertion rejected", nil)
		case errors.Is(err, service.ErrInvalidPrincipal):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "valid user id required", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session issuance failed", nil)
		}
		return
	}

	observability.Audit(r, "identity_login")
	response.JSON(w, r, http.StatusCreated, sessionTokenResponse{SessionToken: token})
}

type verifyResponse struct {
	Valid        bool   `json:"valid"`
	Rotated      bool   `json:"rotated,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	AccessLevel  string `json:"access_level,omitempty"`
}

// Verify applies the sliding-window rotation protocol. The endpoint never
// 401s: clients poll it to learn whether their token is still good and to
// pick up replacements.
func (h *AccessHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(middleware.SessionTokenHeader)
	res := h.sessions.VerifyAndRotate(r.Context(), token)
	if !res.Valid {
		response.JSON(w, r, http.StatusOK, verifyResponse{Valid: false})
		return
	}
	out := verifyResponse{
		Valid:       true,
		Rotated:     res.Rotated,
		UserID:      res.Session.UserID,
		AccessLevel: res.Session.AccessLevel,
	}
	if res.Rotated {
		out.SessionToken = res.Session.Token
		observability.Audit(r, "session_rotated", "user_id", res.Session.UserID)
	}
	response.JSON(w, r, http.StatusOK, out)
}

// Logout revokes the presented session. It sits behind SessionAuth, so the
// token in context is known-live.
func (h *AccessHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.SessionTokenFromContext(r.Context())
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	observability.Audit(r, "session_revoked", "user_id", userID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me reports the principal bound to the presented session.
func (h *AccessHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	response.JSON(w, r, http.StatusOK, map[string]string{"user_id": userID})
}

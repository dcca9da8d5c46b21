package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/observability"
	"github.com/site-analyzer/portal/internal/security"
	"github.com/site-analyzer/portal/internal/service"
)

type AuthHandler struct {
	logger     *slog.Logger
	auth       *service.AuthService
	refreshTTL time.Duration
}

func NewAuthHandler(logger *slog.Logger, auth *service.AuthService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth, refreshTTL: refreshTTL}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if err := h.auth.Register(r.Context(), req.Username, req.Password, req.Email); err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Error(w, http.StatusBadRequest, "username already exists")
			return
		}
		h.logger.Error("registration failed", "username", req.Username, "error", err)
		response.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}
	observability.Audit(r, "user_registered", "username", req.Username)
	response.JSON(w, http.StatusCreated, map[string]string{"message": "registered successfully"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			observability.RecordAuthLogin("invalid_credentials")
			response.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		// Revocation store or database unavailable: fail closed rather than
		// issue a session that can never be revoked.
		observability.RecordAuthLogin("error")
		h.logger.Error("login failed", "username", req.Username, "error", err)
		response.Error(w, http.StatusServiceUnavailable, "login temporarily unavailable")
		return
	}
	observability.RecordAuthLogin("success")
	observability.Audit(r, "user_login", "username", result.User.Username)
	security.SetRefreshCookie(w, result.RefreshToken, h.refreshTTL)
	response.JSON(w, http.StatusOK, map[string]string{"accessToken": result.AccessToken})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := security.GetCookie(r, security.RefreshCookieName)
	if refresh == "" {
		observability.RecordAuthRefresh("missing_cookie")
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	access, err := h.auth.Refresh(r.Context(), refresh)
	if err != nil {
		if isTokenRejection(err) {
			// Expired vs invalid vs revoked is for logs only; the client
			// sees one generic rejection.
			observability.RecordAuthRefresh("rejected")
			h.logger.Info("refresh rejected", "reason", err)
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		observability.RecordAuthRefresh("error")
		h.logger.Error("refresh failed", "error", err)
		response.Error(w, http.StatusServiceUnavailable, "refresh temporarily unavailable")
		return
	}
	observability.RecordAuthRefresh("success")
	response.JSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refresh := security.GetCookie(r, security.RefreshCookieName)
	if refresh != "" {
		if err := h.auth.Logout(r.Context(), refresh); err != nil {
			observability.RecordAuthLogout("error")
			h.logger.Error("logout failed", "error", err)
			response.Error(w, http.StatusServiceUnavailable, "logout temporarily unavailable")
			return
		}
	}
	observability.RecordAuthLogout("success")
	security.ClearRefreshCookie(w)
	response.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	refresh := security.GetCookie(r, security.RefreshCookieName)
	if refresh == "" {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.auth.CheckAuth(r.Context(), refresh); err != nil {
		if isTokenRejection(err) {
			response.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.Error("check-auth failed", "error", err)
		response.Error(w, http.StatusServiceUnavailable, "temporarily unavailable")
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func isTokenRejection(err error) bool {
	return errors.Is(err, service.ErrInvalidToken) ||
		errors.Is(err, service.ErrExpiredToken) ||
		errors.Is(err, service.ErrRevokedToken)
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/phdlabs/admind/internal/config"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/server/middleware"
	"github.com/phdlabs/admind/internal/service"
)

// SessionCookie carries the access token for the server rendered console
// pages.
const SessionCookie = "admind_session"

// RefreshCookie carries the console's refresh token so signing out of the
// console can revoke it.
const RefreshCookie = "admind_refresh"

// AuthHandler serves sign in, token refresh, sign out and the identity of the
// current admin.
type AuthHandler struct {
	store         *config.Store
	authSvc       *service.AuthService
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler. secureCookies marks the session
// cookie Secure, for deployments served over HTTPS.
func NewAuthHandler(store *config.Store, authSvc *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{store: store, authSvc: authSvc, secureCookies: secureCookies}
}

// loginRequest is the expected payload for the Login endpoint.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Login authenticates an admin and returns a token pair with the privilege
// matrix.
// POST /api/v1/admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateStruct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthFailure(w, err)
		return
	}

	h.setSessionCookie(w, res.AccessToken)
	writeOK(w, http.StatusOK, "Login successful", res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh rotates the refresh token and issues a new access token.
// POST /api/v1/auth-admin/refresh-token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if msg := validateStruct(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeAuthFailure(w, err)
		return
	}

	h.setSessionCookie(w, res.AccessToken)
	writeOK(w, http.StatusOK, "Token refreshed", res)
}

// Logout revokes the given refresh token, if any, and clears the session
// cookie.
// POST /api/v1/auth-admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.authSvc.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign out: "+err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w, http.StatusOK, "Signed out", nil)
}

// Privileges returns the privilege matrix of the current admin.
// GET /api/v1/privilege
func (h *AuthHandler) Privileges(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	privs, err := h.authSvc.Privileges(r.Context(), principal.AdminID)
	if err != nil {
		writeStoreError(w, err, "Failed to load privileges")
		return
	}
	if privs == nil {
		privs = []model.Privilege{}
	}
	writeOK(w, http.StatusOK, "OK", model.PrivilegesPayload{AdminPrivileges: privs})
}

// Me returns the current admin.
// GET /api/v1/admin/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	admin, err := h.store.GetAdmin(r.Context(), principal.AdminID)
	if err != nil {
		writeStoreError(w, err, "Failed to load admin")
		return
	}
	writeOK(w, http.StatusOK, "OK", admin)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authSvc.AccessTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) writeAuthFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "Account is disabled")
	case errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "Refresh token expired")
	case errors.Is(err, service.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, "Refresh token revoked")
	default:
		writeError(w, http.StatusInternalServerError, "Authentication error: "+err.Error())
	}
}

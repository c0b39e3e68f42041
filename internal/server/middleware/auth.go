package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Principal represents the authenticated admin making the request.
type Principal struct {
	AdminID      int64
	Email        string
	IsSuperAdmin bool
	AdminTypeID  *int64
}

// Authenticate returns an HTTP middleware that validates the JWT bearer token
// in the Authorization header. On success, a Principal is attached to the
// request context. The admin is reloaded on every request, so a deleted or
// deactivated account is refused even while its token has not expired. On
// failure, a 401 envelope is returned.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required. Provide a Bearer token.")
				return
			}

			p, err := authSvc.ValidateJWT(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, service.ErrTokenExpired) {
					msg = "Token expired"
				}
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			admin, err := authSvc.ResolveAdmin(r.Context(), p.AdminID)
			if err != nil {
				if errors.Is(err, service.ErrAccountDisabled) {
					writeAuthError(w, http.StatusUnauthorized, "Account disabled")
					return
				}
				slog.Error("failed to resolve admin", "admin_id", p.AdminID, "error", err)
				writeAuthError(w, http.StatusInternalServerError, "Unable to resolve account")
				return
			}

			setLogAdmin(r.Context(), admin.ID)
			principal := &Principal{
				AdminID:      admin.ID,
				Email:        admin.Email,
				IsSuperAdmin: admin.IsSuperAdmin,
				AdminTypeID:  admin.AdminTypeID,
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrivilege returns an HTTP middleware that checks the principal's
// privilege on functionKey for the access kind of the request method. It must
// be used after Authenticate in the middleware chain.
func RequirePrivilege(authSvc *service.AuthService, functionKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			privs, err := authSvc.Privileges(r.Context(), principal.AdminID)
			if err != nil {
				slog.Error("failed to resolve privileges", "admin_id", principal.AdminID, "error", err)
				writeAuthError(w, http.StatusUnauthorized, "Unable to resolve privileges")
				return
			}

			access := authz.AccessForMethod(r.Method)
			if !privs.Has(functionKey, access) {
				writeAuthError(w, http.StatusForbidden, "You do not have "+string(access)+" access to "+functionKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ApiResponse{
		Message: message,
		Error:   true,
		Code:    status,
	})
}

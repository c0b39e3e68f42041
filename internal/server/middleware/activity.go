package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phdlabs/admind/internal/config"
)

// Activity returns an HTTP middleware that records successful requests of the
// authenticated admin in the activity log under tableName. Reads are only
// recorded when logReads is set. It must be used after Authenticate.
func Activity(store *config.Store, tableName string, logReads bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww, ok := w.(*responseWriter)
			if !ok {
				ww = &responseWriter{ResponseWriter: w, status: http.StatusOK}
			}
			next.ServeHTTP(ww, r)

			if r.Method == http.MethodGet && !logReads {
				return
			}
			if ww.status >= 400 {
				return
			}
			principal := GetPrincipal(r.Context())
			if principal == nil {
				return
			}

			action := strings.ToLower(r.Method)
			desc := activityDescription(r.Method, tableName, r.URL.Path)
			// The request context may already be cancelled once the client
			// has its response.
			ctx := context.WithoutCancel(r.Context())
			if err := store.CreateUserLog(ctx, principal.AdminID, action, tableName, desc); err != nil {
				slog.Warn("failed to record activity", "admin_id", principal.AdminID, "table", tableName, "error", err)
			}
		})
	}
}

func activityDescription(method, tableName, path string) string {
	var verb string
	switch method {
	case http.MethodGet:
		verb = "Viewed"
	case http.MethodPost:
		verb = "Created"
	case http.MethodPut, http.MethodPatch:
		verb = "Updated"
	case http.MethodDelete:
		verb = "Deleted"
	default:
		verb = method
	}
	return verb + " " + tableName + " (" + path + ")"
}

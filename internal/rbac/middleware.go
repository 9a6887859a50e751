package rbac

import (
	"log/slog"
	"net/http"

	"github.com/udms-pro/udms/internal/platform/httpx"
	"github.com/udms-pro/udms/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Gate   SetAuthorizer
	Logger *slog.Logger
}

// RequireAny ensures the active session may reach tab and holds at least one of
// the required permissions. With no permissions only reachability is checked.
func (m Middleware) RequireAny(tab shared.Tab, perms ...shared.Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.Gate.AuthorizeAny(r.Context(), tab, normalized...); err != nil {
				m.reject(w, "rbac require any", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll ensures the active session may reach tab and holds all required permissions.
func (m Middleware) RequireAll(tab shared.Tab, perms ...shared.Permission) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.Gate.AuthorizeAll(r.Context(), tab, normalized...); err != nil {
				m.reject(w, "rbac require all", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) reject(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status == http.StatusInternalServerError && m.Logger != nil {
		m.Logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func normalizePermissions(perms []shared.Permission) []shared.Permission {
	unique := make(map[shared.Permission]struct{}, len(perms))
	normalized := make([]shared.Permission, 0, len(perms))
	for _, raw := range perms {
		p, ok := shared.ParsePermission(string(raw))
		if !ok {
			continue
		}
		if _, dup := unique[p]; dup {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

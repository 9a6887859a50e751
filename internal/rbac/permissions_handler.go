package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/udms-pro/udms/internal/platform/httpx"
	"github.com/udms-pro/udms/internal/shared"
)

// PermissionsHandler exposes the permission universe to user administrators.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.TabUsers, shared.PermManageUsers))
		r.Get("/", h.listPermissions)
	})
}

type permissionsResponse struct {
	Permissions []shared.Permission `json:"permissions"`
	Roles       []shared.Role       `json:"roles"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		Permissions: shared.CoreScopes(),
		Roles:       []shared.Role{shared.RoleAdmin, shared.RoleStudent, shared.RoleStaff, shared.RoleSecurity},
	})
}

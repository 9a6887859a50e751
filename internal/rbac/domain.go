package rbac

import (
	"context"

	"github.com/udms-pro/udms/internal/shared"
)

// Grantee is anything that carries an explicit permission set, typically the
// active console session.
type Grantee interface {
	Grants() []shared.Permission
}

// Grants is a literal permission set that satisfies Grantee.
type Grants []shared.Permission

// Grants returns the set itself.
func (g Grants) Grants() []shared.Permission { return g }

// Authorizer is the single gate consulted before a tab action runs. The console
// kernel implements it; the HTTP middleware delegates to it.
type Authorizer interface {
	Authorize(ctx context.Context, tab shared.Tab, perm shared.Permission) error
}

// SetAuthorizer checks a whole permission clause in one gate pass, so a guarded
// request yields at most one rejection.
type SetAuthorizer interface {
	Authorizer
	AuthorizeAny(ctx context.Context, tab shared.Tab, perms ...shared.Permission) error
	AuthorizeAll(ctx context.Context, tab shared.Tab, perms ...shared.Permission) error
}

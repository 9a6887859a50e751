package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udms-pro/udms/internal/shared"
)

func TestHasCapabilityIsLiteralMembership(t *testing.T) {
	for _, held := range [][]shared.Permission{
		nil,
		{shared.PermGateAccess},
		{shared.PermManageRooms, shared.PermSecurityLockdown},
		shared.CoreScopes(),
	} {
		g := Grants(held)
		for _, p := range shared.CoreScopes() {
			want := false
			for _, h := range held {
				if h == p {
					want = true
				}
			}
			assert.Equal(t, want, HasCapability(g, p), "held=%v perm=%s", held, p)
		}
	}
}

type adminSession struct {
	role  shared.Role
	perms []shared.Permission
}

func (s adminSession) Grants() []shared.Permission { return s.perms }

func TestHasCapabilityIgnoresRole(t *testing.T) {
	admin := adminSession{role: shared.RoleAdmin, perms: []shared.Permission{shared.PermManageRooms}}
	student := adminSession{role: shared.RoleStudent, perms: []shared.Permission{shared.PermSecurityLockdown}}

	assert.False(t, HasCapability(admin, shared.PermSecurityLockdown))
	assert.True(t, HasCapability(student, shared.PermSecurityLockdown))
	assert.False(t, HasCapability(nil, shared.PermSecurityLockdown))
	assert.False(t, HasCapability(admin, ""))
}

func TestHasAnyAndAll(t *testing.T) {
	g := Grants{shared.PermViewFinancials, shared.PermManageRooms}
	assert.True(t, HasAny(g))
	assert.True(t, HasAny(g, shared.PermOverrideFee, shared.PermManageRooms))
	assert.False(t, HasAny(g, shared.PermOverrideFee))
	assert.True(t, HasAll(g, shared.PermViewFinancials, shared.PermManageRooms))
	assert.False(t, HasAll(g, shared.PermViewFinancials, shared.PermGateAccess))
	assert.Equal(t, []shared.Permission{shared.PermGateAccess}, Missing(g, shared.PermManageRooms, shared.PermGateAccess))
}

package shared

import "strings"

// Permission is an atomic capability tag held by a session.
type Permission string

// Residence console permissions.
const (
	PermManageRooms        Permission = "manage-rooms"
	PermReassignRoom       Permission = "reassign-room"
	PermOverrideFee        Permission = "override-fee"
	PermManageUsers        Permission = "manage-users"
	PermSecurityLockdown   Permission = "security-lockdown"
	PermViewAuditLogs      Permission = "view-audit-logs"
	PermViewFinancials     Permission = "view-financials"
	PermSubmitMaintenance  Permission = "submit-maintenance"
	PermApproveMaintenance Permission = "approve-maintenance"
	PermGateAccess         Permission = "gate-access"
)

// CoreScopes lists the full permission universe.
func CoreScopes() []Permission {
	return []Permission{
		PermManageRooms,
		PermReassignRoom,
		PermOverrideFee,
		PermManageUsers,
		PermSecurityLockdown,
		PermViewAuditLogs,
		PermViewFinancials,
		PermSubmitMaintenance,
		PermApproveMaintenance,
		PermGateAccess,
	}
}

// ParsePermission normalises a tag and reports whether it belongs to the universe.
func ParsePermission(raw string) (Permission, bool) {
	p := Permission(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range CoreScopes() {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Valid reports whether p is part of the permission universe.
func (p Permission) Valid() bool {
	_, ok := ParsePermission(string(p))
	return ok
}

// SanitizePermissions keeps only known permissions, deduplicated, in input order.
func SanitizePermissions(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, raw := range perms {
		p, ok := ParsePermission(string(raw))
		if !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

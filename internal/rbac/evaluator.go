package rbac

import "github.com/udms-pro/udms/internal/shared"

// HasCapability reports whether p is literally present in the grantee's set.
// Roles are never consulted; an Admin without a tag does not hold it.
func HasCapability(g Grantee, p shared.Permission) bool {
	if g == nil || p == "" {
		return false
	}
	for _, held := range g.Grants() {
		if held == p {
			return true
		}
	}
	return false
}

// HasAny reports whether the grantee holds at least one of required.
// An empty requirement is satisfied.
func HasAny(g Grantee, required ...shared.Permission) bool {
	if len(required) == 0 {
		return true
	}
	for _, p := range required {
		if HasCapability(g, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the grantee holds every permission in required.
func HasAll(g Grantee, required ...shared.Permission) bool {
	for _, p := range required {
		if !HasCapability(g, p) {
			return false
		}
	}
	return true
}

// Missing lists the required permissions the grantee lacks, in input order.
func Missing(g Grantee, required ...shared.Permission) []shared.Permission {
	var out []shared.Permission
	for _, p := range required {
		if !HasCapability(g, p) {
			out = append(out, p)
		}
	}
	return out
}

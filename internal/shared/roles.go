package shared

import "strings"

// Role is the navigation profile of a user. It never grants permissions.
type Role string

// Known roles.
const (
	RoleAdmin    Role = "ADMIN"
	RoleStudent  Role = "STUDENT"
	RoleStaff    Role = "STAFF"
	RoleSecurity Role = "SECURITY"
)

// ParseRole normalises a role name.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleStudent:
		return RoleStudent, true
	case RoleStaff:
		return RoleStaff, true
	case RoleSecurity:
		return RoleSecurity, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Tab identifies a navigable console area. Every gated action belongs to one.
type Tab string

// Console tabs.
const (
	TabDashboard    Tab = "dashboard"
	TabRooms        Tab = "rooms"
	TabMaintenance  Tab = "maintenance"
	TabAudit        Tab = "audit"
	TabVisitors     Tab = "visitors"
	TabReports      Tab = "reports"
	TabMyRoom       Tab = "my-room"
	TabWellness     Tab = "wellness"
	TabLeaderboard  Tab = "leaderboard"
	TabSwaps        Tab = "swaps"
	TabEvents       Tab = "events"
	TabAssistant    Tab = "assistant"
	TabTasks        Tab = "tasks"
	TabPreventative Tab = "preventative"
	TabLogs         Tab = "logs"
	TabPayments     Tab = "payments"
	TabUsers        Tab = "users"
)

var knownTabs = map[Tab]struct{}{
	TabDashboard: {}, TabRooms: {}, TabMaintenance: {}, TabAudit: {}, TabVisitors: {},
	TabReports: {}, TabMyRoom: {}, TabWellness: {}, TabLeaderboard: {}, TabSwaps: {},
	TabEvents: {}, TabAssistant: {}, TabTasks: {}, TabPreventative: {}, TabLogs: {},
	TabPayments: {}, TabUsers: {},
}

// ParseTab normalises a tab identifier.
func ParseTab(raw string) (Tab, bool) {
	t := Tab(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownTabs[t]
	return t, ok
}

// DefaultTab returns the landing tab for a role.
func DefaultTab(role Role) Tab {
	switch role {
	case RoleAdmin:
		return TabDashboard
	case RoleStudent:
		return TabMyRoom
	default:
		return TabTasks
	}
}

// LockdownAllowList is the default set of tabs non-admin roles keep during lockdown.
func LockdownAllowList() []Tab {
	return []Tab{TabDashboard, TabAssistant}
}

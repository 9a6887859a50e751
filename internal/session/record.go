// Package session persists the single active console session as a signed blob
// and keeps the theme preference next to it.
package session

import (
	"github.com/udms-pro/udms/internal/shared"
)

// Record is the persisted identity of the active session. It carries no audit data.
type Record struct {
	Token          string              `json:"token"`
	UserID         string              `json:"id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Role           shared.Role         `json:"role"`
	Permissions    []shared.Permission `json:"permissions"`
	Points         int                 `json:"points"`
	Level          int                 `json:"level"`
	CheckInStatus  string              `json:"checkInStatus,omitempty"`
	StudentID      string              `json:"studentId,omitempty"`
	AssignedRoomID string              `json:"assignedRoomId,omitempty"`
}

// Sanitize normalises a record read back from storage: unknown permission tags
// are dropped and an invalid role makes the record unusable.
func (r Record) Sanitize() (Record, bool) {
	role, ok := shared.ParseRole(string(r.Role))
	if !ok || r.UserID == "" {
		return Record{}, false
	}
	r.Role = role
	r.Permissions = shared.SanitizePermissions(r.Permissions)
	return r, true
}

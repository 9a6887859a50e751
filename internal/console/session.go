package console

import (
	"slices"

	"github.com/udms-pro/udms/internal/session"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// Session is the identity every kernel operation acts on behalf of.
type Session struct {
	Token          string              `json:"token"`
	UserID         string              `json:"id"`
	Name           string              `json:"name"`
	Email          string              `json:"email"`
	Role           shared.Role         `json:"role"`
	Permissions    []shared.Permission `json:"permissions"`
	Points         int                 `json:"points"`
	Level          int                 `json:"level"`
	CheckInStatus  store.CheckInStatus `json:"checkInStatus,omitempty"`
	StudentID      string              `json:"studentId,omitempty"`
	AssignedRoomID string              `json:"assignedRoomId,omitempty"`
	ImpersonatedBy string              `json:"impersonatedBy,omitempty"`
}

// Grants implements rbac.Grantee.
func (s Session) Grants() []shared.Permission { return s.Permissions }

func (s Session) clone() Session {
	s.Permissions = slices.Clone(s.Permissions)
	return s
}

func newSession(u store.User, token string) Session {
	return Session{
		Token:          token,
		UserID:         u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Permissions:    shared.SanitizePermissions(u.Permissions),
		Points:         u.Points,
		Level:          u.Level,
		CheckInStatus:  u.CheckInStatus,
		StudentID:      u.StudentID,
		AssignedRoomID: u.AssignedRoomID,
	}
}

// withUser refreshes the identity fields from u and keeps the token and
// impersonation marker.
func (s Session) withUser(u store.User) Session {
	next := newSession(u, s.Token)
	next.ImpersonatedBy = s.ImpersonatedBy
	return next
}

func (s Session) record() session.Record {
	return session.Record{
		Token:          s.Token,
		UserID:         s.UserID,
		Name:           s.Name,
		Email:          s.Email,
		Role:           s.Role,
		Permissions:    slices.Clone(s.Permissions),
		Points:         s.Points,
		Level:          s.Level,
		CheckInStatus:  string(s.CheckInStatus),
		StudentID:      s.StudentID,
		AssignedRoomID: s.AssignedRoomID,
	}
}

func sessionFromRecord(r session.Record) Session {
	return Session{
		Token:          r.Token,
		UserID:         r.UserID,
		Name:           r.Name,
		Email:          r.Email,
		Role:           r.Role,
		Permissions:    slices.Clone(r.Permissions),
		Points:         r.Points,
		Level:          r.Level,
		CheckInStatus:  store.CheckInStatus(r.CheckInStatus),
		StudentID:      r.StudentID,
		AssignedRoomID: r.AssignedRoomID,
	}
}

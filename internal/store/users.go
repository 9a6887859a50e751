package store

import (
	"fmt"
	"strings"

	"github.com/udms-pro/udms/internal/shared"
)

// Users returns all accounts.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, len(s.users))
	for i, u := range s.users {
		out[i] = u.clone()
	}
	return out
}

// FindUser fetches an account by id.
func (s *Store) FindUser(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.userIndex(id)
	if idx < 0 {
		return User{}, notFound("user", id)
	}
	return s.users[idx].clone(), nil
}

// FindUserByEmail matches the identifier case-insensitively after trimming.
func (s *Store) FindUserByEmail(identifier string) (User, error) {
	key := foldCase(strings.TrimSpace(identifier))
	if key == "" {
		return User{}, notFound("user", identifier)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if foldCase(u.Email) == key {
			return u.clone(), nil
		}
	}
	return User{}, notFound("user", identifier)
}

// Residents lists users assigned to the room.
func (s *Store) Residents(roomID string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []User
	for _, u := range s.users {
		if u.AssignedRoomID == roomID {
			out = append(out, u.clone())
		}
	}
	return out
}

// SetPermissions replaces the permission set of a user. Unknown tags are rejected.
func (s *Store) SetPermissions(userID string, perms []shared.Permission) (User, error) {
	for _, p := range perms {
		if !p.Valid() {
			return User{}, fmt.Errorf("%w: unknown permission %q", shared.ErrValidation, p)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.userIndex(userID)
	if idx < 0 {
		return User{}, notFound("user", userID)
	}
	s.users[idx].Permissions = shared.SanitizePermissions(perms)
	return s.users[idx].clone(), nil
}

// RequestCheckIn moves a resident into the pending approval queue.
func (s *Store) RequestCheckIn(userID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.userIndex(userID)
	if idx < 0 {
		return User{}, notFound("user", userID)
	}
	u := &s.users[idx]
	switch u.CheckInStatus {
	case "", CheckInNone, CheckInLeft:
	default:
		return User{}, fmt.Errorf("check-in from %q: %w", u.CheckInStatus, shared.ErrInvalidTransition)
	}
	u.CheckInStatus = CheckInPending
	return u.clone(), nil
}

// ApproveCheckIn completes a pending arrival.
func (s *Store) ApproveCheckIn(userID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.userIndex(userID)
	if idx < 0 {
		return User{}, notFound("user", userID)
	}
	u := &s.users[idx]
	if u.CheckInStatus != CheckInPending {
		return User{}, fmt.Errorf("approve check-in from %q: %w", u.CheckInStatus, shared.ErrInvalidTransition)
	}
	u.CheckInStatus = CheckInDone
	return u.clone(), nil
}

func (s *Store) userIndex(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

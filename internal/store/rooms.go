package store

import (
	"fmt"
	"slices"

	"github.com/udms-pro/udms/internal/shared"
)

// Reassignment describes the rooms touched by a move.
type Reassignment struct {
	User User  `json:"user"`
	From *Room `json:"from,omitempty"`
	To   Room  `json:"to"`
}

// Rooms returns all rooms.
func (s *Store) Rooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rooms)
}

// FindRoom fetches a room by id.
func (s *Store) FindRoom(id string) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.roomIndex(id)
	if idx < 0 {
		return Room{}, notFound("room", id)
	}
	return s.rooms[idx], nil
}

// ReassignRoom moves a resident into roomID. A full target is rejected, never clamped.
func (s *Store) ReassignRoom(userID, roomID string) (Reassignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ui := s.userIndex(userID)
	if ui < 0 {
		return Reassignment{}, notFound("user", userID)
	}
	ti := s.roomIndex(roomID)
	if ti < 0 {
		return Reassignment{}, notFound("room", roomID)
	}
	user := &s.users[ui]
	if user.AssignedRoomID == roomID {
		return Reassignment{}, fmt.Errorf("%w: %s already assigned to %s", shared.ErrValidation, userID, roomID)
	}
	target := &s.rooms[ti]
	if target.Status == RoomMaintenance {
		return Reassignment{}, fmt.Errorf("%w: room %s under maintenance", shared.ErrValidation, roomID)
	}
	if target.Occupied+1 > target.Capacity {
		return Reassignment{}, fmt.Errorf("room %s (%d/%d): %w", roomID, target.Occupied, target.Capacity, shared.ErrCapacityExceeded)
	}

	var from *Room
	if fi := s.roomIndex(user.AssignedRoomID); fi >= 0 {
		src := &s.rooms[fi]
		if src.Occupied > 0 {
			src.Occupied--
		}
		src.refreshStatus()
		moved := *src
		from = &moved
	}
	target.Occupied++
	target.refreshStatus()
	user.AssignedRoomID = roomID
	return Reassignment{User: user.clone(), From: from, To: *target}, nil
}

// SetRoomStatus puts a room under maintenance or returns it to service. Full is
// derived from occupancy and cannot be set directly.
func (s *Store) SetRoomStatus(roomID string, status RoomStatus) (Room, error) {
	if status != RoomMaintenance && status != RoomAvailable {
		return Room{}, fmt.Errorf("%w: room status %q cannot be set directly", shared.ErrValidation, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.roomIndex(roomID)
	if idx < 0 {
		return Room{}, notFound("room", roomID)
	}
	room := &s.rooms[idx]
	room.Status = status
	if status == RoomAvailable {
		room.refreshStatus()
	}
	return *room, nil
}

// SetRoomCompatibility stores the latest average compatibility score.
func (s *Store) SetRoomCompatibility(roomID string, score int) (Room, error) {
	if score < 0 || score > 100 {
		return Room{}, fmt.Errorf("%w: compatibility %d out of range", shared.ErrValidation, score)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.roomIndex(roomID)
	if idx < 0 {
		return Room{}, notFound("room", roomID)
	}
	s.rooms[idx].AvgCompatibility = score
	return s.rooms[idx], nil
}

func (s *Store) roomIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.rooms {
		if s.rooms[i].ID == id {
			return i
		}
	}
	return -1
}

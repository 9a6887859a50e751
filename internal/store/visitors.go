package store

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/udms-pro/udms/internal/shared"
)

// NewVisitor is the input for a guest pass.
type NewVisitor struct {
	Name            string    `json:"name" validate:"required,max=120"`
	ResidentID      string    `json:"residentId" validate:"required"`
	ResidentName    string    `json:"residentName"`
	ExpectedArrival time.Time `json:"expectedArrival" validate:"required"`
	VisitType       string    `json:"visitType" validate:"omitempty,oneof=Friend Family Maintenance Other"`
}

// Visitors returns all guest passes, newest first.
func (s *Store) Visitors() []Visitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.visitors)
}

// RegisterVisitor appends an Upcoming guest pass.
func (s *Store) RegisterVisitor(in NewVisitor) (Visitor, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Visitor{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	visitType := in.VisitType
	if visitType == "" {
		visitType = "Friend"
	}
	v := Visitor{
		ID:              "V-" + s.newID(),
		Name:            in.Name,
		ResidentID:      in.ResidentID,
		ResidentName:    in.ResidentName,
		ExpectedArrival: in.ExpectedArrival.UTC(),
		Status:          VisitorUpcoming,
		VisitType:       visitType,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visitors = append([]Visitor{v}, s.visitors...)
	return v, nil
}

// CheckInVisitor admits an Upcoming visitor.
func (s *Store) CheckInVisitor(id string) (Visitor, error) {
	return s.transitionVisitor(id, VisitorUpcoming, VisitorCheckedIn)
}

// CheckOutVisitor releases a visitor that is on site.
func (s *Store) CheckOutVisitor(id string) (Visitor, error) {
	return s.transitionVisitor(id, VisitorCheckedIn, VisitorCheckedOut)
}

// DenyVisitor refuses entry to an Upcoming visitor. Denied is terminal.
func (s *Store) DenyVisitor(id string) (Visitor, error) {
	return s.transitionVisitor(id, VisitorUpcoming, VisitorDenied)
}

func (s *Store) transitionVisitor(id string, from, to VisitorStatus) (Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.visitors {
		if s.visitors[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Visitor{}, notFound("visitor", id)
	}
	v := &s.visitors[idx]
	if v.Status != from {
		return Visitor{}, fmt.Errorf("visitor %s %q -> %q: %w", id, v.Status, to, shared.ErrInvalidTransition)
	}
	at := s.now().UTC()
	switch to {
	case VisitorCheckedIn:
		v.CheckInAt = &at
	case VisitorCheckedOut:
		v.CheckOutAt = &at
	}
	v.Status = to
	return *v, nil
}

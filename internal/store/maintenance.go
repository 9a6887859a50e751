package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/udms-pro/udms/internal/shared"
)

// NewMaintenance is the input for a fresh service ticket.
type NewMaintenance struct {
	StudentID      string `json:"studentId" validate:"required"`
	StudentName    string `json:"studentName"`
	RoomNumber     string `json:"roomNumber"`
	Category       string `json:"category" validate:"required,oneof=Plumbing Electrical Cleaning Furniture Other"`
	Description    string `json:"description" validate:"required,max=2000"`
	Priority       string `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	IsPreventative bool   `json:"isPreventative"`
}

// Maintenance returns all tickets, newest first.
func (s *Store) Maintenance() []MaintenanceRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.maintenance)
}

// CreateMaintenance appends a Pending ticket.
func (s *Store) CreateMaintenance(in NewMaintenance) (MaintenanceRequest, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return MaintenanceRequest{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	priority := in.Priority
	if priority == "" {
		priority = "Medium"
	}
	req := MaintenanceRequest{
		ID:             "M-" + s.newID(),
		StudentID:      in.StudentID,
		StudentName:    in.StudentName,
		RoomNumber:     in.RoomNumber,
		Category:       in.Category,
		Description:    in.Description,
		Status:         MaintenancePending,
		Priority:       priority,
		CreatedAt:      s.now().UTC(),
		IsPreventative: in.IsPreventative,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = append([]MaintenanceRequest{req}, s.maintenance...)
	return req, nil
}

// AdvanceMaintenance moves a ticket forward in its lifecycle. Regressions and
// no-op transitions are rejected; skipping In Progress is allowed.
func (s *Store) AdvanceMaintenance(id string, next MaintenanceStatus) (MaintenanceRequest, error) {
	if next.rank() < 0 {
		return MaintenanceRequest{}, fmt.Errorf("%w: unknown maintenance status %q", shared.ErrValidation, next)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.maintenanceIndex(id)
	if idx < 0 {
		return MaintenanceRequest{}, notFound("maintenance request", id)
	}
	req := &s.maintenance[idx]
	if next.rank() <= req.Status.rank() {
		return MaintenanceRequest{}, fmt.Errorf("maintenance %s %q -> %q: %w", id, req.Status, next, shared.ErrInvalidTransition)
	}
	req.Status = next
	return *req, nil
}

// RateMaintenance attaches resident feedback to a completed ticket.
func (s *Store) RateMaintenance(id string, rating int, sentiment Sentiment) (MaintenanceRequest, error) {
	if rating < 1 || rating > 5 {
		return MaintenanceRequest{}, fmt.Errorf("%w: rating %d out of range", shared.ErrValidation, rating)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.maintenanceIndex(id)
	if idx < 0 {
		return MaintenanceRequest{}, notFound("maintenance request", id)
	}
	req := &s.maintenance[idx]
	if req.Status != MaintenanceCompleted {
		return MaintenanceRequest{}, fmt.Errorf("rate maintenance %s in %q: %w", id, req.Status, shared.ErrInvalidTransition)
	}
	req.Rating = rating
	req.Sentiment = normalizeSentiment(sentiment)
	return *req, nil
}

// AnnotatePriority overrides the priority of an open ticket, e.g. after image triage.
func (s *Store) AnnotatePriority(id, priority string) (MaintenanceRequest, error) {
	switch priority {
	case "Low", "Medium", "High":
	default:
		return MaintenanceRequest{}, fmt.Errorf("%w: priority %q", shared.ErrValidation, priority)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.maintenanceIndex(id)
	if idx < 0 {
		return MaintenanceRequest{}, notFound("maintenance request", id)
	}
	req := &s.maintenance[idx]
	if req.Status == MaintenanceCompleted {
		return MaintenanceRequest{}, fmt.Errorf("annotate completed maintenance %s: %w", id, shared.ErrInvalidTransition)
	}
	req.Priority = priority
	return *req, nil
}

func normalizeSentiment(s Sentiment) Sentiment {
	switch Sentiment(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func (s *Store) maintenanceIndex(id string) int {
	for i := range s.maintenance {
		if s.maintenance[i].ID == id {
			return i
		}
	}
	return -1
}

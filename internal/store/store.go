package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/udms-pro/udms/internal/shared"
)

// Store owns the residence collections. Every getter returns copies, so callers
// can only change state through the named mutation methods.
type Store struct {
	mu          sync.RWMutex
	users       []User
	rooms       []Room
	maintenance []MaintenanceRequest
	payments    []Payment
	visitors    []Visitor
	events      []Event

	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace swaps every collection atomically after validating the seed.
func (s *Store) Replace(seed Seed) error {
	if err := s.validate.Struct(seed); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	for _, m := range seed.Maintenance {
		if m.Status.rank() < 0 {
			return fmt.Errorf("%w: maintenance %s has status %q", shared.ErrValidation, m.ID, m.Status)
		}
	}
	rooms := slices.Clone(seed.Rooms)
	for i := range rooms {
		if rooms[i].Status == "" {
			rooms[i].Status = RoomAvailable
		}
		rooms[i].refreshStatus()
	}
	users := make([]User, 0, len(seed.Users))
	for _, u := range seed.Users {
		u = u.clone()
		u.Permissions = shared.SanitizePermissions(u.Permissions)
		users = append(users, u)
	}
	events := make([]Event, 0, len(seed.Events))
	for _, ev := range seed.Events {
		ev.Attendees = dedupe(ev.Attendees)
		events = append(events, ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.rooms = rooms
	s.maintenance = slices.Clone(seed.Maintenance)
	s.payments = slices.Clone(seed.Payments)
	s.visitors = slices.Clone(seed.Visitors)
	s.events = events
	return nil
}

// Snapshot returns a deep copy of all collections.
func (s *Store) Snapshot() Seed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]User, len(s.users))
	for i, u := range s.users {
		users[i] = u.clone()
	}
	events := make([]Event, len(s.events))
	for i, ev := range s.events {
		ev.Attendees = slices.Clone(ev.Attendees)
		events[i] = ev
	}
	return Seed{
		Users:       users,
		Rooms:       slices.Clone(s.rooms),
		Maintenance: slices.Clone(s.maintenance),
		Payments:    slices.Clone(s.payments),
		Visitors:    slices.Clone(s.visitors),
		Events:      events,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// foldCase builds a fresh Caser per call since Casers are stateful.
func foldCase(v string) string {
	return cases.Fold().String(v)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, shared.ErrNotFound)
}

package store

import "slices"

// Events returns all events.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	for i, ev := range s.events {
		ev.Attendees = slices.Clone(ev.Attendees)
		out[i] = ev
	}
	return out
}

// JoinEvent adds userID to the attendee list at most once. joined is false when
// the user was already registered.
func (s *Store) JoinEvent(eventID, userID string) (ev Event, joined bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID != eventID {
			continue
		}
		target := &s.events[i]
		if !slices.Contains(target.Attendees, userID) {
			target.Attendees = append(target.Attendees, userID)
			joined = true
		}
		out := *target
		out.Attendees = slices.Clone(target.Attendees)
		return out, joined, nil
	}
	return Event{}, false, notFound("event", eventID)
}

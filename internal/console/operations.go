package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// ReassignRoom moves a resident into roomID.
func (m *Manager) ReassignRoom(ctx context.Context, userID, roomID string) (store.Reassignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabRooms, shared.PermReassignRoom)
	if err != nil {
		return store.Reassignment{}, err
	}
	moved, err := m.store.ReassignRoom(userID, roomID)
	if err != nil {
		return store.Reassignment{}, err
	}
	m.refreshLocked(ctx, moved.User)
	m.audit.Record(s.Name, "Room", fmt.Sprintf("Reassigned %s to room %s", moved.User.Name, moved.To.Number), audit.SeverityInfo)
	m.notify.Broadcast("Room Reassigned", fmt.Sprintf("%s moved to room %s.", moved.User.Name, moved.To.Number), shared.TabRooms)
	return moved, nil
}

// SetRoomStatus puts a room under maintenance or releases it.
func (m *Manager) SetRoomStatus(ctx context.Context, roomID string, status store.RoomStatus) (store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabRooms, shared.PermManageRooms)
	if err != nil {
		return store.Room{}, err
	}
	room, err := m.store.SetRoomStatus(roomID, status)
	if err != nil {
		return store.Room{}, err
	}
	m.audit.Record(s.Name, "Room", fmt.Sprintf("Room %s marked %s", room.Number, status), audit.SeverityInfo)
	m.notify.Broadcast("Room Status Updated", fmt.Sprintf("Room %s is now %s.", room.Number, room.Status), shared.TabRooms)
	return room, nil
}

// SubmitMaintenance raises a ticket for the active session.
func (m *Manager) SubmitMaintenance(ctx context.Context, in store.NewMaintenance) (store.MaintenanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabMaintenance, shared.PermSubmitMaintenance)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	in.StudentID = s.UserID
	in.StudentName = s.Name
	if in.RoomNumber == "" && s.AssignedRoomID != "" {
		if room, err := m.store.FindRoom(s.AssignedRoomID); err == nil {
			in.RoomNumber = room.Number
		}
	}
	req, err := m.store.CreateMaintenance(in)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	m.audit.Record(s.Name, "Maintenance", fmt.Sprintf("Ticket %s raised: %s", req.ID, req.Category), audit.SeverityInfo)
	m.notify.Broadcast("Ticket Logged", fmt.Sprintf("Maintenance request queued with %s priority.", req.Priority), shared.TabMaintenance)
	return req, nil
}

// AdvanceMaintenance moves a ticket forward.
func (m *Manager) AdvanceMaintenance(ctx context.Context, id string, status store.MaintenanceStatus) (store.MaintenanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabMaintenance, shared.PermApproveMaintenance)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	req, err := m.store.AdvanceMaintenance(id, status)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	m.audit.Record(s.Name, "Maintenance", fmt.Sprintf("Ticket %s moved to %s", req.ID, req.Status), audit.SeverityInfo)
	m.notify.Broadcast("Ticket Updated", fmt.Sprintf("Ticket %s is now %s.", req.ID, req.Status), shared.TabMaintenance)
	return req, nil
}

// RateMaintenance records a rating for a completed ticket. The feedback
// sentiment is classified before the kernel lock is taken; the gate that
// decides, and may reject, runs once under the lock afterwards.
func (m *Manager) RateMaintenance(ctx context.Context, id string, rating int, feedback string) (store.MaintenanceRequest, error) {
	if rating < 1 || rating > 5 {
		return store.MaintenanceRequest{}, fmt.Errorf("%w: rating must be 1-5", shared.ErrValidation)
	}
	sentiment := store.SentimentNeutral
	if m.wouldPass(ctx, shared.TabMaintenance, shared.PermSubmitMaintenance) {
		m.metrics.ObserveAssistant("sentiment")
		sentiment = m.assistant.Sentiment(ctx, feedback)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabMaintenance, shared.PermSubmitMaintenance)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	req, err := m.store.RateMaintenance(id, rating, sentiment)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	m.audit.Record(s.Name, "Feedback", fmt.Sprintf("Ticket %s rated %d/5 (%s)", req.ID, rating, req.Sentiment), audit.SeverityInfo)
	m.notify.Broadcast("Feedback Received", fmt.Sprintf("Thanks for rating ticket %s.", req.ID), shared.TabMaintenance)
	return req, nil
}

// AnnotateTicket sets the priority of an open ticket, typically from an
// AnalyzeIssue triage.
func (m *Manager) AnnotateTicket(ctx context.Context, id, priority string) (store.MaintenanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabMaintenance, shared.PermApproveMaintenance)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	req, err := m.store.AnnotatePriority(id, priority)
	if err != nil {
		return store.MaintenanceRequest{}, err
	}
	m.audit.Record(s.Name, "Maintenance", fmt.Sprintf("Ticket %s triaged as %s priority", req.ID, req.Priority), audit.SeverityInfo)
	m.notify.Broadcast("Ticket Triaged", fmt.Sprintf("Ticket %s marked %s priority.", req.ID, req.Priority), shared.TabMaintenance)
	return req, nil
}

// SettlePayment pays an invoice. The owner of the invoice or a holder of
// override-fee may settle it.
func (m *Manager) SettlePayment(ctx context.Context, id string) (store.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabPayments, "")
	if err != nil {
		return store.Payment{}, err
	}
	p, err := m.store.FindPayment(id)
	if err != nil {
		return store.Payment{}, err
	}
	if p.StudentID != s.UserID && !rbac.HasCapability(s, shared.PermOverrideFee) {
		m.rejectLocked(shared.TabPayments, outcomeDenied, "Invoices can only be settled by their owner.")
		return store.Payment{}, fmt.Errorf("settle %s: %w", id, shared.ErrPermissionDenied)
	}
	paid, err := m.store.SettlePayment(id)
	if err != nil {
		return store.Payment{}, err
	}
	m.audit.Record(s.Name, "Financial", fmt.Sprintf("Invoice %s settled via UDMS Pay.", paid.ID), audit.SeverityInfo)
	m.notify.Broadcast("Payment Success", "Ledger updated. Your points balance has increased.", shared.TabPayments)
	return paid, nil
}

// OverrideFee changes the amount of an unpaid invoice.
func (m *Manager) OverrideFee(ctx context.Context, id string, amount float64) (store.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabPayments, shared.PermOverrideFee)
	if err != nil {
		return store.Payment{}, err
	}
	p, err := m.store.OverrideFee(id, amount)
	if err != nil {
		return store.Payment{}, err
	}
	m.audit.Record(s.Name, "Financial", fmt.Sprintf("Invoice %s fee overridden to %.2f", p.ID, p.Amount), audit.SeverityWarning)
	m.notify.Broadcast("Fee Adjusted", fmt.Sprintf("Invoice %s now due at %.2f.", p.ID, p.Amount), shared.TabPayments)
	return p, nil
}

// RegisterVisitor requests a guest pass for the active session's resident.
func (m *Manager) RegisterVisitor(ctx context.Context, in store.NewVisitor) (store.Visitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabVisitors, "")
	if err != nil {
		return store.Visitor{}, err
	}
	in.ResidentID = s.UserID
	in.ResidentName = s.Name
	v, err := m.store.RegisterVisitor(in)
	if err != nil {
		return store.Visitor{}, err
	}
	m.audit.Record(s.Name, "Visitor", fmt.Sprintf("Guest pass requested by %s", s.Name), audit.SeverityInfo)
	m.notify.Broadcast("Pass Generated", fmt.Sprintf("Visitor pass for %s is awaiting gate verification.", v.Name), shared.TabVisitors)
	return v, nil
}

// CheckInVisitor admits a visitor at the gate.
func (m *Manager) CheckInVisitor(ctx context.Context, id string) (store.Visitor, error) {
	return m.gateVisitor(ctx, id, m.store.CheckInVisitor, "checked in", audit.SeverityInfo)
}

// CheckOutVisitor records a visitor leaving.
func (m *Manager) CheckOutVisitor(ctx context.Context, id string) (store.Visitor, error) {
	return m.gateVisitor(ctx, id, m.store.CheckOutVisitor, "checked out", audit.SeverityInfo)
}

// DenyVisitor refuses a visitor entry.
func (m *Manager) DenyVisitor(ctx context.Context, id string) (store.Visitor, error) {
	return m.gateVisitor(ctx, id, m.store.DenyVisitor, "denied entry", audit.SeverityWarning)
}

func (m *Manager) gateVisitor(ctx context.Context, id string, apply func(string) (store.Visitor, error), verb string, sev audit.Severity) (store.Visitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabVisitors, shared.PermGateAccess)
	if err != nil {
		return store.Visitor{}, err
	}
	v, err := apply(id)
	if err != nil {
		return store.Visitor{}, err
	}
	m.audit.Record(s.Name, "Visitor", fmt.Sprintf("Visitor %s %s", v.Name, verb), sev)
	m.notify.Broadcast("Gate Update", fmt.Sprintf("%s %s.", v.Name, verb), shared.TabVisitors)
	return v, nil
}

// JoinEvent registers the active session for an event. Joining twice is a no-op.
func (m *Manager) JoinEvent(ctx context.Context, eventID string) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabEvents, "")
	if err != nil {
		return store.Event{}, err
	}
	ev, joined, err := m.store.JoinEvent(eventID, s.UserID)
	if err != nil {
		return store.Event{}, err
	}
	if !joined {
		return ev, nil
	}
	m.audit.Record(s.Name, "Event", fmt.Sprintf("Registered for %s", ev.Title), audit.SeverityInfo)
	m.notify.Broadcast("Event Joined", "Successfully registered. XP will be awarded upon attendance.", shared.TabEvents)
	return ev, nil
}

// RequestCheckIn asks for arrival validation of the active session.
func (m *Manager) RequestCheckIn(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabMyRoom, "")
	if err != nil {
		return Session{}, err
	}
	u, err := m.store.RequestCheckIn(s.UserID)
	if err != nil {
		return Session{}, err
	}
	m.refreshLocked(ctx, u)
	m.audit.Record(s.Name, "Check-In", "Student requested arrival validation.", audit.SeverityInfo)
	m.notify.Broadcast("Request Submitted", "Dorm Admin will review your arrival within 2 hours.", shared.TabMyRoom)
	return m.active.clone(), nil
}

// ApproveCheckIn validates a pending arrival.
func (m *Manager) ApproveCheckIn(ctx context.Context, userID string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabUsers, shared.PermManageUsers)
	if err != nil {
		return store.User{}, err
	}
	u, err := m.store.ApproveCheckIn(userID)
	if err != nil {
		return store.User{}, err
	}
	m.refreshLocked(ctx, u)
	m.audit.Record(s.Name, "Check-In", fmt.Sprintf("Arrival validated for %s", u.Name), audit.SeverityInfo)
	m.notify.Broadcast("Check-In Approved", fmt.Sprintf("%s is now checked in.", u.Name), shared.TabUsers)
	return u, nil
}

// SetUserPermissions replaces the capability set of a user.
func (m *Manager) SetUserPermissions(ctx context.Context, userID string, perms []shared.Permission) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabUsers, shared.PermManageUsers)
	if err != nil {
		return store.User{}, err
	}
	u, err := m.store.SetPermissions(userID, perms)
	if err != nil {
		return store.User{}, err
	}
	m.refreshLocked(ctx, u)
	tags := make([]string, len(u.Permissions))
	for i, p := range u.Permissions {
		tags[i] = string(p)
	}
	m.audit.Record(s.Name, "Permissions", fmt.Sprintf("Capabilities for %s set to [%s]", u.Name, strings.Join(tags, ", ")), audit.SeverityWarning)
	m.notify.Broadcast("Permissions Updated", fmt.Sprintf("%s now holds %d capabilities.", u.Name, len(tags)), shared.TabUsers)
	return u, nil
}

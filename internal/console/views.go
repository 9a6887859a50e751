package console

import (
	"context"
	"fmt"

	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/notify"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// RoomView is the resident's own room with its occupants.
type RoomView struct {
	Room      store.Room   `json:"room"`
	Residents []store.User `json:"residents"`
}

// AuditTrail returns a filtered, paged slice of the audit log.
func (m *Manager) AuditTrail(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	if err := m.Authorize(ctx, shared.TabAudit, shared.PermViewAuditLogs); err != nil {
		return audit.Result{}, err
	}
	return m.timeline.Timeline(ctx, filters)
}

// Timeline implements the audit HTTP service without gating; the handler
// authorizes through Authorize.
func (m *Manager) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	return m.timeline.Timeline(ctx, filters)
}

// ExportTimeline renders the filtered audit log as CSV.
func (m *Manager) ExportTimeline(ctx context.Context, filters audit.TimelineFilters) ([]byte, error) {
	return m.timeline.ExportTimeline(ctx, filters)
}

// Payments lists every invoice for holders of view-financials and the
// caller's own invoices otherwise.
func (m *Manager) Payments(ctx context.Context) ([]store.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.currentLocked(ctx)
	if err != nil {
		m.metrics.ObserveGate(string(shared.TabPayments), outcomeUnauthenticated)
		return nil, err
	}
	if rbac.HasCapability(s, shared.PermViewFinancials) {
		if _, err := m.gateLocked(ctx, shared.TabReports, shared.PermViewFinancials); err != nil {
			return nil, err
		}
		return m.store.Payments(), nil
	}
	if _, err := m.gateLocked(ctx, shared.TabPayments, ""); err != nil {
		return nil, err
	}
	return m.store.PaymentsFor(s.UserID), nil
}

// Rooms lists the residence rooms.
func (m *Manager) Rooms(ctx context.Context) ([]store.Room, error) {
	if err := m.Authorize(ctx, shared.TabRooms, ""); err != nil {
		return nil, err
	}
	return m.store.Rooms(), nil
}

// MyRoom returns the room assigned to the active session.
func (m *Manager) MyRoom(ctx context.Context) (RoomView, error) {
	m.mu.Lock()
	s, err := m.gateLocked(ctx, shared.TabMyRoom, "")
	m.mu.Unlock()
	if err != nil {
		return RoomView{}, err
	}
	room, err := m.store.FindRoom(s.AssignedRoomID)
	if err != nil {
		return RoomView{}, err
	}
	return RoomView{Room: room, Residents: m.store.Residents(room.ID)}, nil
}

// Maintenance lists tickets. Residents without approve-maintenance only see their own.
func (m *Manager) Maintenance(ctx context.Context) ([]store.MaintenanceRequest, error) {
	m.mu.Lock()
	s, err := m.gateLocked(ctx, shared.TabMaintenance, "")
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	all := m.store.Maintenance()
	if rbac.HasAny(s, shared.PermApproveMaintenance, shared.PermManageRooms) {
		return all, nil
	}
	own := make([]store.MaintenanceRequest, 0, len(all))
	for _, req := range all {
		if req.StudentID == s.UserID {
			own = append(own, req)
		}
	}
	return own, nil
}

// Visitors lists guest passes. Residents without gate-access only see their own.
func (m *Manager) Visitors(ctx context.Context) ([]store.Visitor, error) {
	m.mu.Lock()
	s, err := m.gateLocked(ctx, shared.TabVisitors, "")
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	all := m.store.Visitors()
	if rbac.HasAny(s, shared.PermGateAccess, shared.PermManageUsers) {
		return all, nil
	}
	own := make([]store.Visitor, 0, len(all))
	for _, v := range all {
		if v.ResidentID == s.UserID {
			own = append(own, v)
		}
	}
	return own, nil
}

// Events lists community events.
func (m *Manager) Events(ctx context.Context) ([]store.Event, error) {
	if err := m.Authorize(ctx, shared.TabEvents, ""); err != nil {
		return nil, err
	}
	return m.store.Events(), nil
}

// Users lists accounts for user management.
func (m *Manager) Users(ctx context.Context) ([]store.User, error) {
	if err := m.Authorize(ctx, shared.TabUsers, shared.PermManageUsers); err != nil {
		return nil, err
	}
	return m.store.Users(), nil
}

// Notifications returns the live notification queue of the active session.
func (m *Manager) Notifications(ctx context.Context) ([]notify.Notification, error) {
	m.mu.Lock()
	_, err := m.currentLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.notify.Live(), nil
}

// Dismiss removes a notification before it expires.
func (m *Manager) Dismiss(ctx context.Context, id string) error {
	m.mu.Lock()
	_, err := m.currentLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if !m.notify.Dismiss(id) {
		return fmt.Errorf("notification %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

// Highlighted reports whether the telemetry highlight is showing.
func (m *Manager) Highlighted() bool {
	return m.telemetry.Highlighted()
}

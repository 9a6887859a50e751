package console

import (
	"context"
	"log/slog"

	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/lockdown"
	"github.com/udms-pro/udms/internal/shared"
)

// LockdownState reports the current lockdown mode.
func (m *Manager) LockdownState() lockdown.State {
	return m.lockdown.State()
}

// ToggleLockdown flips the lockdown mode.
func (m *Manager) ToggleLockdown(ctx context.Context) (lockdown.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabDashboard, shared.PermSecurityLockdown)
	if err != nil {
		return m.lockdown.State(), err
	}
	state, err := m.lockdown.Toggle(s)
	if err != nil {
		return state, err
	}
	m.lockdownChangedLocked(s, state)
	return state, nil
}

// EnterLockdown seals the facility. Entering while already locked is a no-op.
func (m *Manager) EnterLockdown(ctx context.Context) (lockdown.State, error) {
	return m.setLockdown(ctx, lockdown.Locked)
}

// ExitLockdown resumes normal operations. Exiting while not locked is a no-op.
func (m *Manager) ExitLockdown(ctx context.Context) (lockdown.State, error) {
	return m.setLockdown(ctx, lockdown.Normal)
}

func (m *Manager) setLockdown(ctx context.Context, to lockdown.State) (lockdown.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabDashboard, shared.PermSecurityLockdown)
	if err != nil {
		return m.lockdown.State(), err
	}
	var changed bool
	if to == lockdown.Locked {
		changed, err = m.lockdown.Enter(s)
	} else {
		changed, err = m.lockdown.Exit(s)
	}
	if err != nil {
		return m.lockdown.State(), err
	}
	if changed {
		m.lockdownChangedLocked(s, to)
	}
	return to, nil
}

func (m *Manager) lockdownChangedLocked(s Session, state lockdown.State) {
	m.metrics.SetLockdown(state == lockdown.Locked)
	if state == lockdown.Locked {
		m.audit.Record(s.Name, "Security", "EMERGENCY LOCKDOWN INITIATED", audit.SeverityCritical)
		m.notify.Alert("⚠️ SYSTEM LOCKDOWN", "Perimeter secured. Residents remain in units.", shared.TabDashboard)
		// A non-admin holder of security-lockdown may be standing on a sealed tab.
		m.tab = m.landingTabLocked(s.Role, m.tab)
		m.logger.Warn("lockdown entered", slog.String("actor", s.UserID))
		return
	}
	m.audit.Record(s.Name, "Security", "Lockdown override successful", audit.SeverityWarning)
	m.notify.Broadcast("✅ LOCKDOWN OVERRIDE", "Nominal operations resumed.", shared.TabDashboard)
	m.logger.Info("lockdown lifted", slog.String("actor", s.UserID))
}

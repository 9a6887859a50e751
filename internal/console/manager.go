// Package console is the residence console kernel. Every mutation passes the
// lockdown reachability check and the capability check, then touches the
// entity store, the audit trail and the notification queue inside one
// critical section.
package console

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/udms-pro/udms/internal/assistant"
	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/auth"
	"github.com/udms-pro/udms/internal/lockdown"
	"github.com/udms-pro/udms/internal/notify"
	"github.com/udms-pro/udms/internal/observability"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/session"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
	"github.com/udms-pro/udms/internal/telemetry"
)

const deniedTitle = "❌ ACCESS DENIED"

// Gate outcomes reported to metrics.
const (
	outcomeAllowed         = "allowed"
	outcomeDenied          = "denied"
	outcomeLockedOut       = "locked_out"
	outcomeUnauthenticated = "unauthenticated"
)

// Deps wires the collaborators of a Manager. Only Store is required; the rest
// fall back to in-process defaults.
type Deps struct {
	Store     *store.Store
	Auth      *auth.Service
	Sessions  session.Store
	Themes    session.ThemeStore
	Lockdown  *lockdown.Controller
	Audit     *audit.Logger
	Notify    *notify.Broadcaster
	Assistant *assistant.Service
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	Telemetry        telemetry.Config
	TelemetryOptions []telemetry.Option

	// NewToken issues opaque session tokens.
	NewToken func() string
}

// Manager owns the single active session and serialises every mutation.
type Manager struct {
	store     *store.Store
	auth      *auth.Service
	sessions  session.Store
	themes    session.ThemeStore
	lockdown  *lockdown.Controller
	audit     *audit.Logger
	timeline  *audit.Service
	notify    *notify.Broadcaster
	assistant *assistant.Service
	telemetry *telemetry.Ticker
	metrics   *observability.Metrics
	logger    *slog.Logger
	newToken  func() string

	mu     sync.Mutex
	active *Session
	tab    shared.Tab
	// live mirrors active != nil for the telemetry gate, which must not take mu.
	live atomic.Bool
}

// NewManager assembles a Manager.
func NewManager(d Deps) (*Manager, error) {
	if d.Store == nil {
		return nil, errors.New("console: store is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:     d.Store,
		auth:      d.Auth,
		sessions:  d.Sessions,
		themes:    d.Themes,
		lockdown:  d.Lockdown,
		audit:     d.Audit,
		notify:    d.Notify,
		assistant: d.Assistant,
		metrics:   d.Metrics,
		logger:    logger,
		newToken:  d.NewToken,
	}
	if m.auth == nil {
		m.auth = auth.NewService(auth.NewRepository(d.Store))
	}
	if m.sessions == nil {
		m.sessions = session.NewMemoryStore(session.NewCodec(uuid.NewString()))
	}
	if m.themes == nil {
		m.themes = &session.MemoryThemeStore{}
	}
	if m.lockdown == nil {
		m.lockdown = lockdown.New(nil)
	}
	if m.audit == nil {
		m.audit = audit.NewLogger(audit.DefaultCapacity)
	}
	if m.notify == nil {
		m.notify = notify.New(notify.Options{Logger: logger})
	}
	if m.assistant == nil {
		m.assistant = assistant.NewService(nil, assistant.Config{}, logger)
	}
	if m.newToken == nil {
		m.newToken = uuid.NewString
	}
	m.timeline = audit.NewService(m.audit)
	m.telemetry = telemetry.New(d.Telemetry, m.telemetryGate, logger, d.TelemetryOptions...)
	return m, nil
}

func (m *Manager) telemetryGate() bool {
	return m.live.Load() && !m.lockdown.Locked()
}

// Authenticate signs a user in. Unknown identifiers and wrong secrets both
// yield shared.ErrInvalidCredentials and leave state untouched.
func (m *Manager) Authenticate(ctx context.Context, identifier, secret string) (Session, error) {
	user, err := m.auth.Authenticate(ctx, auth.Credentials{Identifier: identifier, Secret: secret})
	if err != nil {
		m.logger.Info("login rejected")
		return Session{}, err
	}

	m.mu.Lock()
	s := newSession(user, m.newToken())
	if err := m.sessions.Save(ctx, s.record()); err != nil {
		m.logger.Warn("persist session", slog.String("user_id", s.UserID), slog.Any("error", err))
	}
	m.activateLocked(s)
	m.audit.Record(s.Name, "Login", fmt.Sprintf("Authenticated session for role: %s", s.Role), audit.SeverityInfo)
	m.mu.Unlock()

	m.telemetry.Start(context.WithoutCancel(ctx))
	m.logger.Info("session started", slog.String("user_id", s.UserID), slog.String("role", string(s.Role)))
	return s.clone(), nil
}

// Restore reattaches the persisted session, if any. The record is resolved
// against the store; when the user no longer exists the record itself is used.
// A missing or tampered record returns nil without error.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	rec, err := m.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrTampered) {
			m.logger.Warn("discarding persisted session", slog.Any("error", err))
			return nil, nil
		}
		return nil, fmt.Errorf("console: restore session: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	clean, ok := rec.Sanitize()
	if !ok {
		m.logger.Warn("discarding persisted session with invalid identity")
		return nil, nil
	}

	s := sessionFromRecord(clean)
	if user, err := m.store.FindUser(clean.UserID); err == nil {
		s = s.withUser(user)
	} else {
		m.logger.Warn("persisted user not in store, reattaching from record", slog.String("user_id", clean.UserID))
	}
	if s.Token == "" {
		s.Token = m.newToken()
	}

	m.mu.Lock()
	m.activateLocked(s)
	m.mu.Unlock()
	m.telemetry.Start(context.WithoutCancel(ctx))

	out := s.clone()
	return &out, nil
}

// activateLocked installs s as the active session. When a different person
// takes over, the previous session's notifications and transcript go with it;
// impersonation keeps them since the actor is still at the console.
func (m *Manager) activateLocked(s Session) {
	if m.active != nil && m.active.UserID != s.UserID && s.ImpersonatedBy == "" {
		m.notify.Reset()
		m.assistant.ClearTranscript()
	}
	m.active = &s
	m.tab = m.landingTabLocked(s.Role, shared.DefaultTab(s.Role))
	m.live.Store(true)
}

// landingTabLocked returns tab, or the dashboard when lockdown seals tab for role.
func (m *Manager) landingTabLocked(role shared.Role, tab shared.Tab) shared.Tab {
	if m.lockdown.Reachable(role, tab) != nil {
		return shared.TabDashboard
	}
	return tab
}

// Logout ends the active session. Lockdown is reset, pending notifications and
// the telemetry tick are cancelled and the assistant transcript is cleared.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	s, err := m.currentLocked(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.audit.Record(s.Name, "Logout", "Session terminated by user.", audit.SeverityInfo)
	m.active = nil
	m.tab = ""
	m.live.Store(false)
	m.lockdown.Reset()
	m.metrics.SetLockdown(false)
	m.notify.Reset()
	m.assistant.ClearTranscript()
	if err := m.sessions.Delete(ctx); err != nil {
		m.logger.Warn("delete persisted session", slog.Any("error", err))
	}
	m.mu.Unlock()

	// Stop waits for the tick loop; it runs outside mu.
	m.telemetry.Stop()
	m.logger.Info("session ended", slog.String("user_id", s.UserID))
	return nil
}

// Close stops background work on shutdown. The persisted session record is
// kept so the next process can Restore it.
func (m *Manager) Close() {
	m.telemetry.Stop()
	m.notify.Reset()
}

// Impersonate swaps the active session for userID without that user's secret.
// The swap is not persisted.
func (m *Manager) Impersonate(ctx context.Context, userID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actor, err := m.gateLocked(ctx, shared.TabUsers, shared.PermManageUsers)
	if err != nil {
		return Session{}, err
	}
	target, err := m.store.FindUser(userID)
	if err != nil {
		return Session{}, err
	}
	m.audit.Record(actor.Name, "Simulation", fmt.Sprintf("Admin simulating session for %s", target.Name), audit.SeverityInfo)

	s := newSession(target, actor.Token)
	s.ImpersonatedBy = actor.UserID
	m.activateLocked(s)
	return s.clone(), nil
}

// Authorize is the single access gate: no session yields
// shared.ErrUnauthenticated, a tab sealed by lockdown yields
// shared.ErrLockedOut, and a missing capability yields
// shared.ErrPermissionDenied. An empty perm checks reachability only.
func (m *Manager) Authorize(ctx context.Context, tab shared.Tab, perm shared.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.gateLocked(ctx, tab, perm)
	return err
}

// SelectTab navigates the active session to tab.
func (m *Manager) SelectTab(ctx context.Context, tab shared.Tab) error {
	parsed, ok := shared.ParseTab(string(tab))
	if !ok {
		return fmt.Errorf("%w: unknown tab %q", shared.ErrValidation, tab)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.gateLocked(ctx, parsed, ""); err != nil {
		return err
	}
	m.tab = parsed
	return nil
}

// Active returns a copy of the active session.
func (m *Manager) Active() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Session{}, false
	}
	return m.active.clone(), true
}

// Current resolves the caller against the active session without a tab check.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked(ctx)
}

// CurrentTab returns the selected tab, empty when signed out.
func (m *Manager) CurrentTab() shared.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tab
}

// currentLocked resolves the caller. A token carried by ctx must match the
// active session; in-process callers without a token act as the active session.
func (m *Manager) currentLocked(ctx context.Context) (Session, error) {
	if m.active == nil {
		return Session{}, shared.ErrUnauthenticated
	}
	if token := shared.SessionTokenFromContext(ctx); token != "" {
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.active.Token)) != 1 {
			return Session{}, shared.ErrUnauthenticated
		}
	}
	return m.active.clone(), nil
}

// wouldPass reports whether the gate would let the caller through, without
// notifying or counting. It only decides whether slow work is worth starting.
func (m *Manager) wouldPass(ctx context.Context, tab shared.Tab, perm shared.Permission) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.currentLocked(ctx)
	if err != nil || m.lockdown.Reachable(s.Role, tab) != nil {
		return false
	}
	return perm == "" || rbac.HasCapability(s, perm)
}

// AuthorizeAny is Authorize with an any-of capability clause. The clause is
// judged in one pass, so a request rejects at most once.
func (m *Manager) AuthorizeAny(ctx context.Context, tab shared.Tab, perms ...shared.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkLocked(ctx, tab, clause{perms: perms, any: true})
	return err
}

// AuthorizeAll is Authorize with an all-of capability clause.
func (m *Manager) AuthorizeAll(ctx context.Context, tab shared.Tab, perms ...shared.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkLocked(ctx, tab, clause{perms: perms})
	return err
}

// clause is the capability half of a gate check. An empty clause only checks
// reachability.
type clause struct {
	perms []shared.Permission
	any   bool
}

func (c clause) satisfied(s Session) bool {
	if c.any {
		return rbac.HasAny(s, c.perms...)
	}
	return rbac.HasAll(s, c.perms...)
}

// gateLocked runs reachability then capability checks. Rejections broadcast a
// rejection notification and are never audited. Callers hold mu.
func (m *Manager) gateLocked(ctx context.Context, tab shared.Tab, perm shared.Permission) (Session, error) {
	if perm == "" {
		return m.checkLocked(ctx, tab, clause{})
	}
	return m.checkLocked(ctx, tab, clause{perms: []shared.Permission{perm}})
}

func (m *Manager) checkLocked(ctx context.Context, tab shared.Tab, c clause) (Session, error) {
	s, err := m.currentLocked(ctx)
	if err != nil {
		m.metrics.ObserveGate(string(tab), outcomeUnauthenticated)
		return Session{}, err
	}
	if err := m.lockdown.Reachable(s.Role, tab); err != nil {
		m.rejectLocked(tab, outcomeLockedOut, fmt.Sprintf("Lockdown active. The %s area is sealed.", tab))
		return Session{}, err
	}
	if !c.satisfied(s) {
		missing := rbac.Missing(s, c.perms...)
		m.rejectLocked(tab, outcomeDenied, deniedBody(missing, c.any))
		return Session{}, fmt.Errorf("%s on %s: %w", joinPermissions(missing), tab, shared.ErrPermissionDenied)
	}
	m.metrics.ObserveGate(string(tab), outcomeAllowed)
	return s, nil
}

func (m *Manager) rejectLocked(tab shared.Tab, outcome, body string) {
	m.metrics.ObserveGate(string(tab), outcome)
	m.notify.Reject(deniedTitle, body)
}

func deniedBody(missing []shared.Permission, anyOf bool) string {
	if len(missing) == 1 && missing[0] == shared.PermSecurityLockdown {
		return "Insufficient privileges for security lockdown operations."
	}
	if anyOf && len(missing) > 1 {
		return fmt.Sprintf("Insufficient privileges: one of %s required.", joinPermissions(missing))
	}
	return fmt.Sprintf("Insufficient privileges: %s required.", joinPermissions(missing))
}

func joinPermissions(perms []shared.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}

// refreshLocked keeps the active session in step with a mutated user record.
func (m *Manager) refreshLocked(ctx context.Context, u store.User) {
	if m.active == nil || m.active.UserID != u.ID {
		return
	}
	next := m.active.withUser(u)
	m.active = &next
	if next.ImpersonatedBy != "" {
		return
	}
	if err := m.sessions.Save(ctx, next.record()); err != nil {
		m.logger.Warn("persist session", slog.String("user_id", next.UserID), slog.Any("error", err))
	}
}

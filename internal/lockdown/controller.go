// Package lockdown implements the facility-wide lockdown override. While Locked,
// non-admin roles keep only a fixed allow-list of tabs regardless of the
// permissions they hold.
package lockdown

import (
	"fmt"
	"sync"

	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/shared"
)

// State is the lockdown mode.
type State string

// Lockdown modes.
const (
	Normal State = "NORMAL"
	Locked State = "LOCKED"
)

// Controller is the process-wide lockdown state machine.
type Controller struct {
	mu    sync.RWMutex
	state State
	allow map[shared.Tab]struct{}
}

// New builds a Controller in Normal mode. An empty allow list falls back to
// shared.LockdownAllowList.
func New(allow []shared.Tab) *Controller {
	if len(allow) == 0 {
		allow = shared.LockdownAllowList()
	}
	set := make(map[shared.Tab]struct{}, len(allow))
	for _, t := range allow {
		set[t] = struct{}{}
	}
	return &Controller{state: Normal, allow: set}
}

// State returns the current mode.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Locked reports whether lockdown is active.
func (c *Controller) Locked() bool {
	return c.State() == Locked
}

// Enter switches to Locked. changed is false when already locked.
func (c *Controller) Enter(g rbac.Grantee) (changed bool, err error) {
	return c.transition(g, Locked)
}

// Exit switches back to Normal. changed is false when not locked.
func (c *Controller) Exit(g rbac.Grantee) (changed bool, err error) {
	return c.transition(g, Normal)
}

// Toggle flips the mode and returns the resulting state.
func (c *Controller) Toggle(g rbac.Grantee) (State, error) {
	if !rbac.HasCapability(g, shared.PermSecurityLockdown) {
		return c.State(), denied()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Locked {
		c.state = Normal
	} else {
		c.state = Locked
	}
	return c.state, nil
}

func (c *Controller) transition(g rbac.Grantee, to State) (bool, error) {
	if !rbac.HasCapability(g, shared.PermSecurityLockdown) {
		return false, denied()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == to {
		return false, nil
	}
	c.state = to
	return true, nil
}

// Reachable returns shared.ErrLockedOut when the tab is closed to role under
// the current mode. Admins are never locked out.
func (c *Controller) Reachable(role shared.Role, tab shared.Tab) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Locked || role == shared.RoleAdmin {
		return nil
	}
	if _, ok := c.allow[tab]; ok {
		return nil
	}
	return fmt.Errorf("tab %q for role %s: %w", tab, role, shared.ErrLockedOut)
}

// Reset returns to Normal without a capability check. Used when the session ends.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = Normal
	c.mu.Unlock()
}

func denied() error {
	return fmt.Errorf("%s required: %w", shared.PermSecurityLockdown, shared.ErrPermissionDenied)
}

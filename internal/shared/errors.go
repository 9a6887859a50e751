package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated occurs when a gated action runs without an active session.
	ErrUnauthenticated = errors.New("no active session")
	// ErrPermissionDenied indicates the session lacks the required capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrLockedOut indicates the action is unreachable while lockdown is active.
	ErrLockedOut = errors.New("locked out by facility lockdown")
	// ErrCollaboratorUnavailable signals an assistant failure. It never leaves the assistant package.
	ErrCollaboratorUnavailable = errors.New("assistant collaborator unavailable")
	// ErrCapacityExceeded occurs when a room assignment would overflow the room.
	ErrCapacityExceeded = errors.New("room capacity exceeded")
	// ErrInvalidTransition rejects a status change that does not follow the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadySettled rejects a second settlement of a paid invoice.
	ErrAlreadySettled = errors.New("payment already settled")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("validation failed")
)

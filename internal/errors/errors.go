// Package errors provides centralized error definitions and error handling
// utilities for the agentmux codebase. It defines domain-specific errors,
// semantic error types, and constructors with context wrapping.
//
// Domain-specific errors represent failures from specific subsystems:
//   - SessionError: errors related to session registry operations
//   - LayoutError: errors related to group layout transforms
//   - ProcessError: errors related to spawning and driving agent processes
//
// Semantic errors represent common conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionExists indicates that a session id is already registered.
	ErrSessionExists = New("session already exists")
)

// Layout-related sentinel errors
var (
	// ErrGroupNotFound indicates that a group could not be found.
	ErrGroupNotFound = New("group not found")
	// ErrNotGroupMember indicates that a session is not a member of the group.
	ErrNotGroupMember = New("session is not a member of the group")
	// ErrResizeRejected indicates that a resize would violate the minimum
	// pane width and was rejected without partial application.
	ErrResizeRejected = New("resize rejected by minimum pane width")
	// ErrIndexOutOfRange indicates a group or boundary index outside the layout.
	ErrIndexOutOfRange = New("index out of range")
)

// Process-related sentinel errors
var (
	// ErrProcessNotRunning indicates that the agent process is not running.
	ErrProcessNotRunning = New("process not running")
	// ErrProcessAlreadyRunning indicates that the agent process is already running.
	ErrProcessAlreadyRunning = New("process already running")
	// ErrShellResolution indicates that the login shell could not be resolved.
	ErrShellResolution = New("shell resolution failed")
	// ErrSpawnFailed indicates that spawning the agent process failed.
	ErrSpawnFailed = New("spawn failed")
)

// -----------------------------------------------------------------------------
// Domain Error Types
// -----------------------------------------------------------------------------

// SessionError represents an error from the session registry.
type SessionError struct {
	Message   string
	SessionID string
	Err       error
}

// NewSessionError creates a SessionError wrapping an underlying error.
func NewSessionError(message string, err error) *SessionError {
	return &SessionError{Message: message, Err: err}
}

// WithSession attaches a session id to the error for context.
func (e *SessionError) WithSession(id string) *SessionError {
	e.SessionID = id
	return e
}

func (e *SessionError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error { return e.Err }

// LayoutError represents an error from a group layout transform.
type LayoutError struct {
	Message string
	GroupID string
	Err     error
}

// NewLayoutError creates a LayoutError wrapping an underlying error.
func NewLayoutError(message string, err error) *LayoutError {
	return &LayoutError{Message: message, Err: err}
}

// WithGroup attaches a group id to the error for context.
func (e *LayoutError) WithGroup(id string) *LayoutError {
	e.GroupID = id
	return e
}

func (e *LayoutError) Error() string {
	if e.GroupID != "" {
		return fmt.Sprintf("group %s: %s: %v", e.GroupID, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *LayoutError) Unwrap() error { return e.Err }

// ProcessError represents an error from the process host.
type ProcessError struct {
	Message   string
	SessionID string
	Command   string
	Err       error
}

// NewProcessError creates a ProcessError wrapping an underlying error.
func NewProcessError(message string, err error) *ProcessError {
	return &ProcessError{Message: message, Err: err}
}

// WithCommand attaches the spawned command for context.
func (e *ProcessError) WithCommand(cmd string) *ProcessError {
	e.Command = cmd
	return e
}

// WithSession attaches a session id to the error for context.
func (e *ProcessError) WithSession(id string) *ProcessError {
	e.SessionID = id
	return e
}

func (e *ProcessError) Error() string {
	msg := e.Message
	if e.SessionID != "" {
		msg = fmt.Sprintf("session %s: %s", e.SessionID, msg)
	}
	if e.Command != "" {
		msg = fmt.Sprintf("%s (command: %s)", msg, e.Command)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProcessError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------
// Semantic Error Types
// -----------------------------------------------------------------------------

// NotFoundError indicates that a named resource could not be found.
type NotFoundError struct {
	Resource string // Resource kind, e.g. "session", "group", "worktree"
	ID       string // Identifier that was looked up
}

// NewNotFoundError creates a NotFoundError for a resource kind and id.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is reports whether target matches the corresponding sentinel error.
func (e *NotFoundError) Is(target error) bool {
	switch e.Resource {
	case "session":
		return target == ErrSessionNotFound
	case "group":
		return target == ErrGroupNotFound
	}
	return false
}

// AlreadyExistsError indicates that a named resource already exists.
type AlreadyExistsError struct {
	Resource string
	ID       string
}

// NewAlreadyExistsError creates an AlreadyExistsError for a resource kind and id.
func NewAlreadyExistsError(resource, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.ID)
}

// Is reports whether target matches the corresponding sentinel error.
func (e *AlreadyExistsError) Is(target error) bool {
	return e.Resource == "session" && target == ErrSessionExists
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// NewValidationError creates a ValidationError for a field and value.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

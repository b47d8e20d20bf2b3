package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.added").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Registry Events
// -----------------------------------------------------------------------------

// SessionAddedEvent is emitted when a session is added to the registry.
type SessionAddedEvent struct {
	baseEvent
	SessionID    string // Unique identifier for the session
	WorktreePath string // Worktree the session belongs to
	AgentID      string // Base agent identifier (e.g. "claude")
}

// NewSessionAddedEvent creates a SessionAddedEvent.
func NewSessionAddedEvent(sessionID, worktreePath, agentID string) SessionAddedEvent {
	return SessionAddedEvent{
		baseEvent:    newBaseEvent("session.added"),
		SessionID:    sessionID,
		WorktreePath: worktreePath,
		AgentID:      agentID,
	}
}

// SessionRemovedEvent is emitted when a session is removed from the registry.
type SessionRemovedEvent struct {
	baseEvent
	SessionID    string
	WorktreePath string
}

// NewSessionRemovedEvent creates a SessionRemovedEvent.
func NewSessionRemovedEvent(sessionID, worktreePath string) SessionRemovedEvent {
	return SessionRemovedEvent{
		baseEvent:    newBaseEvent("session.removed"),
		SessionID:    sessionID,
		WorktreePath: worktreePath,
	}
}

// SessionUpdatedEvent is emitted when session fields are merged in place.
type SessionUpdatedEvent struct {
	baseEvent
	SessionID string
	Fields    []string // Names of the fields that changed
}

// NewSessionUpdatedEvent creates a SessionUpdatedEvent.
func NewSessionUpdatedEvent(sessionID string, fields []string) SessionUpdatedEvent {
	return SessionUpdatedEvent{
		baseEvent: newBaseEvent("session.updated"),
		SessionID: sessionID,
		Fields:    fields,
	}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Signals
// -----------------------------------------------------------------------------

// SessionInitializedEvent is emitted once per session, on the first
// observed output chunk from its agent process.
type SessionInitializedEvent struct {
	baseEvent
	SessionID string
}

// NewSessionInitializedEvent creates a SessionInitializedEvent.
func NewSessionInitializedEvent(sessionID string) SessionInitializedEvent {
	return SessionInitializedEvent{
		baseEvent: newBaseEvent("session.initialized"),
		SessionID: sessionID,
	}
}

// SessionActivatedEvent is emitted once per session, on the first plain
// Enter the user submits to it.
type SessionActivatedEvent struct {
	baseEvent
	SessionID string
}

// NewSessionActivatedEvent creates a SessionActivatedEvent.
func NewSessionActivatedEvent(sessionID string) SessionActivatedEvent {
	return SessionActivatedEvent{
		baseEvent: newBaseEvent("session.activated"),
		SessionID: sessionID,
	}
}

// -----------------------------------------------------------------------------
// Layout Events
// -----------------------------------------------------------------------------

// GroupStateChangedEvent is emitted after every layout transform for a
// worktree. State is an immutable snapshot; handlers must not mutate it.
type GroupStateChangedEvent struct {
	baseEvent
	WorktreePath string
	State        any // layout.State snapshot; typed as any to keep this package a leaf
}

// NewGroupStateChangedEvent creates a GroupStateChangedEvent.
func NewGroupStateChangedEvent(worktreePath string, state any) GroupStateChangedEvent {
	return GroupStateChangedEvent{
		baseEvent:    newBaseEvent("group.state_changed"),
		WorktreePath: worktreePath,
		State:        state,
	}
}

// ActivityCountChangedEvent is emitted when the number of live sessions
// for a worktree changes. Bulk close emits exactly one event with Count=0
// rather than one event per removed session.
type ActivityCountChangedEvent struct {
	baseEvent
	WorktreePath string
	Count        int
}

// NewActivityCountChangedEvent creates an ActivityCountChangedEvent.
func NewActivityCountChangedEvent(worktreePath string, count int) ActivityCountChangedEvent {
	return ActivityCountChangedEvent{
		baseEvent:    newBaseEvent("worktree.activity_changed"),
		WorktreePath: worktreePath,
		Count:        count,
	}
}

// -----------------------------------------------------------------------------
// Notification Events
// -----------------------------------------------------------------------------

// NotificationRequestedEvent is emitted when the idle detector (or an
// external structured completion signal) decides a session finished a
// work cycle and the user should be told.
type NotificationRequestedEvent struct {
	baseEvent
	SessionID string
	Title     string // Agent label
	Body      string // Last known terminal title or derived workspace name
}

// NewNotificationRequestedEvent creates a NotificationRequestedEvent.
func NewNotificationRequestedEvent(sessionID, title, body string) NotificationRequestedEvent {
	return NotificationRequestedEvent{
		baseEvent: newBaseEvent("notify.requested"),
		SessionID: sessionID,
		Title:     title,
		Body:      body,
	}
}

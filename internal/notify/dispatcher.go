// Package notify turns completion signals into user notifications and
// routes notification clicks back to session selection.
package notify

import (
	"sync"

	"github.com/Iron-Ham/agentmux/internal/event"
	"github.com/Iron-Ham/agentmux/internal/logging"
)

// Notification is one user-facing notification.
type Notification struct {
	Title     string
	Body      string
	SessionID string
}

// Host delivers notifications to the platform. Show is fire-and-forget.
type Host interface {
	Show(n Notification)
}

// Callbacks routes user interaction with notifications back into the
// application. Nil entries are skipped.
type Callbacks struct {
	// SelectSession focuses the session in its group.
	SelectSession func(sessionID string)
	// SwitchWorkspace brings another worktree's workspace to the front.
	SwitchWorkspace func(worktreePath string)
	// WorktreeFor resolves a session to its worktree path.
	WorktreeFor func(sessionID string) (string, bool)
	// FocusedWorktree reports the currently focused worktree path.
	FocusedWorktree func() string
	// AgentStopped feeds an external structured completion signal to
	// the detector.
	AgentStopped func(sessionID string)
}

// Dispatcher deduplicates notifications per session and work cycle and
// handles click routing.
type Dispatcher struct {
	host Host
	cb   Callbacks
	log  *logging.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewDispatcher builds a Dispatcher. A nil logger defaults to a no-op
// logger.
func NewDispatcher(host Host, cb Callbacks, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{
		host:     host,
		cb:       cb,
		log:      log.WithComponent("notify"),
		inFlight: make(map[string]bool),
	}
}

// BindBus subscribes the dispatcher to notification requests and to
// session removals, which release the removed session's in-flight slot.
// It returns the subscription ids.
func (d *Dispatcher) BindBus(bus *event.Bus) []string {
	return []string{
		bus.Subscribe("notify.requested", func(ev event.Event) {
			req, ok := ev.(event.NotificationRequestedEvent)
			if !ok {
				return
			}
			d.Show(req.Title, req.Body, req.SessionID)
		}),
		bus.Subscribe("session.removed", func(ev event.Event) {
			removed, ok := ev.(event.SessionRemovedEvent)
			if !ok {
				return
			}
			d.ClearInFlight(removed.SessionID)
		}),
	}
}

// Show delivers a notification unless one is already in flight for the
// session's current work cycle.
func (d *Dispatcher) Show(title, body, sessionID string) {
	d.mu.Lock()
	if d.inFlight[sessionID] {
		d.mu.Unlock()
		d.log.WithSession(sessionID).Debug("notification suppressed, one already in flight")
		return
	}
	d.inFlight[sessionID] = true
	d.mu.Unlock()

	d.log.WithSession(sessionID).Info("showing notification", "title", title)
	if d.host != nil {
		d.host.Show(Notification{Title: title, Body: body, SessionID: sessionID})
	}
}

// ClearInFlight opens the next notification slot for a session. Called
// when a new work cycle starts and when the session closes.
func (d *Dispatcher) ClearInFlight(sessionID string) {
	d.mu.Lock()
	delete(d.inFlight, sessionID)
	d.mu.Unlock()
}

// InFlight reports whether a notification is outstanding for the
// session.
func (d *Dispatcher) InFlight(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight[sessionID]
}

// HandleClick routes a notification click to session selection,
// switching workspaces first when the session lives in a worktree other
// than the focused one.
func (d *Dispatcher) HandleClick(sessionID string) {
	d.ClearInFlight(sessionID)

	if d.cb.WorktreeFor != nil && d.cb.SwitchWorkspace != nil && d.cb.FocusedWorktree != nil {
		if wt, ok := d.cb.WorktreeFor(sessionID); ok && wt != d.cb.FocusedWorktree() {
			d.log.WithSession(sessionID).Debug("switching workspace for notification click", "worktree", wt)
			d.cb.SwitchWorkspace(wt)
		}
	}
	if d.cb.SelectSession != nil {
		d.cb.SelectSession(sessionID)
	}
}

// HandleAgentStop feeds an external completion signal through the
// detector path, bypassing the idle heuristics.
func (d *Dispatcher) HandleAgentStop(sessionID string) {
	if d.cb.AgentStopped != nil {
		d.cb.AgentStopped(sessionID)
	}
}

package session

import (
	"sort"
	"sync"

	"github.com/Iron-Ham/agentmux/internal/errors"
	"github.com/Iron-Ham/agentmux/internal/event"
)

// Registry is the canonical store of all sessions across all workspaces.
// Mutations publish events on the bus; reads return clones so callers
// can never alias registry-internal state.
//
// All mutation flows through the coordinator on a single goroutine, but
// the registry still guards itself so read-only surfaces (CLI listing,
// persistence snapshots) can run from anywhere.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // insertion order of ids

	// lastActive records a fallback selection per normalized worktree
	// path, used when no group-level active session is set.
	lastActive map[string]string

	bus *event.Bus
}

// NewRegistry creates an empty registry publishing on the given bus.
func NewRegistry(bus *event.Bus) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		lastActive: make(map[string]string),
		bus:        bus,
	}
}

// Add registers a new session. It fails if the id is already present.
func (r *Registry) Add(s Session) error {
	r.mu.Lock()
	if _, exists := r.sessions[s.ID]; exists {
		r.mu.Unlock()
		return errors.NewAlreadyExistsError("session", s.ID)
	}

	s.WorktreePath = NormalizePath(s.WorktreePath)
	stored := s.Clone()
	r.sessions[s.ID] = &stored
	r.order = append(r.order, s.ID)
	r.mu.Unlock()

	r.bus.Publish(event.NewSessionAddedEvent(s.ID, s.WorktreePath, s.Agent.BaseID))
	return nil
}

// Remove deletes a session by id. It is idempotent and returns whether
// a session was actually removed, so racing close requests (UI and
// process-exit) both succeed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, exists := r.sessions[id]
	if !exists {
		r.mu.Unlock()
		return false
	}
	worktree := s.WorktreePath
	delete(r.sessions, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	for path, active := range r.lastActive {
		if active == id {
			delete(r.lastActive, path)
		}
	}
	r.mu.Unlock()

	r.bus.Publish(event.NewSessionRemovedEvent(id, worktree))
	return true
}

// Update merges the given fields into the session. Absent ids are a
// silent no-op.
func (r *Registry) Update(id string, u Update) {
	r.mu.Lock()
	s, exists := r.sessions[id]
	if !exists {
		r.mu.Unlock()
		return
	}

	var changed []string
	if u.DisplayName != nil && *u.DisplayName != s.DisplayName {
		s.DisplayName = *u.DisplayName
		changed = append(changed, "display_name")
	}
	if u.Initialized != nil && *u.Initialized != s.Initialized {
		s.Initialized = *u.Initialized
		changed = append(changed, "initialized")
	}
	if u.Activated != nil && *u.Activated != s.Activated {
		s.Activated = *u.Activated
		changed = append(changed, "activated")
	}
	var swappedID string
	if u.DisplayOrder != nil && *u.DisplayOrder != s.DisplayOrder {
		// Display order is unique within (workspace root, worktree).
		// A sibling already holding the requested order takes this
		// session's old slot, so the move is a swap.
		for otherID, other := range r.sessions {
			if otherID == id {
				continue
			}
			if other.WorkspaceRoot == s.WorkspaceRoot &&
				other.WorktreePath == s.WorktreePath &&
				other.DisplayOrder == *u.DisplayOrder {
				other.DisplayOrder = s.DisplayOrder
				swappedID = otherID
				break
			}
		}
		s.DisplayOrder = *u.DisplayOrder
		changed = append(changed, "display_order")
	}
	if u.TerminalTitle != nil && *u.TerminalTitle != s.TerminalTitle {
		s.TerminalTitle = *u.TerminalTitle
		changed = append(changed, "terminal_title")
	}
	r.mu.Unlock()

	if len(changed) > 0 {
		r.bus.Publish(event.NewSessionUpdatedEvent(id, changed))
	}
	if swappedID != "" {
		r.bus.Publish(event.NewSessionUpdatedEvent(swappedID, []string{"display_order"}))
	}
}

// Get returns a clone of the session and whether it exists.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return Session{}, false
	}
	return s.Clone(), true
}

// List returns clones of all sessions in insertion order.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id].Clone())
	}
	return out
}

// ListForWorktree returns the sessions of one (workspaceRoot, worktree)
// pair sorted by display order, ties broken by insertion order.
func (r *Registry) ListForWorktree(workspaceRoot, worktreePath string) []Session {
	worktreePath = NormalizePath(worktreePath)

	r.mu.RLock()
	var out []Session
	for _, id := range r.order {
		s := r.sessions[id]
		if s.WorkspaceRoot == workspaceRoot && s.WorktreePath == worktreePath {
			out = append(out, s.Clone())
		}
	}
	r.mu.RUnlock()

	// Stable sort keeps insertion order for equal display orders.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out
}

// ListForWorktreePath returns all sessions whose worktree matches,
// regardless of workspace root. Used for bulk close.
func (r *Registry) ListForWorktreePath(worktreePath string) []Session {
	worktreePath = NormalizePath(worktreePath)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Session
	for _, id := range r.order {
		s := r.sessions[id]
		if s.WorktreePath == worktreePath {
			out = append(out, s.Clone())
		}
	}
	return out
}

// NextDisplayOrder returns one past the highest display order currently
// in use for the worktree.
func (r *Registry) NextDisplayOrder(workspaceRoot, worktreePath string) int {
	worktreePath = NormalizePath(worktreePath)

	r.mu.RLock()
	defer r.mu.RUnlock()

	next := 0
	for _, s := range r.sessions {
		if s.WorkspaceRoot == workspaceRoot && s.WorktreePath == worktreePath && s.DisplayOrder >= next {
			next = s.DisplayOrder + 1
		}
	}
	return next
}

// SetActiveForWorktree records the fallback selection for a worktree.
// The id must exist; unknown ids are ignored.
func (r *Registry) SetActiveForWorktree(worktreePath, id string) {
	worktreePath = NormalizePath(worktreePath)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return
	}
	r.lastActive[worktreePath] = id
}

// ActiveForWorktree returns the fallback selection for a worktree, or
// false if none is recorded.
func (r *Registry) ActiveForWorktree(worktreePath string) (string, bool) {
	worktreePath = NormalizePath(worktreePath)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.lastActive[worktreePath]
	return id, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

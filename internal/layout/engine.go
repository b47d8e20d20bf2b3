package layout

import (
	"github.com/google/uuid"

	muxerrors "github.com/Iron-Ham/agentmux/internal/errors"
)

// DefaultMinFlexPercent is the smallest width a pane may be resized to.
const DefaultMinFlexPercent = 20.0

// Engine applies layout transforms. Every method takes a State and
// returns a new State; inputs are never mutated.
type Engine struct {
	minPercent float64
	newGroupID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinFlexPercent overrides the minimum pane width used by Resize.
func WithMinFlexPercent(pct float64) Option {
	return func(e *Engine) {
		if pct > 0 {
			e.minPercent = pct
		}
	}
}

// WithGroupIDFunc overrides group id generation. Tests use this for
// deterministic ids.
func WithGroupIDFunc(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newGroupID = fn
		}
	}
}

// NewEngine returns an Engine with the default minimum pane width and
// UUID group ids.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		minPercent: DefaultMinFlexPercent,
		newGroupID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinFlexPercent returns the configured minimum pane width.
func (e *Engine) MinFlexPercent() float64 {
	return e.minPercent
}

// CreateFirstGroup builds a single-group layout holding one session.
func (e *Engine) CreateFirstGroup(sessionID string) State {
	gid := e.newGroupID()
	return State{
		Groups: []Group{{
			ID:              gid,
			SessionIDs:      []string{sessionID},
			ActiveSessionID: sessionID,
		}},
		ActiveGroupID: gid,
		FlexPercents:  evenFlex(1),
		index:         map[string]string{sessionID: gid},
	}
}

// AppendToGroup adds a session to the end of a group and makes it the
// group's active session. With an empty groupID the active group is
// used, then the first group; on an empty layout a first group is
// created. The target group also becomes the active group.
func (e *Engine) AppendToGroup(s State, groupID, sessionID string) (State, error) {
	if s.Empty() {
		return e.CreateFirstGroup(sessionID), nil
	}
	if _, ok := s.GroupForSession(sessionID); ok {
		return s, muxerrors.ErrSessionExists
	}
	if groupID == "" {
		groupID = s.ActiveGroupID
	}
	if groupID == "" {
		groupID = s.Groups[0].ID
	}
	gi := s.groupIndex(groupID)
	if gi < 0 {
		return s, muxerrors.ErrGroupNotFound
	}
	next := s.clone()
	next.Groups[gi].SessionIDs = append(next.Groups[gi].SessionIDs, sessionID)
	next.Groups[gi].ActiveSessionID = sessionID
	next.ActiveGroupID = groupID
	next.index[sessionID] = groupID
	return next, nil
}

// RemoveSession removes a session from whichever group holds it. If the
// removed session was the group's active one, the sibling at the old
// position (clamped to the new length) takes over. A group emptied by
// removal is dropped and the widths renormalize evenly; the active
// group reassigns by the same clamp rule. Removing an unknown session
// is a no-op.
func (e *Engine) RemoveSession(s State, sessionID string) State {
	groupID, ok := s.GroupForSession(sessionID)
	if !ok {
		return s
	}
	next := s.clone()
	gi := next.groupIndex(groupID)
	g := &next.Groups[gi]
	si := g.indexOf(sessionID)
	g.SessionIDs = append(g.SessionIDs[:si], g.SessionIDs[si+1:]...)
	delete(next.index, sessionID)

	if len(g.SessionIDs) == 0 {
		next.Groups = append(next.Groups[:gi], next.Groups[gi+1:]...)
		next.FlexPercents = evenFlex(len(next.Groups))
		if len(next.Groups) == 0 {
			next.ActiveGroupID = ""
			return next
		}
		if next.ActiveGroupID == groupID {
			next.ActiveGroupID = next.Groups[clampIndex(gi, len(next.Groups))].ID
		}
		return next
	}

	if g.ActiveSessionID == sessionID {
		g.ActiveSessionID = g.SessionIDs[clampIndex(si, len(g.SessionIDs))]
	}
	return next
}

// SelectSession makes the session active within its group and makes
// that group the active group.
func (e *Engine) SelectSession(s State, sessionID string) (State, error) {
	groupID, ok := s.GroupForSession(sessionID)
	if !ok {
		return s, muxerrors.ErrNotGroupMember
	}
	next := s.clone()
	gi := next.groupIndex(groupID)
	next.Groups[gi].ActiveSessionID = sessionID
	next.ActiveGroupID = groupID
	return next, nil
}

// ReorderWithinGroup moves the session at fromIndex to toIndex inside
// one group. toIndex clamps to the ends; fromIndex must be in range.
// Active selections are unchanged.
func (e *Engine) ReorderWithinGroup(s State, groupID string, fromIndex, toIndex int) (State, error) {
	gi := s.groupIndex(groupID)
	if gi < 0 {
		return s, muxerrors.ErrGroupNotFound
	}
	n := len(s.Groups[gi].SessionIDs)
	if fromIndex < 0 || fromIndex >= n {
		return s, muxerrors.ErrIndexOutOfRange
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > n-1 {
		toIndex = n - 1
	}
	if toIndex == fromIndex {
		return s, nil
	}
	next := s.clone()
	g := &next.Groups[gi]
	moved := g.SessionIDs[fromIndex]
	g.SessionIDs = append(g.SessionIDs[:fromIndex], g.SessionIDs[fromIndex+1:]...)
	rest := append([]string{}, g.SessionIDs[toIndex:]...)
	g.SessionIDs = append(g.SessionIDs[:toIndex], moved)
	g.SessionIDs = append(g.SessionIDs, rest...)
	return next, nil
}

// Split detaches the active session of the given group into a new group
// inserted immediately to its right. The source group's next active is
// the sibling at the old position (clamped). Widths renormalize evenly
// and the new group becomes active with the moved session selected.
//
// When the source group holds only one session there is nothing to
// detach; the transform reports needNew=true and leaves the state
// untouched so the caller can create a fresh session and place it with
// InsertGroupAfter.
func (e *Engine) Split(s State, groupID string) (next State, needNew bool, err error) {
	gi := s.groupIndex(groupID)
	if gi < 0 {
		return s, false, muxerrors.ErrGroupNotFound
	}
	if len(s.Groups[gi].SessionIDs) == 1 {
		return s, true, nil
	}
	moved := s.Groups[gi].ActiveSessionID
	next = e.RemoveSession(s, moved)
	// The source group survives removal here, so gi still points at it.
	return e.insertGroup(next, gi+1, moved), false, nil
}

// InsertGroupAfter creates a new single-session group immediately to
// the right of the anchor group. The new group becomes active with the
// session selected.
func (e *Engine) InsertGroupAfter(s State, anchorGroupID, sessionID string) (State, error) {
	gi := s.groupIndex(anchorGroupID)
	if gi < 0 {
		return s, muxerrors.ErrGroupNotFound
	}
	if _, ok := s.GroupForSession(sessionID); ok {
		return s, muxerrors.ErrSessionExists
	}
	return e.insertGroup(s, gi+1, sessionID), nil
}

// insertGroup places a new group holding one session at position pos.
func (e *Engine) insertGroup(s State, pos int, sessionID string) State {
	next := s.clone()
	gid := e.newGroupID()
	ng := Group{ID: gid, SessionIDs: []string{sessionID}, ActiveSessionID: sessionID}
	next.Groups = append(next.Groups, Group{})
	copy(next.Groups[pos+1:], next.Groups[pos:])
	next.Groups[pos] = ng
	next.FlexPercents = evenFlex(len(next.Groups))
	next.ActiveGroupID = gid
	next.index[sessionID] = gid
	return next
}

// Merge moves the active session of the given group into the group
// immediately to its left, appending it there and selecting it. The
// target group becomes active. An emptied source group is dropped with
// even renormalization; a source group with members left makes its
// first remaining session active. Merging the leftmost group is a
// no-op.
func (e *Engine) Merge(s State, groupID string) (State, error) {
	gi := s.groupIndex(groupID)
	if gi < 0 {
		return s, muxerrors.ErrGroupNotFound
	}
	if gi == 0 {
		return s, nil
	}
	moved := s.Groups[gi].ActiveSessionID
	targetID := s.Groups[gi-1].ID

	next := s.clone()
	g := &next.Groups[gi]
	si := g.indexOf(moved)
	g.SessionIDs = append(g.SessionIDs[:si], g.SessionIDs[si+1:]...)
	if len(g.SessionIDs) == 0 {
		next.Groups = append(next.Groups[:gi], next.Groups[gi+1:]...)
		next.FlexPercents = evenFlex(len(next.Groups))
	} else {
		g.ActiveSessionID = g.SessionIDs[0]
	}
	ti := next.groupIndex(targetID)
	next.Groups[ti].SessionIDs = append(next.Groups[ti].SessionIDs, moved)
	next.Groups[ti].ActiveSessionID = moved
	next.ActiveGroupID = targetID
	next.index[moved] = targetID
	return next, nil
}

// Resize shifts the boundary between the group at index and its right
// neighbor by delta percentage points. The whole delta applies or none
// of it: if either adjusted pane would fall below the minimum, the
// state is returned unchanged with ErrResizeRejected.
func (e *Engine) Resize(s State, index int, delta float64) (State, error) {
	if index < 0 || index >= len(s.Groups)-1 {
		return s, muxerrors.ErrIndexOutOfRange
	}
	left := s.FlexPercents[index] + delta
	right := s.FlexPercents[index+1] - delta
	if left < e.minPercent || right < e.minPercent {
		return s, muxerrors.ErrResizeRejected
	}
	next := s.clone()
	next.FlexPercents[index] = left
	next.FlexPercents[index+1] = right
	return next, nil
}

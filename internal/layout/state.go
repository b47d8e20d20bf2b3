package layout

// Group is one resizable pane holding an ordered set of sessions with
// one visible/active session.
type Group struct {
	ID              string   `json:"id"`
	SessionIDs      []string `json:"session_ids"`
	ActiveSessionID string   `json:"active_session_id,omitempty"`
}

// clone returns a deep copy of the group.
func (g Group) clone() Group {
	dup := g
	dup.SessionIDs = append([]string{}, g.SessionIDs...)
	return dup
}

// indexOf returns the position of a session in the group, or -1.
func (g Group) indexOf(sessionID string) int {
	for i, id := range g.SessionIDs {
		if id == sessionID {
			return i
		}
	}
	return -1
}

// State is the full split-pane layout for one worktree: all groups,
// which one is active, and their widths as percentages summing to 100.
type State struct {
	Groups        []Group   `json:"groups"`
	ActiveGroupID string    `json:"active_group_id,omitempty"`
	FlexPercents  []float64 `json:"flex_percents"`

	// index maps session id to owning group id. It is rebuilt lazily
	// after deserialization and maintained incrementally by transforms.
	index map[string]string
}

// Empty reports whether the layout holds no groups.
func (s State) Empty() bool {
	return len(s.Groups) == 0
}

// GroupForSession returns the id of the group holding the session.
// Uses the incrementally maintained index instead of scanning.
func (s State) GroupForSession(sessionID string) (string, bool) {
	if s.index == nil {
		// Deserialized state; fall back to a scan without mutating the
		// shared snapshot.
		for _, g := range s.Groups {
			if g.indexOf(sessionID) >= 0 {
				return g.ID, true
			}
		}
		return "", false
	}
	gid, ok := s.index[sessionID]
	return gid, ok
}

// Group returns a copy of the group with the given id.
func (s State) Group(groupID string) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == groupID {
			return g.clone(), true
		}
	}
	return Group{}, false
}

// ActiveSession returns the active session of the active group, falling
// through the group-level active. Empty when the layout is empty.
func (s State) ActiveSession() string {
	for _, g := range s.Groups {
		if g.ID == s.ActiveGroupID {
			return g.ActiveSessionID
		}
	}
	return ""
}

// SessionCount returns the number of sessions across all groups.
func (s State) SessionCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.SessionIDs)
	}
	return n
}

// groupIndex returns the position of a group in the layout, or -1.
func (s State) groupIndex(groupID string) int {
	for i, g := range s.Groups {
		if g.ID == groupID {
			return i
		}
	}
	return -1
}

// clone deep-copies the state, including the session index.
func (s State) clone() State {
	dup := State{
		ActiveGroupID: s.ActiveGroupID,
		Groups:        make([]Group, len(s.Groups)),
		FlexPercents:  append([]float64{}, s.FlexPercents...),
		index:         make(map[string]string, len(s.index)),
	}
	for i, g := range s.Groups {
		dup.Groups[i] = g.clone()
	}
	if s.index != nil {
		for sid, gid := range s.index {
			dup.index[sid] = gid
		}
	} else {
		dup.rebuildIndex()
	}
	return dup
}

// rebuildIndex reconstructs the session index from group membership.
// Called for deserialized states before their first transform.
func (s *State) rebuildIndex() {
	s.index = make(map[string]string)
	for _, g := range s.Groups {
		for _, sid := range g.SessionIDs {
			s.index[sid] = g.ID
		}
	}
}

// Normalize prepares a deserialized state for use: it rebuilds the
// session index. Transform semantics do not depend on it, but lookups
// become O(1) again.
func (s *State) Normalize() {
	s.rebuildIndex()
}

// evenFlex returns n equal percentages summing to 100.
func evenFlex(n int) []float64 {
	if n == 0 {
		return []float64{}
	}
	out := make([]float64, n)
	each := 100.0 / float64(n)
	for i := range out {
		out[i] = each
	}
	return out
}

// clampIndex applies the removal clamp rule: the surviving neighbor of a
// removed element is the one at the old index, clamped to the new length.
func clampIndex(oldIndex, newLen int) int {
	if oldIndex > newLen-1 {
		return newLen - 1
	}
	return oldIndex
}

// Package layout implements the split-pane group layout for one
// worktree: an ordered list of groups, each holding an ordered set of
// sessions with one active, plus normalized flex widths.
//
// Every operation is a pure transform from one State to a new State;
// the input is never mutated. This keeps the single-turn event model
// honest: observers always see either the old snapshot or the new one,
// never a half-applied layout.
//
// The transforms maintain a session-to-group index inside State, so
// finding the group that holds a session is a map lookup rather than a
// scan over all groups on every render.
//
// Engine transforms preserve these invariants:
//   - sum(FlexPercents) == 100 and len(FlexPercents) == len(Groups)
//   - each group's ActiveSessionID is a member (or empty iff the group is empty)
//   - ActiveGroupID references an existing group (or empty iff no groups)
//   - a session id appears in at most one group
package layout

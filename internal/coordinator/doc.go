// Package coordinator orchestrates the session registry and the layout
// engine for compound operations: creating and closing sessions,
// splitting and merging groups, and the cross-cutting rules that keep
// both stores consistent (empty-group cleanup, re-activation, bulk
// close). All mutation of registry and layout state routes through
// here; observers see each compound operation as a coherent set of
// events on the bus.
package coordinator

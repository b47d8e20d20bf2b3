// Package detect infers that an agent finished a unit of real work by
// passively watching terminal traffic for a session.
//
// The inference runs as a small state machine per session. A plain
// Enter opens an accumulation window (optionally after an arm delay).
// Output volume inside the window must exceed a threshold before the
// machine arms, which filters out trivial prompt echo. Once armed, a
// stretch of silence longer than the idle timeout produces exactly one
// completion signal and the machine returns to idle.
//
// The transition function Step is pure. Timers are expressed as
// schedule/cancel effects carrying sequence tokens; a fired timer whose
// token no longer matches the state is stale and must be dropped.
// Monitor wires Step to a Scheduler and a callback sink for production
// use.
package detect

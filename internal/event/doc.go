// Package event defines the event types and the synchronous pub-sub bus
// that decouple agentmux components. The session registry, the group
// coordinator, and the idle detector publish events; the keyboard router,
// the notification dispatcher, and the host surface subscribe.
//
// The bus is synchronous: Publish calls every handler before returning,
// which preserves the single-turn transform model. Handlers must not
// mutate registry or layout state directly; they route back through the
// coordinator entry points.
//
// Event type identifiers follow the "category.action" convention:
//
//	session.added, session.removed, session.updated,
//	session.initialized, session.activated,
//	group.state_changed, worktree.activity_changed,
//	notify.requested
package event

// Package session holds the canonical registry of agent sessions across
// all workspaces. The registry is pure bookkeeping: CRUD, per-worktree
// ordering, and a fallback last-active selection. It performs no I/O and
// never talks to the process layer; every mutation is announced on the
// event bus so other components can react without polling.
package session

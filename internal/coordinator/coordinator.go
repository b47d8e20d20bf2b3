package coordinator

import (
	"context"
	"sync"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/uuid"

	"github.com/Iron-Ham/agentmux/internal/agent"
	"github.com/Iron-Ham/agentmux/internal/detect"
	muxerrors "github.com/Iron-Ham/agentmux/internal/errors"
	"github.com/Iron-Ham/agentmux/internal/event"
	"github.com/Iron-Ham/agentmux/internal/layout"
	"github.com/Iron-Ham/agentmux/internal/logging"
	"github.com/Iron-Ham/agentmux/internal/proc"
	"github.com/Iron-Ham/agentmux/internal/session"
)

// Options wires the coordinator's collaborators. Registry, Engine and
// Bus are required; the process host, shell resolver and monitor may be
// nil, in which case sessions exist without a live process (useful in
// tests and for restored sessions).
type Options struct {
	Registry *session.Registry
	Engine   *layout.Engine
	Bus      *event.Bus
	Monitor  *detect.Monitor
	Host     proc.Host
	Resolver proc.ShellResolver

	Shell      proc.ShellConfig
	Proxy      agent.ProxyConfig
	ExitPolicy proc.ExitPolicy

	// DefaultAgent is the agent used by NewSession. Empty means claude.
	DefaultAgent string

	Logger *logging.Logger
}

// Coordinator owns the per-worktree layout states and ties registry,
// layout, detector and process host together.
type Coordinator struct {
	reg      *session.Registry
	engine   *layout.Engine
	bus      *event.Bus
	monitor  *detect.Monitor
	host     proc.Host
	resolver proc.ShellResolver

	shell        proc.ShellConfig
	proxy        agent.ProxyConfig
	exitPolicy   proc.ExitPolicy
	defaultAgent string
	log          *logging.Logger

	mu      sync.Mutex
	states  map[string]layout.State
	handles map[string]proc.Handle
	tails   map[string]*proc.TailBuffer
}

// New builds a Coordinator.
func New(opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	defaultAgent := opts.DefaultAgent
	if defaultAgent == "" {
		defaultAgent = "claude"
	}
	return &Coordinator{
		reg:          opts.Registry,
		engine:       opts.Engine,
		bus:          opts.Bus,
		monitor:      opts.Monitor,
		host:         opts.Host,
		resolver:     opts.Resolver,
		shell:        opts.Shell,
		proxy:        opts.Proxy,
		exitPolicy:   opts.ExitPolicy,
		defaultAgent: defaultAgent,
		log:          log.WithComponent("coordinator"),
		states:       make(map[string]layout.State),
		handles:      make(map[string]proc.Handle),
		tails:        make(map[string]*proc.TailBuffer),
	}
}

// NewSessionOptions controls session creation.
type NewSessionOptions struct {
	WorkspaceRoot string
	WorktreePath  string
	Agent         agent.Ref
	DisplayName   string

	CommandOverride string
	ArgsOverride    []string

	// ResumeID continues an earlier conversation, used for deferred
	// review continuations.
	ResumeID string

	// GroupID places the session in a specific group. Empty falls back
	// to the active group, then the first, then a fresh one.
	GroupID string
}

// NewSession creates a session running the default agent natively.
func (c *Coordinator) NewSession(ctx context.Context, workspaceRoot, worktreePath string) (session.Session, error) {
	return c.NewSessionWithAgent(ctx, NewSessionOptions{
		WorkspaceRoot: workspaceRoot,
		WorktreePath:  worktreePath,
		Agent:         agent.Ref{BaseID: c.defaultAgent, Environment: agent.EnvNative},
	})
}

// NewSessionWithAgent creates a session, places it in the worktree's
// layout and spawns its process. A spawn or shell-resolution failure
// leaves the session in place unstarted; recovery is manual.
func (c *Coordinator) NewSessionWithAgent(ctx context.Context, opts NewSessionOptions) (session.Session, error) {
	worktree := session.NormalizePath(opts.WorktreePath)
	s := session.Session{
		ID:              uuid.NewString(),
		DisplayName:     opts.DisplayName,
		Agent:           opts.Agent,
		CommandOverride: opts.CommandOverride,
		ArgsOverride:    opts.ArgsOverride,
		WorkspaceRoot:   opts.WorkspaceRoot,
		WorktreePath:    worktree,
		DisplayOrder:    c.reg.NextDisplayOrder(opts.WorkspaceRoot, worktree),
	}
	if s.Agent.BaseID == "" {
		s.Agent = agent.Ref{BaseID: c.defaultAgent, Environment: agent.EnvNative}
	}
	if err := c.reg.Add(s); err != nil {
		return session.Session{}, err
	}

	c.mu.Lock()
	state := c.stateLocked(worktree)
	next, err := c.engine.AppendToGroup(state, opts.GroupID, s.ID)
	if err != nil {
		c.mu.Unlock()
		c.reg.Remove(s.ID)
		return session.Session{}, err
	}
	c.states[worktree] = next
	c.mu.Unlock()

	c.reg.SetActiveForWorktree(worktree, s.ID)
	if c.monitor != nil {
		c.monitor.Track(s.ID)
	}
	c.publishLayout(worktree, next)
	c.publishActivity(worktree)

	c.spawn(ctx, s, opts.ResumeID)
	return s, nil
}

// CloseSession removes a session from registry and layout and stops its
// process. Closing an unknown id is a no-op, since UI-originated and
// exit-originated close requests can race.
func (c *Coordinator) CloseSession(id string) error {
	// Snapshot before removal so layout cleanup never chases a vanished
	// entity.
	snap, ok := c.reg.Get(id)
	if !ok {
		return nil
	}
	c.reg.Remove(id)
	if c.monitor != nil {
		c.monitor.Untrack(id)
	}

	c.mu.Lock()
	handle := c.handles[id]
	delete(c.handles, id)
	delete(c.tails, id)
	worktree := snap.WorktreePath
	next := c.engine.RemoveSession(c.stateLocked(worktree), id)
	c.states[worktree] = next
	c.mu.Unlock()

	if active := next.ActiveSession(); active != "" {
		c.reg.SetActiveForWorktree(worktree, active)
	}
	c.publishLayout(worktree, next)
	c.publishActivity(worktree)

	if handle != nil {
		go func() { _ = handle.Close() }()
	}
	c.log.WithSession(id).Info("session closed", "worktree", worktree)
	return nil
}

// RenameSession updates the display name.
func (c *Coordinator) RenameSession(id, name string) {
	c.reg.Update(id, session.Update{DisplayName: &name})
}

// CloseAllForWorktree bulk-removes every session of the worktree and
// deletes its layout state entirely. One aggregate activity-count
// event is emitted instead of one per session.
func (c *Coordinator) CloseAllForWorktree(path string) {
	worktree := session.NormalizePath(path)
	sessions := c.reg.ListForWorktreePath(worktree)

	var handles []proc.Handle
	c.mu.Lock()
	for _, s := range sessions {
		if h := c.handles[s.ID]; h != nil {
			handles = append(handles, h)
		}
		delete(c.handles, s.ID)
		delete(c.tails, s.ID)
	}
	delete(c.states, worktree)
	c.mu.Unlock()

	for _, s := range sessions {
		c.reg.Remove(s.ID)
		if c.monitor != nil {
			c.monitor.Untrack(s.ID)
		}
	}

	c.publishLayout(worktree, layout.State{})
	c.bus.Publish(event.NewActivityCountChangedEvent(worktree, 0))

	for _, h := range handles {
		h := h
		go func() { _ = h.Close() }()
	}
	c.log.Info("closed all sessions for worktree", "worktree", worktree, "count", len(sessions))
}

// SelectSession focuses a session within its group and records it as
// the worktree's fallback selection.
func (c *Coordinator) SelectSession(id string) error {
	snap, ok := c.reg.Get(id)
	if !ok {
		return muxerrors.ErrSessionNotFound
	}
	worktree := snap.WorktreePath

	c.mu.Lock()
	next, err := c.engine.SelectSession(c.stateLocked(worktree), id)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.states[worktree] = next
	c.mu.Unlock()

	c.reg.SetActiveForWorktree(worktree, id)
	c.publishLayout(worktree, next)
	return nil
}

// SplitGroup detaches the active session of a group into a new pane to
// its right. GroupID empty means the active group. A single-session
// group splits by creating a brand-new session in the new pane instead.
func (c *Coordinator) SplitGroup(ctx context.Context, worktreePath, groupID string) error {
	worktree := session.NormalizePath(worktreePath)

	c.mu.Lock()
	state := c.stateLocked(worktree)
	if groupID == "" {
		groupID = state.ActiveGroupID
	}
	next, needNew, err := c.engine.Split(state, groupID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !needNew {
		c.states[worktree] = next
		c.mu.Unlock()
		if active := next.ActiveSession(); active != "" {
			c.reg.SetActiveForWorktree(worktree, active)
		}
		c.publishLayout(worktree, next)
		return nil
	}
	// Single-session group: a fresh session fills the new pane.
	g, ok := state.Group(groupID)
	c.mu.Unlock()
	if !ok {
		return muxerrors.ErrGroupNotFound
	}
	anchor, found := c.reg.Get(g.ActiveSessionID)
	if !found {
		return muxerrors.ErrSessionNotFound
	}

	s := session.Session{
		ID:            uuid.NewString(),
		Agent:         agent.Ref{BaseID: c.defaultAgent, Environment: agent.EnvNative},
		WorkspaceRoot: anchor.WorkspaceRoot,
		WorktreePath:  worktree,
		DisplayOrder:  c.reg.NextDisplayOrder(anchor.WorkspaceRoot, worktree),
	}
	if err := c.reg.Add(s); err != nil {
		return err
	}

	c.mu.Lock()
	next, err = c.engine.InsertGroupAfter(c.stateLocked(worktree), groupID, s.ID)
	if err != nil {
		c.mu.Unlock()
		c.reg.Remove(s.ID)
		return err
	}
	c.states[worktree] = next
	c.mu.Unlock()

	c.reg.SetActiveForWorktree(worktree, s.ID)
	if c.monitor != nil {
		c.monitor.Track(s.ID)
	}
	c.publishLayout(worktree, next)
	c.publishActivity(worktree)
	c.spawn(ctx, s, "")
	return nil
}

// MergeGroup moves the active session of a group into the group to its
// left. GroupID empty means the active group.
func (c *Coordinator) MergeGroup(worktreePath, groupID string) error {
	worktree := session.NormalizePath(worktreePath)

	c.mu.Lock()
	state := c.stateLocked(worktree)
	if groupID == "" {
		groupID = state.ActiveGroupID
	}
	next, err := c.engine.Merge(state, groupID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.states[worktree] = next
	c.mu.Unlock()

	if active := next.ActiveSession(); active != "" {
		c.reg.SetActiveForWorktree(worktree, active)
	}
	c.publishLayout(worktree, next)
	return nil
}

// ResizeBoundary shifts the pane boundary by delta percentage points.
// A delta the minimum-width rule rejects is silently ignored.
func (c *Coordinator) ResizeBoundary(worktreePath string, boundaryIndex int, delta float64) error {
	worktree := session.NormalizePath(worktreePath)

	c.mu.Lock()
	next, err := c.engine.Resize(c.stateLocked(worktree), boundaryIndex, delta)
	if err != nil {
		c.mu.Unlock()
		if muxerrors.Is(err, muxerrors.ErrResizeRejected) {
			return nil
		}
		return err
	}
	c.states[worktree] = next
	c.mu.Unlock()

	c.publishLayout(worktree, next)
	return nil
}

// Reorder moves a session between positions inside one group.
func (c *Coordinator) Reorder(worktreePath, groupID string, fromIndex, toIndex int) error {
	worktree := session.NormalizePath(worktreePath)

	c.mu.Lock()
	next, err := c.engine.ReorderWithinGroup(c.stateLocked(worktree), groupID, fromIndex, toIndex)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.states[worktree] = next
	c.mu.Unlock()

	c.publishLayout(worktree, next)
	return nil
}

// ViewWorktree returns the worktree's layout state, creating an empty
// one on first view.
func (c *Coordinator) ViewWorktree(path string) layout.State {
	worktree := session.NormalizePath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked(worktree)
}

// States returns a copy of all per-worktree layout states, keyed by
// normalized worktree path. Used for persistence snapshots.
func (c *Coordinator) States() map[string]layout.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]layout.State, len(c.states))
	for k, v := range c.states {
		out[k] = v
	}
	return out
}

// RestoreStates replaces the layout states wholesale, normalizing each
// for use. Used when loading persisted state at startup.
func (c *Coordinator) RestoreStates(states map[string]layout.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[string]layout.State, len(states))
	for path, st := range states {
		st.Normalize()
		c.states[session.NormalizePath(path)] = st
	}
}

// SessionWorktree resolves a session to its worktree path.
func (c *Coordinator) SessionWorktree(id string) (string, bool) {
	s, ok := c.reg.Get(id)
	if !ok {
		return "", false
	}
	return s.WorktreePath, true
}

// ActivityCount returns the number of sessions in the worktree.
func (c *Coordinator) ActivityCount(path string) int {
	return len(c.reg.ListForWorktreePath(session.NormalizePath(path)))
}

// MarkInitialized flips the session's initialized flag, once.
func (c *Coordinator) MarkInitialized(id string) {
	t := true
	c.reg.Update(id, session.Update{Initialized: &t})
	c.bus.Publish(event.NewSessionInitializedEvent(id))
}

// MarkActivated flips the session's activated flag, once.
func (c *Coordinator) MarkActivated(id string) {
	t := true
	c.reg.Update(id, session.Update{Activated: &t})
	c.bus.Publish(event.NewSessionActivatedEvent(id))
}

// RequestNotification publishes a notification request for a session
// that finished a work cycle: title is the agent label, body the last
// known terminal title or the derived workspace name.
func (c *Coordinator) RequestNotification(id string) {
	s, ok := c.reg.Get(id)
	if !ok {
		return
	}
	body := s.TerminalTitle
	if body == "" {
		body = s.DerivedName()
	}
	c.bus.Publish(event.NewNotificationRequestedEvent(id, agent.Lookup(s.Agent.BaseID).Label, body))
}

// SetTerminalTitle records the latest title reported by the terminal
// layer for a session.
func (c *Coordinator) SetTerminalTitle(id, title string) {
	c.reg.Update(id, session.Update{TerminalTitle: &title})
}

// WriteToSession sends input bytes to the session's process.
func (c *Coordinator) WriteToSession(id string, p []byte) error {
	c.mu.Lock()
	handle := c.handles[id]
	c.mu.Unlock()
	if handle == nil {
		return muxerrors.ErrProcessNotRunning
	}
	_, err := handle.Write(p)
	return err
}

// ResizeSession changes the session terminal geometry.
func (c *Coordinator) ResizeSession(id string, cols, rows uint16) error {
	c.mu.Lock()
	handle := c.handles[id]
	c.mu.Unlock()
	if handle == nil {
		return muxerrors.ErrProcessNotRunning
	}
	return handle.Resize(cols, rows)
}

// stateLocked returns the worktree's state, creating an empty entry on
// first view. Caller holds c.mu.
func (c *Coordinator) stateLocked(worktree string) layout.State {
	if st, ok := c.states[worktree]; ok {
		return st
	}
	st := layout.State{}
	c.states[worktree] = st
	return st
}

func (c *Coordinator) publishLayout(worktree string, st layout.State) {
	c.bus.Publish(event.NewGroupStateChangedEvent(worktree, st))
}

func (c *Coordinator) publishActivity(worktree string) {
	c.bus.Publish(event.NewActivityCountChangedEvent(worktree, c.ActivityCount(worktree)))
}

// spawn resolves the shell, assembles the agent command line and starts
// the process. Failures leave the session visually unstarted; there is
// no automatic retry.
func (c *Coordinator) spawn(ctx context.Context, s session.Session, resumeID string) {
	if c.host == nil || c.resolver == nil {
		return
	}
	resolved, err := c.resolver.Resolve(ctx, c.shell)
	if err != nil {
		c.log.WithSession(s.ID).Error("shell resolution failed", "error", err)
		return
	}

	spec := agent.Build(agent.BuildOptions{
		Ref:             s.Agent,
		CommandOverride: s.CommandOverride,
		ArgsOverride:    s.ArgsOverride,
		ResumeID:        resumeID,
		Proxy:           c.proxy,
	})
	cmdline := shellescape.QuoteCommand(append([]string{spec.Command}, spec.Args...))

	tail := proc.NewTailBuffer(4096)
	id := s.ID
	handle, err := c.host.Spawn(ctx, proc.Spec{
		Command: resolved.Shell,
		Args:    resolved.CommandLine(cmdline),
		Dir:     s.WorktreePath,
	}, func(chunk []byte) {
		_, _ = tail.Write(chunk)
		if c.monitor != nil {
			c.monitor.HandleOutput(id, len(chunk))
		}
	}, func(info proc.ExitInfo) {
		c.handleExit(id, info)
	})
	if err != nil {
		c.log.WithSession(s.ID).Error("spawn failed", "error", err)
		return
	}

	c.mu.Lock()
	c.handles[s.ID] = handle
	c.tails[s.ID] = tail
	c.mu.Unlock()
}

// handleExit applies the exit policy: fast exits without a not-found
// marker keep the pane open for inspection, everything else closes the
// session.
func (c *Coordinator) handleExit(id string, info proc.ExitInfo) {
	c.mu.Lock()
	tail := c.tails[id]
	delete(c.handles, id)
	c.mu.Unlock()

	recent := ""
	if tail != nil {
		recent = tail.String()
	}
	action := c.exitPolicy.Decide(info.Runtime, recent)
	c.log.WithSession(id).Info("process exit",
		"code", info.Code, "runtime", info.Runtime, "action", action.String())
	if action == proc.ClosePane {
		_ = c.CloseSession(id)
	}
}

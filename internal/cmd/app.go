package cmd

import (
	"context"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/agentmux/internal/config"
	"github.com/Iron-Ham/agentmux/internal/coordinator"
	"github.com/Iron-Ham/agentmux/internal/detect"
	"github.com/Iron-Ham/agentmux/internal/event"
	"github.com/Iron-Ham/agentmux/internal/keymap"
	"github.com/Iron-Ham/agentmux/internal/layout"
	"github.com/Iron-Ham/agentmux/internal/logging"
	"github.com/Iron-Ham/agentmux/internal/notify"
	"github.com/Iron-Ham/agentmux/internal/proc"
	"github.com/Iron-Ham/agentmux/internal/session"
	"github.com/Iron-Ham/agentmux/internal/store"
)

// saveDebounce coalesces bursts of state changes into one store write.
const saveDebounce = 500 * time.Millisecond

// App wires the registry, layout engine, coordinator, detector,
// dispatcher, router and store into one running core.
type App struct {
	cfg *config.Config
	log *logging.Logger

	bus        *event.Bus
	reg        *session.Registry
	coord      *coordinator.Coordinator
	monitor    *detect.Monitor
	dispatcher *notify.Dispatcher
	router     *keymap.Router
	store      *store.Store
	watcher    *store.Watcher

	saveMu    sync.Mutex
	saveTimer *time.Timer
}

// newApp builds the full application from configuration, restoring any
// persisted sessions and layout state.
func newApp(cfg *config.Config) (*App, error) {
	logOpts := logging.Options{Level: cfg.Logging.Level}
	if cfg.Logging.Enabled {
		logOpts.Dir = cfg.Paths.ResolveLogDir()
		logOpts.MaxSizeMB = cfg.Logging.MaxSizeMB
		logOpts.MaxBackups = cfg.Logging.MaxBackups
	}
	log, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}
	a.bus = event.NewBus()
	a.reg = session.NewRegistry(a.bus)

	a.monitor = detect.NewMonitor(
		detect.Config{
			ArmDelay:        cfg.Detector.ArmDelay(),
			IdleTimeout:     cfg.Detector.IdleTimeout(),
			OutputThreshold: cfg.Detector.OutputThreshold,
		},
		detect.TimerScheduler{},
		detect.Callbacks{
			OnInitialized: func(id string) { a.coord.MarkInitialized(id) },
			OnActivated:   func(id string) { a.coord.MarkActivated(id) },
			OnNotify:      func(id string) { a.coord.RequestNotification(id) },
		},
		log,
	)

	a.coord = coordinator.New(coordinator.Options{
		Registry: a.reg,
		Engine:   layout.NewEngine(layout.WithMinFlexPercent(cfg.Layout.MinFlexPercent)),
		Bus:      a.bus,
		Monitor:  a.monitor,
		Host:     proc.NewPTYHost(log),
		Resolver: proc.LoginShellResolver{},
		ExitPolicy: proc.ExitPolicy{
			MinRuntime:      cfg.Process.MinRuntime(),
			NotFoundMarkers: cfg.Process.NotFoundMarkers,
		},
		Logger: log,
	})

	a.dispatcher = notify.NewDispatcher(
		notify.NewTerminalHost(os.Stdout),
		notify.Callbacks{
			SelectSession:   func(id string) { _ = a.coord.SelectSession(id) },
			SwitchWorkspace: func(path string) { a.router.SetFocusedWorktree(path) },
			WorktreeFor:     a.coord.SessionWorktree,
			FocusedWorktree: func() string { return a.router.FocusedWorktree() },
			AgentStopped:    a.monitor.HandleExternalStop,
		},
		log,
	)
	a.dispatcher.BindBus(a.bus)

	a.router = keymap.NewRouter(keymap.DefaultKeymap(), a.dispatchCommand, log)
	if err := a.router.ApplyOverrides(cfg.Keymap.Overrides); err != nil {
		log.Warn("keymap overrides rejected", "error", err)
	}

	a.store = store.New(cfg.Paths.ResolveStateFile(), log)
	if err := a.restore(); err != nil {
		log.Warn("state restore failed, starting empty", "error", err)
	}
	a.bus.SubscribeAll(a.onEvent)

	w, err := store.Watch(a.store, a.onExternalReload, log)
	if err != nil {
		log.Warn("state watcher unavailable", "error", err)
	} else {
		a.watcher = w
	}

	return a, nil
}

// restore loads the persisted snapshot into registry and layout.
func (a *App) restore() error {
	snap, err := a.store.Load()
	if err != nil {
		return err
	}
	for _, s := range snap.Sessions {
		if err := a.reg.Add(s); err != nil {
			a.log.Warn("skipping persisted session", "session_id", s.ID, "error", err)
		}
	}
	a.coord.RestoreStates(snap.GroupStates)
	for path, id := range snap.LastActive {
		a.reg.SetActiveForWorktree(path, id)
	}
	return nil
}

// persistable reports whether an event type changes durable state.
// Notification requests and first-output signals carry nothing the
// snapshot records.
func persistable(eventType string) bool {
	switch eventType {
	case "notify.requested", "session.initialized":
		return false
	}
	return true
}

// onEvent schedules a debounced snapshot save after any state-bearing
// event.
func (a *App) onEvent(ev event.Event) {
	if !persistable(ev.EventType()) {
		return
	}

	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	if a.saveTimer != nil {
		a.saveTimer.Stop()
	}
	a.saveTimer = time.AfterFunc(saveDebounce, a.save)
}

// save writes the current registry and layout state to the store.
func (a *App) save() {
	snap := store.Snapshot{
		Sessions:    a.reg.List(),
		GroupStates: a.coord.States(),
		LastActive:  map[string]string{},
	}
	for path := range snap.GroupStates {
		if id, ok := a.reg.ActiveForWorktree(path); ok {
			snap.LastActive[path] = id
		}
	}
	if err := a.store.Save(snap); err != nil {
		a.log.Error("state save failed", "error", err)
	}
}

// onExternalReload applies layout state modified by another process.
func (a *App) onExternalReload(snap store.Snapshot) {
	a.log.Info("state file changed externally, reloading layout")
	a.coord.RestoreStates(snap.GroupStates)
}

// Close flushes state and releases the watcher and log file.
func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	a.saveMu.Lock()
	if a.saveTimer != nil {
		a.saveTimer.Stop()
		a.saveTimer = nil
	}
	a.saveMu.Unlock()
	a.save()
	_ = a.log.Close()
}

// focusedState returns the layout for the focused worktree.
func (a *App) focusedState() (string, layout.State) {
	path := a.router.FocusedWorktree()
	return path, a.coord.ViewWorktree(path)
}

// orderedSessions flattens a layout into left-to-right session order.
func orderedSessions(st layout.State) []string {
	var ids []string
	for _, g := range st.Groups {
		ids = append(ids, g.SessionIDs...)
	}
	return ids
}

// resizeStep is the flex-percent delta applied per grow/shrink chord.
const resizeStep = 5.0

// dispatchCommand executes a resolved keyboard command against the
// focused worktree.
func (a *App) dispatchCommand(cmd keymap.Command, msg tea.KeyMsg) {
	path, st := a.focusedState()
	activeID, _ := a.reg.ActiveForWorktree(path)

	switch cmd {
	case keymap.CmdNewSession:
		ws := path
		if s, ok := a.reg.Get(activeID); ok {
			ws = s.WorkspaceRoot
		}
		if _, err := a.coord.NewSession(context.Background(), ws, path); err != nil {
			a.log.Error("new session failed", "error", err)
		}

	case keymap.CmdCloseSession:
		if activeID != "" {
			_ = a.coord.CloseSession(activeID)
		}

	case keymap.CmdCloseAllWorktree:
		a.coord.CloseAllForWorktree(path)

	case keymap.CmdRenameSession:
		// Renaming needs a text prompt; the embedding UI drives
		// RenameSession directly.

	case keymap.CmdNextSession:
		a.cycleSession(st, activeID, 1)

	case keymap.CmdPrevSession:
		a.cycleSession(st, activeID, -1)

	case keymap.CmdJumpToSession:
		if len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9' {
			ids := orderedSessions(st)
			if n := int(msg.Runes[0] - '1'); n < len(ids) {
				_ = a.coord.SelectSession(ids[n])
			}
		}

	case keymap.CmdSplitGroup:
		if err := a.coord.SplitGroup(context.Background(), path, ""); err != nil {
			a.log.Debug("split rejected", "error", err)
		}

	case keymap.CmdMergeGroup:
		if err := a.coord.MergeGroup(path, ""); err != nil {
			a.log.Debug("merge rejected", "error", err)
		}

	case keymap.CmdGrowPane:
		a.resizeActive(st, path, resizeStep)

	case keymap.CmdShrinkPane:
		a.resizeActive(st, path, -resizeStep)

	case keymap.CmdReorderLeft:
		a.reorderActive(st, path, -1)

	case keymap.CmdReorderRight:
		a.reorderActive(st, path, 1)

	case keymap.CmdForwardToSession:
		if activeID == "" {
			return
		}
		if msg.Type == tea.KeyEnter && !msg.Alt {
			a.dispatcher.ClearInFlight(activeID)
			a.monitor.HandleEnter(activeID)
		} else {
			a.monitor.HandleKey(activeID, msg.Alt)
		}
		if b := keyBytes(msg); len(b) > 0 {
			if err := a.coord.WriteToSession(activeID, b); err != nil {
				a.log.Debug("forward failed", "session_id", activeID, "error", err)
			}
		}
	}
}

// cycleSession moves focus forward or backward through the worktree's
// flattened session order, wrapping at the ends.
func (a *App) cycleSession(st layout.State, activeID string, step int) {
	ids := orderedSessions(st)
	if len(ids) == 0 {
		return
	}
	cur := 0
	for i, id := range ids {
		if id == activeID {
			cur = i
			break
		}
	}
	next := (cur + step + len(ids)) % len(ids)
	_ = a.coord.SelectSession(ids[next])
}

// resizeActive adjusts the boundary to the right of the active group,
// or the left one for the rightmost group.
func (a *App) resizeActive(st layout.State, path string, delta float64) {
	idx := -1
	for i, g := range st.Groups {
		if g.ID == st.ActiveGroupID {
			idx = i
			break
		}
	}
	if idx < 0 || len(st.Groups) < 2 {
		return
	}
	boundary := idx
	if idx == len(st.Groups)-1 {
		boundary = idx - 1
		delta = -delta
	}
	_ = a.coord.ResizeBoundary(path, boundary, delta)
}

// reorderActive moves the active session one slot within its group.
func (a *App) reorderActive(st layout.State, path string, step int) {
	g, ok := st.Group(st.ActiveGroupID)
	if !ok {
		return
	}
	from := -1
	for i, id := range g.SessionIDs {
		if id == g.ActiveSessionID {
			from = i
			break
		}
	}
	if from < 0 {
		return
	}
	if err := a.coord.Reorder(path, g.ID, from, from+step); err != nil {
		a.log.Debug("reorder rejected", "error", err)
	}
}

// keyBytes translates a key message into the byte sequence a terminal
// would send for it.
func keyBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeyEnter:
		return []byte{'\r'}
	case tea.KeySpace:
		return []byte{' '}
	case tea.KeyTab:
		return []byte{'\t'}
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyEsc:
		return []byte{0x1b}
	case tea.KeyUp:
		return []byte("\x1b[A")
	case tea.KeyDown:
		return []byte("\x1b[B")
	case tea.KeyRight:
		return []byte("\x1b[C")
	case tea.KeyLeft:
		return []byte("\x1b[D")
	}
	if msg.Type >= tea.KeyCtrlA && msg.Type <= tea.KeyCtrlZ {
		return []byte{byte(msg.Type-tea.KeyCtrlA) + 1}
	}
	return nil
}

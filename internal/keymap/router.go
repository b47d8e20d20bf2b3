package keymap

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/agentmux/internal/logging"
)

// Dispatch executes one resolved command. The raw key message is
// passed along for commands that need it, such as jump-to-session and
// terminal forwarding.
type Dispatch func(cmd Command, msg tea.KeyMsg)

// Router resolves keystrokes to commands for the focused workspace.
// Keystrokes arriving for any other workspace are ignored.
type Router struct {
	km       *Keymap
	dispatch Dispatch
	log      *logging.Logger

	mu      sync.Mutex
	mode    Mode
	focused string
}

// NewRouter builds a Router starting in normal mode. A nil keymap
// defaults to DefaultKeymap; a nil logger to a no-op logger.
func NewRouter(km *Keymap, dispatch Dispatch, log *logging.Logger) *Router {
	if km == nil {
		km = DefaultKeymap()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Router{
		km:       km,
		dispatch: dispatch,
		log:      log.WithComponent("keymap"),
		mode:     ModeNormal,
	}
}

// SetFocusedWorktree records which workspace receives keystrokes.
func (r *Router) SetFocusedWorktree(path string) {
	r.mu.Lock()
	r.focused = path
	r.mu.Unlock()
}

// FocusedWorktree returns the workspace currently receiving keystrokes.
func (r *Router) FocusedWorktree() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

// Mode returns the current input mode.
func (r *Router) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode switches the input mode.
func (r *Router) SetMode(mode Mode) {
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
}

// ApplyOverrides rebinds normal-mode commands from a command-to-keyspec
// map. Unknown specs fail without applying the remaining overrides.
func (r *Router) ApplyOverrides(overrides map[string]string) error {
	for cmd, spec := range overrides {
		if err := r.km.Override(ModeNormal, Command(cmd), spec); err != nil {
			return err
		}
	}
	return nil
}

// Route handles one keystroke for a workspace. It returns true when the
// keystroke matched a binding and was dispatched. Keystrokes for
// unfocused workspaces and unbound keys return false.
func (r *Router) Route(worktreePath string, msg tea.KeyMsg) bool {
	r.mu.Lock()
	if worktreePath != r.focused {
		r.mu.Unlock()
		return false
	}
	mode := r.mode
	cmd, ok := r.km.GetBinding(msg, mode)
	if !ok {
		r.mu.Unlock()
		return false
	}
	// Mode transitions happen here so dispatch sees a settled router.
	switch cmd {
	case CmdEnterInputMode:
		r.mode = ModeInput
	case CmdExitInputMode:
		r.mode = ModeNormal
	}
	r.mu.Unlock()

	r.log.Debug("key routed", "key", msg.String(), "command", string(cmd), "mode", string(mode))
	if r.dispatch != nil {
		r.dispatch(cmd, msg)
	}
	return true
}

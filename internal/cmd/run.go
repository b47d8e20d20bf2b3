package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentmux/internal/agent"
	"github.com/Iron-Ham/agentmux/internal/config"
	"github.com/Iron-Ham/agentmux/internal/coordinator"
	"github.com/Iron-Ham/agentmux/internal/event"
	"github.com/Iron-Ham/agentmux/internal/keymap"
	"github.com/Iron-Ham/agentmux/internal/session"
)

var (
	runAgent  string
	runResume string
	runName   string
)

var runCmd = &cobra.Command{
	Use:   "run [worktree]",
	Short: "Run the multiplexer in a worktree",
	Long: `Run the multiplexer with the given worktree focused. Defaults to the
current directory. Restores any persisted sessions and layout for the
worktree, or starts a fresh agent session if none exist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runAgent, "agent", "", "agent to start (claude, codex, gemini)")
	runCmd.Flags().StringVar(&runResume, "resume", "", "conversation id to resume")
	runCmd.Flags().StringVar(&runName, "name", "", "display name for the first session")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	worktree := ""
	if len(args) > 0 {
		worktree = args[0]
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		worktree = cwd
	}
	worktree = session.NormalizePath(worktree)

	app, err := newApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer app.Close()

	app.router.SetFocusedWorktree(worktree)

	// Start a session when the worktree has none, restored or otherwise.
	if app.coord.ActivityCount(worktree) == 0 {
		opts := coordinator.NewSessionOptions{
			WorkspaceRoot: worktree,
			WorktreePath:  worktree,
			DisplayName:   runName,
			ResumeID:      runResume,
		}
		if runAgent != "" {
			opts.Agent = agent.Ref{BaseID: runAgent, Environment: agent.EnvNative}
		}
		if _, err := app.coord.NewSessionWithAgent(context.Background(), opts); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
	}

	// Refresh the status view whenever application state changes. The
	// bus publishes synchronously, so the handler must never block; a
	// pending refresh already covers any burst of events.
	refresh := make(chan struct{}, 1)
	sub := app.bus.SubscribeAll(func(event.Event) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
	defer app.bus.Unsubscribe(sub)

	model := newStatusModel(app, worktree, refresh)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// refreshMsg asks the status model to re-render after a state change.
type refreshMsg struct{}

// statusModel is a thin status line over the core: it feeds keystrokes
// to the router and shows the session list for the focused worktree.
// Pane content rendering belongs to the embedding terminal layer.
type statusModel struct {
	app      *App
	worktree string
	refresh  chan struct{}
	width    int
	height   int
}

func newStatusModel(app *App, worktree string, refresh chan struct{}) statusModel {
	return statusModel{app: app, worktree: worktree, refresh: refresh}
}

func (m statusModel) Init() tea.Cmd {
	return m.waitForRefresh
}

// waitForRefresh blocks until application state changes.
func (m statusModel) waitForRefresh() tea.Msg {
	<-m.refresh
	return refreshMsg{}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && m.app.router.Mode() == keymap.ModeNormal {
			return m, tea.Quit
		}
		m.app.router.Route(m.app.router.FocusedWorktree(), msg)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanes()
		return m, nil

	case refreshMsg:
		return m, m.waitForRefresh
	}
	return m, nil
}

// resizePanes propagates the terminal size to each session, splitting
// columns across groups by flex percent.
func (m statusModel) resizePanes() {
	if m.width <= 0 || m.height <= 1 {
		return
	}
	path := m.app.router.FocusedWorktree()
	st := m.app.coord.ViewWorktree(path)
	for i, g := range st.Groups {
		cols := m.width
		if i < len(st.FlexPercents) {
			cols = int(float64(m.width) * st.FlexPercents[i] / 100)
		}
		if cols < 1 {
			cols = 1
		}
		for _, id := range g.SessionIDs {
			_ = m.app.coord.ResizeSession(id, uint16(cols), uint16(m.height-1))
		}
	}
}

func (m statusModel) View() string {
	path := m.app.router.FocusedWorktree()
	st := m.app.coord.ViewWorktree(path)

	var b strings.Builder
	fmt.Fprintf(&b, "agentmux  %s  [%s]\n\n", path, modeName(m.app.router.Mode()))

	if len(st.Groups) == 0 {
		b.WriteString("no sessions. ctrl+n starts one.\n")
		return b.String()
	}

	slot := 1
	for gi, g := range st.Groups {
		pct := 0.0
		if gi < len(st.FlexPercents) {
			pct = st.FlexPercents[gi]
		}
		marker := " "
		if g.ID == st.ActiveGroupID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s group %d (%.0f%%)\n", marker, gi+1, pct)
		for _, id := range g.SessionIDs {
			name := id
			status := ""
			if s, ok := m.app.reg.Get(id); ok {
				name = s.DerivedName()
				if !s.Initialized {
					status = " (starting)"
				}
			}
			active := " "
			if id == g.ActiveSessionID {
				active = ">"
			}
			fmt.Fprintf(&b, "  %s %d. %s%s\n", active, slot, name, status)
			slot++
		}
	}
	return b.String()
}

func modeName(mode keymap.Mode) string {
	if mode == keymap.ModeInput {
		return "input"
	}
	return "normal"
}

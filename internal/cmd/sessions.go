package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentmux/internal/config"
	"github.com/Iron-Ham/agentmux/internal/logging"
	"github.com/Iron-Ham/agentmux/internal/session"
	"github.com/Iron-Ham/agentmux/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persisted agentmux sessions",
	Long:  `Commands for listing and cleaning up persisted session state.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions",
	Long: `List persisted sessions grouped by worktree:
- Session display name and agent
- Group membership and order
- Which session was last active`,
	RunE: runSessionsList,
}

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove persisted session state",
	Long: `Remove the persisted state file. The next run starts with an empty
workspace. Running agent processes are not touched.`,
	RunE: runSessionsClean,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsCleanCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	snap, err := store.New(cfg.Paths.ResolveStateFile(), logging.Nop()).Load()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	if len(snap.Sessions) == 0 {
		fmt.Println("No persisted sessions.")
		return nil
	}

	byWorktree := make(map[string][]session.Session)
	for _, s := range snap.Sessions {
		byWorktree[s.WorktreePath] = append(byWorktree[s.WorktreePath], s)
	}

	worktrees := make([]string, 0, len(byWorktree))
	for path := range byWorktree {
		worktrees = append(worktrees, path)
	}
	sort.Strings(worktrees)

	for _, path := range worktrees {
		sessions := byWorktree[path]
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].DisplayOrder < sessions[j].DisplayOrder
		})

		fmt.Printf("%s (%d sessions)\n", path, len(sessions))
		lastActive := snap.LastActive[path]
		for _, s := range sessions {
			marker := " "
			if s.ID == lastActive {
				marker = "*"
			}
			fmt.Printf("  %s %-24s %s\n", marker, s.DerivedName(), s.Agent.String())
		}
		fmt.Println()
	}
	return nil
}

func runSessionsClean(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	path := cfg.Paths.ResolveStateFile()
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No persisted state to remove.")
			return nil
		}
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	fmt.Printf("Removed %s\n", path)
	return nil
}

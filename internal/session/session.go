package session

import (
	"path/filepath"

	"github.com/Iron-Ham/agentmux/internal/agent"
)

// Session is one logical run of an agent CLI bound to a workspace
// worktree. The ID is opaque and immutable for the session's lifetime.
type Session struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`

	// Agent identifies what runs in this session and where, as an
	// explicit tagged value.
	Agent agent.Ref `json:"agent"`

	// CommandOverride and ArgsOverride replace the agent defaults when set.
	CommandOverride string   `json:"command_override,omitempty"`
	ArgsOverride    []string `json:"args_override,omitempty"`

	// WorkspaceRoot is the root path of the project workspace.
	WorkspaceRoot string `json:"workspace_root"`
	// WorktreePath is the checkout the session runs in; together with
	// WorkspaceRoot it is the partition key for ordering and layout.
	WorktreePath string `json:"worktree_path"`

	// Initialized flips on the first observed output chunk.
	Initialized bool `json:"initialized"`
	// Activated flips on the first plain Enter from the user.
	Activated bool `json:"activated"`

	// DisplayOrder is unique within (WorkspaceRoot, WorktreePath).
	DisplayOrder int `json:"display_order"`

	// TerminalTitle is the last title reported by the terminal layer,
	// used as the notification body when present.
	TerminalTitle string `json:"terminal_title,omitempty"`
}

// Clone returns a copy of the session safe to hand to observers.
func (s *Session) Clone() Session {
	dup := *s
	if s.ArgsOverride != nil {
		dup.ArgsOverride = append([]string{}, s.ArgsOverride...)
	}
	return dup
}

// DerivedName returns the display name, falling back to the worktree
// base name. Used for notification bodies when no terminal title is known.
func (s *Session) DerivedName() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.WorktreePath != "" {
		return filepath.Base(s.WorktreePath)
	}
	return filepath.Base(s.WorkspaceRoot)
}

// NormalizePath cleans a worktree path so equal paths compare equal as
// registry and layout keys.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// Update carries a partial set of session fields to merge. Nil pointers
// leave the corresponding field untouched.
type Update struct {
	DisplayName   *string
	Initialized   *bool
	Activated     *bool
	DisplayOrder  *int
	TerminalTitle *string
}

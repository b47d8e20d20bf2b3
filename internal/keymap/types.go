// Package keymap maps configurable key chords to session and layout
// commands. Bindings are declarative and mode-aware: normal mode
// drives navigation and group operations, input mode forwards keys to
// the focused session's terminal.
package keymap

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Mode is the current input mode.
type Mode string

const (
	// ModeNormal handles navigation and group commands.
	ModeNormal Mode = "normal"
	// ModeInput forwards keystrokes to the active session.
	ModeInput Mode = "input"
)

// Command is a named action a key binding triggers.
type Command string

const (
	// Session lifecycle
	CmdNewSession        Command = "new_session"
	CmdCloseSession      Command = "close_session"
	CmdCloseAllWorktree  Command = "close_all_worktree"
	CmdRenameSession     Command = "rename_session"

	// Navigation
	CmdNextSession    Command = "next_session"
	CmdPrevSession    Command = "prev_session"
	CmdJumpToSession  Command = "jump_to_session" // 1-9 keys
	CmdEnterInputMode Command = "enter_input_mode"

	// Group operations
	CmdSplitGroup   Command = "split_group"
	CmdMergeGroup   Command = "merge_group"
	CmdGrowPane     Command = "grow_pane"
	CmdShrinkPane   Command = "shrink_pane"
	CmdReorderLeft  Command = "reorder_left"
	CmdReorderRight Command = "reorder_right"

	// Input mode
	CmdExitInputMode    Command = "exit_input_mode"
	CmdForwardToSession Command = "forward_to_session"
)

// knownCommands indexes every bindable command for override validation.
var knownCommands = map[Command]bool{
	CmdNewSession:       true,
	CmdCloseSession:     true,
	CmdCloseAllWorktree: true,
	CmdRenameSession:    true,
	CmdNextSession:      true,
	CmdPrevSession:      true,
	CmdJumpToSession:    true,
	CmdEnterInputMode:   true,
	CmdSplitGroup:       true,
	CmdMergeGroup:       true,
	CmdGrowPane:         true,
	CmdShrinkPane:       true,
	CmdReorderLeft:      true,
	CmdReorderRight:     true,
	CmdExitInputMode:    true,
	CmdForwardToSession: true,
}

// ValidCommand reports whether name is a bindable command.
func ValidCommand(name string) bool {
	return knownCommands[Command(name)]
}

// Modifier represents keyboard modifiers.
type Modifier uint8

const (
	ModNone Modifier = 0
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

// String returns a human-readable representation of modifiers.
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}
	var s string
	if m&ModCtrl != 0 {
		s += "ctrl+"
	}
	if m&ModAlt != 0 {
		s += "alt+"
	}
	if m&ModShift != 0 {
		s += "shift+"
	}
	return s
}

// KeyBinding binds one key chord to a command.
type KeyBinding struct {
	// KeyType is the primary key. Rune-based keys use tea.KeyRunes
	// with the Rune field set.
	KeyType tea.KeyType

	// Rune is the character for rune-based keys.
	Rune rune

	// Modifiers that must be held.
	Modifiers Modifier

	// Command to execute on match.
	Command Command

	// Description for help display.
	Description string
}

// Matches checks whether a tea.KeyMsg triggers this binding.
func (kb KeyBinding) Matches(msg tea.KeyMsg) bool {
	wantAlt := kb.Modifiers&ModAlt != 0
	if msg.Alt != wantAlt {
		return false
	}
	if kb.KeyType != tea.KeyRunes {
		return msg.Type == kb.KeyType
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return false
	}
	// Rune 0 is a catch-all for any rune, used by forwarding bindings.
	if kb.Rune == 0 {
		return true
	}
	return msg.Runes[0] == kb.Rune
}

// String returns a human-readable representation of the binding.
func (kb KeyBinding) String() string {
	prefix := kb.Modifiers.String()
	if kb.KeyType != tea.KeyRunes {
		return prefix + kb.KeyType.String()
	}
	if kb.Rune == ' ' {
		return prefix + "space"
	}
	return prefix + string(kb.Rune)
}

// ModeBindings holds the bindings of one mode.
type ModeBindings struct {
	Mode     Mode
	Bindings []KeyBinding
}

// GetBinding looks up the command for a key in this mode.
func (mb *ModeBindings) GetBinding(msg tea.KeyMsg) (Command, bool) {
	for _, binding := range mb.Bindings {
		if binding.Matches(msg) {
			return binding.Command, true
		}
	}
	return "", false
}

// Keymap contains all bindings organized by mode.
type Keymap struct {
	Name  string
	Modes map[Mode]*ModeBindings
}

// GetBinding looks up the command for a key in a specific mode.
func (km *Keymap) GetBinding(msg tea.KeyMsg, mode Mode) (Command, bool) {
	mb, ok := km.Modes[mode]
	if !ok {
		return "", false
	}
	return mb.GetBinding(msg)
}

// BindingsForCommand returns all bindings that trigger a command in a
// mode, for help display.
func (km *Keymap) BindingsForCommand(cmd Command, mode Mode) []KeyBinding {
	mb, ok := km.Modes[mode]
	if !ok {
		return nil
	}
	var result []KeyBinding
	for _, binding := range mb.Bindings {
		if binding.Command == cmd {
			result = append(result, binding)
		}
	}
	return result
}

// Override rebinds a command in a mode to the given key spec, replacing
// that command's existing bindings.
func (km *Keymap) Override(mode Mode, cmd Command, spec string) error {
	if !knownCommands[cmd] {
		return fmt.Errorf("unknown command %q", cmd)
	}
	keyType, r, mods, err := ParseKeySpec(spec)
	if err != nil {
		return err
	}
	mb, ok := km.Modes[mode]
	if !ok {
		mb = &ModeBindings{Mode: mode}
		km.Modes[mode] = mb
	}
	kept := mb.Bindings[:0]
	var desc string
	for _, binding := range mb.Bindings {
		if binding.Command == cmd {
			desc = binding.Description
			continue
		}
		kept = append(kept, binding)
	}
	mb.Bindings = append(kept, KeyBinding{
		KeyType:     keyType,
		Rune:        r,
		Modifiers:   mods,
		Command:     cmd,
		Description: desc,
	})
	return nil
}

// ParseKeySpec parses a key specification like "ctrl+n", "alt+left",
// "]" or "enter" into its binding fields.
func ParseKeySpec(spec string) (keyType tea.KeyType, r rune, mods Modifier, err error) {
	remaining := spec
	for {
		switch {
		case len(remaining) > 5 && remaining[:5] == "ctrl+":
			mods |= ModCtrl
			remaining = remaining[5:]
		case len(remaining) > 4 && remaining[:4] == "alt+":
			mods |= ModAlt
			remaining = remaining[4:]
		case len(remaining) > 6 && remaining[:6] == "shift+":
			mods |= ModShift
			remaining = remaining[6:]
		default:
			goto parseKey
		}
	}

parseKey:
	switch remaining {
	case "enter":
		return tea.KeyEnter, 0, mods, nil
	case "tab":
		if mods&ModShift != 0 {
			return tea.KeyShiftTab, 0, mods &^ ModShift, nil
		}
		return tea.KeyTab, 0, mods, nil
	case "esc", "escape":
		return tea.KeyEsc, 0, mods, nil
	case "space":
		return tea.KeySpace, 0, mods, nil
	case "backspace":
		return tea.KeyBackspace, 0, mods, nil
	case "up":
		return tea.KeyUp, 0, mods, nil
	case "down":
		return tea.KeyDown, 0, mods, nil
	case "left":
		return tea.KeyLeft, 0, mods, nil
	case "right":
		return tea.KeyRight, 0, mods, nil
	}

	if mods&ModCtrl != 0 && len(remaining) == 1 {
		ch := remaining[0]
		if ch >= 'a' && ch <= 'z' {
			// Ctrl chords have dedicated key types; ctrl leaves the
			// modifier set.
			ctrlKey := tea.KeyCtrlA + tea.KeyType(ch-'a')
			return ctrlKey, 0, mods &^ ModCtrl, nil
		}
	}

	if len(remaining) == 1 {
		return tea.KeyRunes, rune(remaining[0]), mods, nil
	}
	return 0, 0, 0, fmt.Errorf("unrecognized key spec: %s", spec)
}

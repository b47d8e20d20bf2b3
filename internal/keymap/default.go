package keymap

import tea "github.com/charmbracelet/bubbletea"

// DefaultKeymap returns the stock key bindings.
func DefaultKeymap() *Keymap {
	return &Keymap{
		Name: "default",
		Modes: map[Mode]*ModeBindings{
			ModeNormal: defaultNormalBindings(),
			ModeInput:  defaultInputBindings(),
		},
	}
}

func defaultNormalBindings() *ModeBindings {
	bindings := []KeyBinding{
		// Session navigation
		{KeyType: tea.KeyTab, Command: CmdNextSession, Description: "Next session"},
		{KeyType: tea.KeyRunes, Rune: 'l', Command: CmdNextSession, Description: "Next session"},
		{KeyType: tea.KeyShiftTab, Command: CmdPrevSession, Description: "Previous session"},
		{KeyType: tea.KeyRunes, Rune: 'h', Command: CmdPrevSession, Description: "Previous session"},
		{KeyType: tea.KeyEnter, Command: CmdEnterInputMode, Description: "Enter input mode"},
		{KeyType: tea.KeyRunes, Rune: 'i', Command: CmdEnterInputMode, Description: "Enter input mode"},

		// Session lifecycle
		{KeyType: tea.KeyCtrlN, Command: CmdNewSession, Description: "New session"},
		{KeyType: tea.KeyCtrlW, Command: CmdCloseSession, Description: "Close session"},
		{KeyType: tea.KeyCtrlQ, Command: CmdCloseAllWorktree, Description: "Close all sessions in worktree"},
		{KeyType: tea.KeyRunes, Rune: 'r', Command: CmdRenameSession, Description: "Rename session"},

		// Group operations
		{KeyType: tea.KeyRunes, Rune: '\\', Command: CmdSplitGroup, Description: "Split active session into new pane"},
		{KeyType: tea.KeyRunes, Rune: '-', Command: CmdMergeGroup, Description: "Merge active session into left pane"},
		{KeyType: tea.KeyRunes, Rune: '>', Command: CmdGrowPane, Description: "Grow pane"},
		{KeyType: tea.KeyRunes, Rune: '<', Command: CmdShrinkPane, Description: "Shrink pane"},
		{KeyType: tea.KeyRunes, Rune: '[', Modifiers: ModAlt, Command: CmdReorderLeft, Description: "Move session left"},
		{KeyType: tea.KeyRunes, Rune: ']', Modifiers: ModAlt, Command: CmdReorderRight, Description: "Move session right"},
	}
	for r := '1'; r <= '9'; r++ {
		bindings = append(bindings, KeyBinding{
			KeyType: tea.KeyRunes, Rune: r,
			Command:     CmdJumpToSession,
			Description: "Jump to session " + string(r),
		})
	}
	return &ModeBindings{Mode: ModeNormal, Bindings: bindings}
}

func defaultInputBindings() *ModeBindings {
	return &ModeBindings{
		Mode: ModeInput,
		Bindings: []KeyBinding{
			{KeyType: tea.KeyEsc, Command: CmdExitInputMode, Description: "Leave input mode"},
			// Catch-all: everything else goes to the session terminal.
			{KeyType: tea.KeyRunes, Rune: 0, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyEnter, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyBackspace, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyUp, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyDown, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyLeft, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyRight, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeyTab, Command: CmdForwardToSession, Description: "Forward to session"},
			{KeyType: tea.KeySpace, Command: CmdForwardToSession, Description: "Forward to session"},
		},
	}
}

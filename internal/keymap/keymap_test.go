package keymap

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func runeMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestDefaultKeymapLookups(t *testing.T) {
	km := DefaultKeymap()

	tests := []struct {
		name string
		msg  tea.KeyMsg
		mode Mode
		want Command
	}{
		{"tab advances", tea.KeyMsg{Type: tea.KeyTab}, ModeNormal, CmdNextSession},
		{"shift-tab goes back", tea.KeyMsg{Type: tea.KeyShiftTab}, ModeNormal, CmdPrevSession},
		{"ctrl+n opens session", tea.KeyMsg{Type: tea.KeyCtrlN}, ModeNormal, CmdNewSession},
		{"ctrl+w closes session", tea.KeyMsg{Type: tea.KeyCtrlW}, ModeNormal, CmdCloseSession},
		{"backslash splits", runeMsg('\\'), ModeNormal, CmdSplitGroup},
		{"dash merges", runeMsg('-'), ModeNormal, CmdMergeGroup},
		{"digit jumps", runeMsg('3'), ModeNormal, CmdJumpToSession},
		{"enter enters input mode", tea.KeyMsg{Type: tea.KeyEnter}, ModeNormal, CmdEnterInputMode},
		{"esc leaves input mode", tea.KeyMsg{Type: tea.KeyEsc}, ModeInput, CmdExitInputMode},
		{"runes forward in input mode", runeMsg('x'), ModeInput, CmdForwardToSession},
		{"enter forwards in input mode", tea.KeyMsg{Type: tea.KeyEnter}, ModeInput, CmdForwardToSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := km.GetBinding(tt.msg, tt.mode)
			if !ok {
				t.Fatalf("no binding for %v in %s mode", tt.msg, tt.mode)
			}
			if got != tt.want {
				t.Errorf("command = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyBindingAltModifier(t *testing.T) {
	kb := KeyBinding{KeyType: tea.KeyRunes, Rune: ']', Modifiers: ModAlt, Command: CmdReorderRight}
	if kb.Matches(runeMsg(']')) {
		t.Error("matched without alt held")
	}
	withAlt := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}, Alt: true}
	if !kb.Matches(withAlt) {
		t.Error("did not match with alt held")
	}
}

func TestParseKeySpec(t *testing.T) {
	tests := []struct {
		spec     string
		wantType tea.KeyType
		wantRune rune
		wantMods Modifier
		wantErr  bool
	}{
		{"enter", tea.KeyEnter, 0, ModNone, false},
		{"esc", tea.KeyEsc, 0, ModNone, false},
		{"j", tea.KeyRunes, 'j', ModNone, false},
		{"ctrl+n", tea.KeyCtrlN, 0, ModNone, false},
		{"alt+left", tea.KeyLeft, 0, ModAlt, false},
		{"alt+]", tea.KeyRunes, ']', ModAlt, false},
		{"shift+tab", tea.KeyShiftTab, 0, ModNone, false},
		{"bogus-key", 0, 0, ModNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			keyType, r, mods, err := ParseKeySpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("err = nil, want parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if keyType != tt.wantType || r != tt.wantRune || mods != tt.wantMods {
				t.Errorf("parsed (%v, %q, %v), want (%v, %q, %v)",
					keyType, r, mods, tt.wantType, tt.wantRune, tt.wantMods)
			}
		})
	}
}

func TestKeymapOverride(t *testing.T) {
	km := DefaultKeymap()
	if err := km.Override(ModeNormal, CmdSplitGroup, "ctrl+s"); err != nil {
		t.Fatalf("override: %v", err)
	}
	if cmd, ok := km.GetBinding(tea.KeyMsg{Type: tea.KeyCtrlS}, ModeNormal); !ok || cmd != CmdSplitGroup {
		t.Errorf("ctrl+s = %q, %v; want split_group", cmd, ok)
	}
	if _, ok := km.GetBinding(runeMsg('\\'), ModeNormal); ok {
		t.Error("old split binding still active after override")
	}
}

func TestRouterFocusGating(t *testing.T) {
	var got []Command
	r := NewRouter(nil, func(cmd Command, _ tea.KeyMsg) { got = append(got, cmd) }, nil)
	r.SetFocusedWorktree("/repos/app")

	if r.Route("/repos/other", tea.KeyMsg{Type: tea.KeyTab}) {
		t.Error("routed keystroke for unfocused workspace")
	}
	if !r.Route("/repos/app", tea.KeyMsg{Type: tea.KeyTab}) {
		t.Error("dropped keystroke for focused workspace")
	}
	if len(got) != 1 || got[0] != CmdNextSession {
		t.Errorf("dispatched = %v, want [next_session]", got)
	}
}

func TestRouterModeTransitions(t *testing.T) {
	var got []Command
	r := NewRouter(nil, func(cmd Command, _ tea.KeyMsg) { got = append(got, cmd) }, nil)
	r.SetFocusedWorktree("/repos/app")

	r.Route("/repos/app", tea.KeyMsg{Type: tea.KeyEnter})
	if r.Mode() != ModeInput {
		t.Fatalf("mode = %s, want input", r.Mode())
	}
	// Keys now forward rather than navigate.
	r.Route("/repos/app", runeMsg('l'))
	r.Route("/repos/app", tea.KeyMsg{Type: tea.KeyEsc})
	if r.Mode() != ModeNormal {
		t.Fatalf("mode = %s, want normal after esc", r.Mode())
	}

	want := []Command{CmdEnterInputMode, CmdForwardToSession, CmdExitInputMode}
	if len(got) != len(want) {
		t.Fatalf("dispatched = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatched[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRouterUnboundKey(t *testing.T) {
	r := NewRouter(nil, nil, nil)
	r.SetFocusedWorktree("/repos/app")
	if r.Route("/repos/app", tea.KeyMsg{Type: tea.KeyF1}) {
		t.Error("routed unbound key")
	}
}

func TestRouterApplyOverrides(t *testing.T) {
	var got []Command
	r := NewRouter(nil, func(cmd Command, _ tea.KeyMsg) { got = append(got, cmd) }, nil)
	r.SetFocusedWorktree("/repos/app")

	if err := r.ApplyOverrides(map[string]string{"merge_group": "ctrl+g"}); err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if !r.Route("/repos/app", tea.KeyMsg{Type: tea.KeyCtrlG}) {
		t.Fatal("override binding not routed")
	}
	if len(got) != 1 || got[0] != CmdMergeGroup {
		t.Errorf("dispatched = %v, want [merge_group]", got)
	}

	if err := r.ApplyOverrides(map[string]string{"split_group": "not-a-key"}); err == nil {
		t.Error("bad override spec accepted")
	}

	if err := r.ApplyOverrides(map[string]string{"teleport": "ctrl+t"}); err == nil {
		t.Error("unknown override command accepted")
	}
}

func TestKeymapOverrideRejectsUnknownCommand(t *testing.T) {
	km := DefaultKeymap()
	if err := km.Override(ModeNormal, Command("teleport"), "ctrl+t"); err == nil {
		t.Fatal("expected an error for an unbindable command")
	}
	if _, ok := km.GetBinding(tea.KeyMsg{Type: tea.KeyCtrlT}, ModeNormal); ok {
		t.Error("rejected override still produced a binding")
	}
	if !ValidCommand("split_group") || ValidCommand("teleport") {
		t.Error("ValidCommand disagrees with the command set")
	}
}

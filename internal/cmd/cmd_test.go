package cmd

import (
	"bytes"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/agentmux/internal/event"
	"github.com/Iron-Ham/agentmux/internal/layout"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	if rootCmd.Use != "agentmux" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "agentmux")
	}

	expected := []string{"run", "config", "sessions"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestKeyBytes(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []byte
	}{
		{"runes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")}, []byte("hi")},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []byte{'\r'}},
		{"space", tea.KeyMsg{Type: tea.KeySpace}, []byte{' '}},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, []byte{'\t'}},
		{"backspace", tea.KeyMsg{Type: tea.KeyBackspace}, []byte{0x7f}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, []byte{0x1b}},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, []byte("\x1b[A")},
		{"ctrl+a", tea.KeyMsg{Type: tea.KeyCtrlA}, []byte{0x01}},
		{"ctrl+z", tea.KeyMsg{Type: tea.KeyCtrlZ}, []byte{0x1a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyBytes(tt.msg)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("keyBytes(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestPersistableFiltersEphemeralEvents(t *testing.T) {
	ephemeral := []event.Event{
		event.NewNotificationRequestedEvent("s1", "Claude Code", "api work"),
		event.NewSessionInitializedEvent("s1"),
	}
	for _, ev := range ephemeral {
		if persistable(ev.EventType()) {
			t.Errorf("%s should not trigger a save", ev.EventType())
		}
	}

	durable := []event.Event{
		event.NewSessionAddedEvent("s1", "/repos/app", "claude"),
		event.NewSessionRemovedEvent("s1", "/repos/app"),
		event.NewGroupStateChangedEvent("/repos/app", nil),
		event.NewActivityCountChangedEvent("/repos/app", 0),
	}
	for _, ev := range durable {
		if !persistable(ev.EventType()) {
			t.Errorf("%s should trigger a save", ev.EventType())
		}
	}
}

func TestOrderedSessionsFlattensGroups(t *testing.T) {
	st := layout.State{
		Groups: []layout.Group{
			{ID: "g1", SessionIDs: []string{"a", "b"}, ActiveSessionID: "a"},
			{ID: "g2", SessionIDs: []string{"c"}, ActiveSessionID: "c"},
		},
		ActiveGroupID: "g1",
		FlexPercents:  []float64{50, 50},
	}

	got := orderedSessions(st)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("orderedSessions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

package notify

import (
	"sync"
	"testing"

	"github.com/Iron-Ham/agentmux/internal/event"
)

type fakeHost struct {
	mu    sync.Mutex
	shown []Notification
}

func (h *fakeHost) Show(n Notification) {
	h.mu.Lock()
	h.shown = append(h.shown, n)
	h.mu.Unlock()
}

func (h *fakeHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.shown)
}

func TestDispatcherDedupesPerWorkCycle(t *testing.T) {
	host := &fakeHost{}
	d := NewDispatcher(host, Callbacks{}, nil)

	d.Show("claude", "fix tests", "s1")
	d.Show("claude", "fix tests", "s1")
	if host.count() != 1 {
		t.Fatalf("shown = %d, want 1", host.count())
	}
	if !d.InFlight("s1") {
		t.Error("InFlight(s1) = false, want true")
	}

	// A new work cycle clears the slot.
	d.ClearInFlight("s1")
	d.Show("claude", "fix tests", "s1")
	if host.count() != 2 {
		t.Errorf("shown after clear = %d, want 2", host.count())
	}
}

func TestDispatcherIndependentSessions(t *testing.T) {
	host := &fakeHost{}
	d := NewDispatcher(host, Callbacks{}, nil)

	d.Show("claude", "a", "s1")
	d.Show("codex", "b", "s2")
	if host.count() != 2 {
		t.Errorf("shown = %d, want 2", host.count())
	}
}

func TestDispatcherClickSelectsSession(t *testing.T) {
	var selected []string
	var switched []string
	d := NewDispatcher(&fakeHost{}, Callbacks{
		SelectSession:   func(id string) { selected = append(selected, id) },
		SwitchWorkspace: func(wt string) { switched = append(switched, wt) },
		WorktreeFor: func(id string) (string, bool) {
			return "/repos/app", true
		},
		FocusedWorktree: func() string { return "/repos/app" },
	}, nil)

	d.Show("claude", "done", "s1")
	d.HandleClick("s1")
	if len(selected) != 1 || selected[0] != "s1" {
		t.Errorf("selected = %v, want [s1]", selected)
	}
	if len(switched) != 0 {
		t.Errorf("switched = %v, want none for focused worktree", switched)
	}
	if d.InFlight("s1") {
		t.Error("click did not clear in-flight slot")
	}
}

func TestDispatcherClickSwitchesWorkspace(t *testing.T) {
	var order []string
	d := NewDispatcher(&fakeHost{}, Callbacks{
		SelectSession:   func(id string) { order = append(order, "select:"+id) },
		SwitchWorkspace: func(wt string) { order = append(order, "switch:"+wt) },
		WorktreeFor: func(id string) (string, bool) {
			return "/repos/other", true
		},
		FocusedWorktree: func() string { return "/repos/app" },
	}, nil)

	d.HandleClick("s1")
	if len(order) != 2 || order[0] != "switch:/repos/other" || order[1] != "select:s1" {
		t.Errorf("order = %v, want workspace switch before selection", order)
	}
}

func TestDispatcherAgentStop(t *testing.T) {
	var stopped []string
	d := NewDispatcher(&fakeHost{}, Callbacks{
		AgentStopped: func(id string) { stopped = append(stopped, id) },
	}, nil)

	d.HandleAgentStop("s1")
	if len(stopped) != 1 || stopped[0] != "s1" {
		t.Errorf("stopped = %v, want [s1]", stopped)
	}
}

func TestDispatcherBindBus(t *testing.T) {
	host := &fakeHost{}
	d := NewDispatcher(host, Callbacks{}, nil)
	bus := event.NewBus()
	d.BindBus(bus)

	bus.Publish(event.NewNotificationRequestedEvent("s1", "claude", "refactor done"))
	if host.count() != 1 {
		t.Fatalf("shown = %d, want 1", host.count())
	}
	if host.shown[0].Title != "claude" || host.shown[0].SessionID != "s1" {
		t.Errorf("notification = %+v", host.shown[0])
	}
}

func TestDispatcherSessionRemovalClearsInFlight(t *testing.T) {
	host := &fakeHost{}
	d := NewDispatcher(host, Callbacks{}, nil)
	bus := event.NewBus()
	d.BindBus(bus)

	bus.Publish(event.NewNotificationRequestedEvent("s1", "claude", "refactor done"))
	if !d.InFlight("s1") {
		t.Fatal("expected an in-flight notification for s1")
	}

	bus.Publish(event.NewSessionRemovedEvent("s1", "/repos/app"))
	if d.InFlight("s1") {
		t.Error("closing the session should release its in-flight slot")
	}

	// A fresh session reusing the id notifies again.
	bus.Publish(event.NewNotificationRequestedEvent("s1", "claude", "tests passing"))
	if host.count() != 2 {
		t.Errorf("shown = %d, want 2", host.count())
	}
}

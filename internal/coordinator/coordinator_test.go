package coordinator

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/agentmux/internal/agent"
	"github.com/Iron-Ham/agentmux/internal/detect"
	"github.com/Iron-Ham/agentmux/internal/event"
	"github.com/Iron-Ham/agentmux/internal/layout"
	"github.com/Iron-Ham/agentmux/internal/proc"
	"github.com/Iron-Ham/agentmux/internal/session"
)

// fakeHandle is a controllable process handle for tests.
type fakeHandle struct {
	mu      sync.Mutex
	written [][]byte
	started time.Time
	done    chan struct{}
	closed  bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{started: time.Now(), done: make(chan struct{})}
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.written = append(h.written, append([]byte{}, p...))
	return len(p), nil
}

func (h *fakeHandle) Resize(cols, rows uint16) error { return nil }
func (h *fakeHandle) Signal(sig os.Signal) error     { return nil }
func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	return nil
}
func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) StartedAt() time.Time  { return h.started }

// fakeHost records spawns and exposes the callbacks for the test to
// drive output and exit.
type fakeHost struct {
	mu     sync.Mutex
	spawns []*spawnRecord
}

type spawnRecord struct {
	spec   proc.Spec
	onData func([]byte)
	onExit func(proc.ExitInfo)
	handle *fakeHandle
}

func (f *fakeHost) Spawn(_ context.Context, spec proc.Spec, onData func([]byte), onExit func(proc.ExitInfo)) (proc.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &spawnRecord{spec: spec, onData: onData, onExit: onExit, handle: newFakeHandle()}
	f.spawns = append(f.spawns, rec)
	return rec.handle, nil
}

func (f *fakeHost) last() *spawnRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.spawns) == 0 {
		return nil
	}
	return f.spawns[len(f.spawns)-1]
}

func (f *fakeHost) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawns)
}

type capturedEvents struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *capturedEvents) capture(ev event.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *capturedEvents) ofType(eventType string) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, ev := range c.events {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	coord *Coordinator
	reg   *session.Registry
	bus   *event.Bus
	host  *fakeHost
	caps  *capturedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := event.NewBus()
	reg := session.NewRegistry(bus)
	caps := &capturedEvents{}
	bus.SubscribeAll(caps.capture)
	host := &fakeHost{}
	n := 0
	engine := layout.NewEngine(layout.WithGroupIDFunc(func() string {
		n++
		return string(rune('a'+n-1)) + "-group"
	}))
	coord := New(Options{
		Registry:   reg,
		Engine:     engine,
		Bus:        bus,
		Host:       host,
		Resolver:   proc.StaticShellResolver{Resolved: proc.ResolvedShell{Shell: "/bin/sh", ExecArgs: []string{"-c"}}},
		ExitPolicy: proc.DefaultExitPolicy(),
	})
	return &fixture{coord: coord, reg: reg, bus: bus, host: host, caps: caps}
}

const wt = "/repos/app"

func TestNewSessionIntoEmptyWorkspace(t *testing.T) {
	f := newFixture(t)
	s, err := f.coord.NewSession(context.Background(), "/repos", wt)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	st := f.coord.ViewWorktree(wt)
	if len(st.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(st.Groups))
	}
	if len(st.FlexPercents) != 1 || st.FlexPercents[0] != 100.0 {
		t.Errorf("flex = %v, want [100]", st.FlexPercents)
	}
	if st.ActiveSession() != s.ID {
		t.Errorf("active session = %q, want %q", st.ActiveSession(), s.ID)
	}
	if got, _ := f.reg.ActiveForWorktree(wt); got != s.ID {
		t.Errorf("worktree fallback selection = %q, want %q", got, s.ID)
	}
	if f.host.count() != 1 {
		t.Errorf("spawns = %d, want 1", f.host.count())
	}
	if got := f.caps.ofType("worktree.activity_changed"); len(got) != 1 {
		t.Errorf("activity events = %d, want 1", len(got))
	}
}

func TestNewSessionSpawnCommandLine(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.NewSessionWithAgent(context.Background(), NewSessionOptions{
		WorkspaceRoot: "/repos",
		WorktreePath:  wt,
		Agent:         agent.Ref{BaseID: "claude", Environment: agent.EnvNative},
		ResumeID:      "conv-42",
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	rec := f.host.last()
	if rec == nil {
		t.Fatal("nothing spawned")
	}
	if rec.spec.Command != "/bin/sh" {
		t.Errorf("command = %q, want shell", rec.spec.Command)
	}
	if rec.spec.Dir != wt {
		t.Errorf("dir = %q, want worktree", rec.spec.Dir)
	}
	last := rec.spec.Args[len(rec.spec.Args)-1]
	if last == "" || !containsAll(last, "claude", "conv-42") {
		t.Errorf("command line = %q, want agent command with resume id", last)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		found := false
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestCloseSessionSnapshotThenRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.coord.NewSession(ctx, "/repos", wt)
	b, _ := f.coord.NewSession(ctx, "/repos", wt)

	if err := f.coord.CloseSession(a.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := f.reg.Get(a.ID); ok {
		t.Error("closed session still in registry")
	}
	st := f.coord.ViewWorktree(wt)
	if _, ok := st.GroupForSession(a.ID); ok {
		t.Error("closed session still in layout")
	}
	if st.ActiveSession() != b.ID {
		t.Errorf("active = %q, want remaining session", st.ActiveSession())
	}

	// Racing a second close for the same id is a no-op.
	if err := f.coord.CloseSession(a.ID); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestCloseAllForWorktree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Three sessions across two groups.
	a, _ := f.coord.NewSession(ctx, "/repos", wt)
	f.coord.NewSession(ctx, "/repos", wt)
	f.coord.NewSession(ctx, "/repos", wt)
	st := f.coord.ViewWorktree(wt)
	if err := f.coord.SplitGroup(ctx, wt, st.Groups[0].ID); err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := len(f.coord.ViewWorktree(wt).Groups); got != 2 {
		t.Fatalf("groups = %d, want 2", got)
	}
	other, _ := f.coord.NewSession(ctx, "/repos", "/repos/other")

	before := len(f.caps.ofType("worktree.activity_changed"))
	f.coord.CloseAllForWorktree(wt)

	if got := f.coord.ActivityCount(wt); got != 0 {
		t.Errorf("activity count = %d, want 0", got)
	}
	if _, ok := f.reg.Get(a.ID); ok {
		t.Error("worktree session survived bulk close")
	}
	if _, ok := f.reg.Get(other.ID); !ok {
		t.Error("bulk close leaked into another worktree")
	}
	st = f.coord.ViewWorktree(wt)
	if !st.Empty() {
		t.Errorf("layout not deleted: %+v", st)
	}

	// Exactly one aggregate activity event for the bulk close.
	after := f.caps.ofType("worktree.activity_changed")
	var bulk int
	for _, ev := range after[before:] {
		if ac, ok := ev.(event.ActivityCountChangedEvent); ok && ac.WorktreePath == wt {
			bulk++
			if ac.Count != 0 {
				t.Errorf("bulk activity count = %d, want 0", ac.Count)
			}
		}
	}
	if bulk != 1 {
		t.Errorf("bulk activity events = %d, want exactly 1", bulk)
	}
}

func TestSplitGroupSingleSessionCreatesNew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.coord.NewSession(ctx, "/repos", wt)

	if err := f.coord.SplitGroup(ctx, wt, ""); err != nil {
		t.Fatalf("split: %v", err)
	}
	st := f.coord.ViewWorktree(wt)
	if len(st.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(st.Groups))
	}
	if st.Groups[0].SessionIDs[0] != a.ID {
		t.Errorf("source group lost original session")
	}
	if f.reg.Len() != 2 {
		t.Errorf("registry len = %d, want 2", f.reg.Len())
	}
	if f.host.count() != 2 {
		t.Errorf("spawns = %d, want 2 (new pane got a fresh process)", f.host.count())
	}
}

func TestMergeGroupFollowsFocus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coord.NewSession(ctx, "/repos", wt)
	b, _ := f.coord.NewSession(ctx, "/repos", wt)
	st := f.coord.ViewWorktree(wt)
	if err := f.coord.SplitGroup(ctx, wt, st.Groups[0].ID); err != nil {
		t.Fatalf("split: %v", err)
	}

	if err := f.coord.MergeGroup(wt, ""); err != nil {
		t.Fatalf("merge: %v", err)
	}
	st = f.coord.ViewWorktree(wt)
	if len(st.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(st.Groups))
	}
	if st.ActiveSession() != b.ID {
		t.Errorf("active = %q, want merged session %q", st.ActiveSession(), b.ID)
	}
	if got, _ := f.reg.ActiveForWorktree(wt); got != b.ID {
		t.Errorf("fallback selection = %q, want %q", got, b.ID)
	}
}

func TestResizeBoundaryRejectionIsSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coord.NewSession(ctx, "/repos", wt)
	f.coord.NewSession(ctx, "/repos", wt)
	st := f.coord.ViewWorktree(wt)
	if err := f.coord.SplitGroup(ctx, wt, st.Groups[0].ID); err != nil {
		t.Fatalf("split: %v", err)
	}

	if err := f.coord.ResizeBoundary(wt, 0, 10); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := f.coord.ResizeBoundary(wt, 0, 90); err != nil {
		t.Errorf("rejected resize surfaced error: %v", err)
	}
	st = f.coord.ViewWorktree(wt)
	if st.FlexPercents[0] != 60.0 {
		t.Errorf("flex = %v, want rejected delta to leave [60 40]", st.FlexPercents)
	}
}

func TestSelectSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.coord.NewSession(ctx, "/repos", wt)
	f.coord.NewSession(ctx, "/repos", wt)

	if err := f.coord.SelectSession(a.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := f.coord.ViewWorktree(wt).ActiveSession(); got != a.ID {
		t.Errorf("active = %q, want %q", got, a.ID)
	}
	if err := f.coord.SelectSession("ghost"); err == nil {
		t.Error("selecting unknown session succeeded")
	}
}

func TestExitPolicyFastFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	s, _ := f.coord.NewSession(context.Background(), "/repos", wt)
	rec := f.host.last()

	rec.onData([]byte("some startup noise"))
	rec.onExit(proc.ExitInfo{Code: 1, Runtime: 2 * time.Second})

	if _, ok := f.reg.Get(s.ID); !ok {
		t.Error("fast failing session was closed, want kept for inspection")
	}
}

func TestExitPolicyNotFoundMarkerCloses(t *testing.T) {
	f := newFixture(t)
	s, _ := f.coord.NewSession(context.Background(), "/repos", wt)
	rec := f.host.last()

	rec.onData([]byte("error: session not found"))
	rec.onExit(proc.ExitInfo{Code: 1, Runtime: 2 * time.Second})

	if _, ok := f.reg.Get(s.ID); ok {
		t.Error("session with not-found marker survived")
	}
	if !f.coord.ViewWorktree(wt).Empty() {
		t.Error("layout still holds the closed session's group")
	}
}

func TestExitPolicyLongRuntimeCloses(t *testing.T) {
	f := newFixture(t)
	s, _ := f.coord.NewSession(context.Background(), "/repos", wt)
	rec := f.host.last()

	rec.onExit(proc.ExitInfo{Code: 0, Runtime: time.Minute})
	if _, ok := f.reg.Get(s.ID); ok {
		t.Error("session surviving past minimum runtime was not closed on exit")
	}
}

func TestMonitorIntegration(t *testing.T) {
	bus := event.NewBus()
	reg := session.NewRegistry(bus)
	caps := &capturedEvents{}
	bus.SubscribeAll(caps.capture)
	host := &fakeHost{}

	var coord *Coordinator
	monitor := detect.NewMonitor(detect.Config{
		IdleTimeout:     2 * time.Second,
		OutputThreshold: 100,
	}, &stubScheduler{}, detect.Callbacks{
		OnInitialized: func(id string) { coord.MarkInitialized(id) },
		OnActivated:   func(id string) { coord.MarkActivated(id) },
		OnNotify:      func(id string) { coord.RequestNotification(id) },
	}, nil)
	coord = New(Options{
		Registry:   reg,
		Engine:     layout.NewEngine(),
		Bus:        bus,
		Monitor:    monitor,
		Host:       host,
		Resolver:   proc.StaticShellResolver{Resolved: proc.ResolvedShell{Shell: "/bin/sh", ExecArgs: []string{"-c"}}},
		ExitPolicy: proc.DefaultExitPolicy(),
	})

	s, err := coord.NewSession(context.Background(), "/repos", wt)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	rec := host.last()
	rec.onData([]byte("welcome"))

	if got := caps.ofType("session.initialized"); len(got) != 1 {
		t.Fatalf("initialized events = %d, want 1", len(got))
	}
	got, _ := reg.Get(s.ID)
	if !got.Initialized {
		t.Error("session not marked initialized after first output")
	}

	monitor.HandleEnter(s.ID)
	if got := caps.ofType("session.activated"); len(got) != 1 {
		t.Fatalf("activated events = %d, want 1", len(got))
	}

	monitor.HandleExternalStop(s.ID)
	reqs := caps.ofType("notify.requested")
	if len(reqs) != 1 {
		t.Fatalf("notification requests = %d, want 1", len(reqs))
	}
	req := reqs[0].(event.NotificationRequestedEvent)
	if req.Title != "Claude Code" {
		t.Errorf("title = %q, want agent label", req.Title)
	}
	if req.Body == "" {
		t.Error("body empty, want terminal title or derived name")
	}
}

// stubScheduler never fires; tests drive the monitor directly.
type stubScheduler struct{}

func (stubScheduler) AfterFunc(time.Duration, func()) detect.CancelFunc {
	return func() {}
}

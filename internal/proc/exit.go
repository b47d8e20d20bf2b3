package proc

import (
	"strings"
	"sync"
	"time"
)

// DefaultMinRuntime is the runtime below which an exit counts as fast.
const DefaultMinRuntime = 10 * time.Second

// DefaultNotFoundMarkers are output fragments indicating the agent
// could not resume a previous conversation.
var DefaultNotFoundMarkers = []string{
	"session not found",
	"No conversation found",
}

// ExitAction is what to do with a pane after its process exits.
type ExitAction int

const (
	// KeepPaneOpen leaves the pane visible so the user can read what
	// went wrong. Recovery is manual.
	KeepPaneOpen ExitAction = iota
	// ClosePane removes the session automatically.
	ClosePane
)

func (a ExitAction) String() string {
	if a == ClosePane {
		return "close"
	}
	return "keep-open"
}

// ExitPolicy decides the pane action for a finished process. A fast
// exit usually means startup failure worth inspecting, unless the
// output carries a marker showing the agent simply had no conversation
// to resume.
type ExitPolicy struct {
	MinRuntime      time.Duration
	NotFoundMarkers []string
}

// DefaultExitPolicy returns the stock policy.
func DefaultExitPolicy() ExitPolicy {
	return ExitPolicy{
		MinRuntime:      DefaultMinRuntime,
		NotFoundMarkers: DefaultNotFoundMarkers,
	}
}

// Decide returns the action for a process that ran for runtime and
// whose recent output tail is recentOutput.
func (p ExitPolicy) Decide(runtime time.Duration, recentOutput string) ExitAction {
	if runtime >= p.MinRuntime {
		return ClosePane
	}
	for _, marker := range p.NotFoundMarkers {
		if strings.Contains(recentOutput, marker) {
			return ClosePane
		}
	}
	return KeepPaneOpen
}

// TailBuffer retains the last max bytes written to it. The exit policy
// reads it to scan recent output for markers.
type TailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

// NewTailBuffer returns a buffer retaining up to max bytes.
func NewTailBuffer(max int) *TailBuffer {
	if max <= 0 {
		max = 4096
	}
	return &TailBuffer{max: max}
}

// Write appends p, discarding the oldest bytes beyond the cap.
func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

// String returns the retained tail.
func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

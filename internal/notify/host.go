package notify

import (
	"fmt"
	"io"
	"sync"
)

// TerminalHost delivers notifications through the controlling terminal.
// It rings the bell and retitles the window with an OSC 0 sequence so
// terminal emulators surface attention the same way agent CLIs do.
type TerminalHost struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalHost builds a TerminalHost writing to out, typically
// os.Stdout.
func NewTerminalHost(out io.Writer) *TerminalHost {
	return &TerminalHost{out: out}
}

// Show rings the terminal bell and sets the window title to the
// notification's title and body.
func (h *TerminalHost) Show(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "\x1b]0;%s: %s\x07\a", n.Title, n.Body)
}

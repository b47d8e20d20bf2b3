package proc

import (
	"context"
	"os"
	"time"
)

// Spec describes one process to spawn.
type Spec struct {
	Command string
	Args    []string
	Env     []string
	Dir     string

	// Initial terminal geometry. Zero values fall back to 80x24.
	Cols uint16
	Rows uint16
}

// ExitInfo describes how a process ended.
type ExitInfo struct {
	Code    int
	Runtime time.Duration
	Err     error
}

// Handle controls one running process.
type Handle interface {
	// Write sends input to the process terminal.
	Write(p []byte) (int, error)
	// Resize changes the terminal geometry.
	Resize(cols, rows uint16) error
	// Signal delivers a signal to the process.
	Signal(sig os.Signal) error
	// Close force-terminates the process and releases the terminal.
	Close() error
	// Done is closed once the process has exited and its output has
	// been fully delivered.
	Done() <-chan struct{}
	// StartedAt is when the process was spawned.
	StartedAt() time.Time
}

// Host spawns processes. onData receives output chunks as they arrive;
// onExit fires once, after the final chunk.
type Host interface {
	Spawn(ctx context.Context, spec Spec, onData func([]byte), onExit func(ExitInfo)) (Handle, error)
}

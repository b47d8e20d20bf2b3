package proc

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"

	muxerrors "github.com/Iron-Ham/agentmux/internal/errors"
	"github.com/Iron-Ham/agentmux/internal/logging"
)

// gracefulStopTimeout is how long Close waits after SIGTERM before
// force-killing the process.
const gracefulStopTimeout = 5 * time.Second

// PTYHost runs processes on a pseudo-terminal.
type PTYHost struct {
	log *logging.Logger
}

// NewPTYHost returns a Host backed by real pseudo-terminals. A nil
// logger defaults to a no-op logger.
func NewPTYHost(log *logging.Logger) *PTYHost {
	if log == nil {
		log = logging.Nop()
	}
	return &PTYHost{log: log.WithComponent("proc")}
}

// Spawn starts the command on a fresh pty. Output chunks are delivered
// to onData from a single reader goroutine, so calls never interleave;
// onExit fires exactly once after the last chunk.
func (h *PTYHost) Spawn(ctx context.Context, spec Spec, onData func([]byte), onExit func(ExitInfo)) (Handle, error) {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	if cmd.Env == nil {
		cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	}

	cols, rows := spec.Cols, spec.Rows
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, muxerrors.NewProcessError("starting pty", muxerrors.Join(muxerrors.ErrSpawnFailed, err)).WithCommand(spec.Command)
	}

	ph := &ptyHandle{
		cmd:     cmd,
		ptmx:    ptmx,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	var g errgroup.Group
	g.Go(func() error {
		buf := make([]byte, 32*1024)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 && onData != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				onData(chunk)
			}
			if err != nil {
				if err != io.EOF {
					h.log.Debug("pty read ended", "command", spec.Command, "error", err)
				}
				return nil
			}
		}
	})

	go func() {
		waitErr := cmd.Wait()
		// Closing the pty unblocks the reader on platforms where EOF is
		// not delivered after child exit.
		_ = ptmx.Close()
		_ = g.Wait()

		code := 0
		if waitErr != nil {
			code = -1
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			}
		}
		info := ExitInfo{Code: code, Runtime: time.Since(ph.started), Err: waitErr}
		ph.mu.Lock()
		ph.exited = true
		ph.mu.Unlock()
		close(ph.done)

		h.log.Debug("process exited",
			"command", spec.Command, "code", code, "runtime", info.Runtime)
		if onExit != nil {
			onExit(info)
		}
	}()

	h.log.Info("process spawned", "command", spec.Command, "dir", spec.Dir)
	return ph, nil
}

type ptyHandle struct {
	cmd     *exec.Cmd
	ptmx    *os.File
	started time.Time
	done    chan struct{}

	mu     sync.Mutex
	exited bool
}

func (h *ptyHandle) Write(p []byte) (int, error) {
	h.mu.Lock()
	exited := h.exited
	h.mu.Unlock()
	if exited {
		return 0, muxerrors.ErrProcessNotRunning
	}
	return h.ptmx.Write(p)
}

func (h *ptyHandle) Resize(cols, rows uint16) error {
	h.mu.Lock()
	exited := h.exited
	h.mu.Unlock()
	if exited {
		return muxerrors.ErrProcessNotRunning
	}
	return pty.Setsize(h.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

func (h *ptyHandle) Signal(sig os.Signal) error {
	if h.cmd.Process == nil {
		return muxerrors.ErrProcessNotRunning
	}
	return h.cmd.Process.Signal(sig)
}

// Close asks the process to stop with SIGTERM, then SIGKILLs it if it
// is still alive after the graceful timeout. Closing an exited handle
// is a no-op.
func (h *ptyHandle) Close() error {
	h.mu.Lock()
	exited := h.exited
	h.mu.Unlock()
	if exited || h.cmd.Process == nil {
		return nil
	}
	_ = h.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-h.done:
	case <-time.After(gracefulStopTimeout):
		_ = h.cmd.Process.Kill()
	}
	return nil
}

func (h *ptyHandle) Done() <-chan struct{} { return h.done }

func (h *ptyHandle) StartedAt() time.Time { return h.started }

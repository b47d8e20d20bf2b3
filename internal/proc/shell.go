package proc

import (
	"context"
	"os"
	"os/exec"

	muxerrors "github.com/Iron-Ham/agentmux/internal/errors"
)

// ShellConfig is the user's shell preference. Empty fields mean
// auto-detect.
type ShellConfig struct {
	Shell string
	Args  []string
}

// ResolvedShell is a concrete shell plus the arguments that make it
// execute a command line.
type ResolvedShell struct {
	Shell    string
	ExecArgs []string
}

// CommandLine returns the full argv tail for running cmdline under this
// shell.
func (r ResolvedShell) CommandLine(cmdline string) []string {
	return append(append([]string{}, r.ExecArgs...), cmdline)
}

// ShellResolver resolves the shell a command line should run under.
// Nothing may spawn before resolution completes.
type ShellResolver interface {
	Resolve(ctx context.Context, cfg ShellConfig) (ResolvedShell, error)
}

// LoginShellResolver picks the configured shell, then $SHELL, then the
// first of a fixed fallback list found on PATH.
type LoginShellResolver struct{}

var shellFallbacks = []string{"zsh", "bash", "sh"}

// Resolve implements ShellResolver.
func (LoginShellResolver) Resolve(ctx context.Context, cfg ShellConfig) (ResolvedShell, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedShell{}, err
	}
	execArgs := cfg.Args
	if len(execArgs) == 0 {
		execArgs = []string{"-l", "-c"}
	}
	if cfg.Shell != "" {
		path, err := exec.LookPath(cfg.Shell)
		if err != nil {
			return ResolvedShell{}, muxerrors.Join(muxerrors.ErrShellResolution, err)
		}
		return ResolvedShell{Shell: path, ExecArgs: execArgs}, nil
	}
	if env := os.Getenv("SHELL"); env != "" {
		return ResolvedShell{Shell: env, ExecArgs: execArgs}, nil
	}
	for _, name := range shellFallbacks {
		if path, err := exec.LookPath(name); err == nil {
			return ResolvedShell{Shell: path, ExecArgs: execArgs}, nil
		}
	}
	return ResolvedShell{}, muxerrors.ErrShellResolution
}

// StaticShellResolver always returns the same shell. Tests use it to
// avoid touching the host environment.
type StaticShellResolver struct {
	Resolved ResolvedShell
	Err      error
}

// Resolve implements ShellResolver.
func (s StaticShellResolver) Resolve(ctx context.Context, _ ShellConfig) (ResolvedShell, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedShell{}, err
	}
	return s.Resolved, s.Err
}

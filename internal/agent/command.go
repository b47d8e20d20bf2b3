package agent

import (
	"al.essio.dev/pkg/shellescape"
)

// ProxyConfig carries the command prefixes that wrap an agent command
// line for each remote environment. Empty prefixes mean the environment
// is not configured.
type ProxyConfig struct {
	// SSHPrefix is prepended for EnvSSH, e.g. ["ssh", "devbox", "--"].
	SSHPrefix []string
	// ContainerPrefix is prepended for EnvContainer,
	// e.g. ["docker", "exec", "-i", "workbench"].
	ContainerPrefix []string
}

// CommandSpec is a fully assembled agent command line, ready for the
// process host. Execution itself is delegated; this core only builds
// the string.
type CommandSpec struct {
	Command string
	Args    []string
}

// BuildOptions controls command assembly for one session.
type BuildOptions struct {
	// Ref selects the agent and environment.
	Ref Ref
	// CommandOverride replaces the agent's default executable when set.
	CommandOverride string
	// ArgsOverride replaces the agent's default arguments when set.
	ArgsOverride []string
	// ResumeID, when set, appends the agent's resume arguments.
	ResumeID string
	// Proxy supplies the remote environment prefixes.
	Proxy ProxyConfig
}

// Build assembles the command line for a session. For remote
// environments the local command line is escaped into a single argument
// of the proxy prefix, so quoting survives the remote shell.
func Build(opts BuildOptions) CommandSpec {
	def := Lookup(opts.Ref.BaseID)

	command := def.Command
	if opts.CommandOverride != "" {
		command = opts.CommandOverride
	}

	args := def.Args
	if opts.ArgsOverride != nil {
		args = opts.ArgsOverride
	}

	if opts.ResumeID != "" && def.ResumeArgs != nil {
		args = append(append([]string{}, args...), def.ResumeArgs(opts.ResumeID)...)
	}

	prefix := prefixFor(opts.Ref.Environment, opts.Proxy)
	if len(prefix) == 0 {
		return CommandSpec{Command: command, Args: args}
	}

	// Remote execution goes through a proxy command; the agent command
	// line becomes one escaped trailing argument.
	local := append([]string{command}, args...)
	remote := shellescape.QuoteCommand(local)
	return CommandSpec{
		Command: prefix[0],
		Args:    append(append([]string{}, prefix[1:]...), remote),
	}
}

// prefixFor returns the proxy prefix for an environment, or nil for
// native (or unconfigured) execution.
func prefixFor(env Environment, proxy ProxyConfig) []string {
	switch env {
	case EnvSSH:
		return proxy.SSHPrefix
	case EnvContainer:
		return proxy.ContainerPrefix
	}
	return nil
}

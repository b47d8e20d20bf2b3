// Package agent defines the catalogue of supported coding-agent CLIs and
// the runtime environments they can execute in. A session carries an
// explicit Ref (base agent id plus environment) from creation; nothing
// in the codebase derives the environment from id-string suffixes.
package agent

import "fmt"

// Environment selects where an agent process executes.
type Environment string

const (
	// EnvNative runs the agent directly on the local machine.
	EnvNative Environment = "native"
	// EnvSSH runs the agent through a configured SSH proxy command.
	EnvSSH Environment = "ssh"
	// EnvContainer runs the agent inside a configured container exec command.
	EnvContainer Environment = "container"
)

// Valid reports whether the environment is one of the known values.
func (e Environment) Valid() bool {
	switch e {
	case EnvNative, EnvSSH, EnvContainer:
		return true
	}
	return false
}

// Ref identifies the agent a session runs: the base agent id plus the
// execution environment, as an explicit tagged value.
type Ref struct {
	BaseID      string      `json:"base_id"`
	Environment Environment `json:"environment"`
}

// String renders the ref for logs and display.
func (r Ref) String() string {
	if r.Environment == EnvNative || r.Environment == "" {
		return r.BaseID
	}
	return fmt.Sprintf("%s (%s)", r.BaseID, r.Environment)
}

// Definition describes one supported agent CLI.
type Definition struct {
	// ID is the base agent identifier, e.g. "claude".
	ID string
	// Label is the human-readable name used in notification titles.
	Label string
	// Command is the executable to run.
	Command string
	// Args are the default arguments.
	Args []string
	// ResumeArgs returns the arguments that resume a previous
	// conversation, or nil if the agent does not support resuming.
	ResumeArgs func(resumeID string) []string
}

// builtins is the catalogue of known agents, keyed by base id.
var builtins = map[string]Definition{
	"claude": {
		ID:      "claude",
		Label:   "Claude Code",
		Command: "claude",
		ResumeArgs: func(resumeID string) []string {
			return []string{"--resume", resumeID}
		},
	},
	"codex": {
		ID:      "codex",
		Label:   "Codex",
		Command: "codex",
		ResumeArgs: func(resumeID string) []string {
			return []string{"resume", resumeID}
		},
	},
	"gemini": {
		ID:      "gemini",
		Label:   "Gemini CLI",
		Command: "gemini",
	},
}

// Lookup returns the definition for a base agent id.
// Unknown ids resolve to a custom definition that runs the id as a
// command with no default arguments.
func Lookup(baseID string) Definition {
	if def, ok := builtins[baseID]; ok {
		return def
	}
	return Definition{
		ID:      baseID,
		Label:   baseID,
		Command: baseID,
	}
}

// Known returns the base ids of the built-in agent catalogue.
func Known() []string {
	return []string{"claude", "codex", "gemini"}
}

package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/agentmux/internal/keymap"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "detector.idle_timeout_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidKeymapNames returns the list of built-in keymap names
func ValidKeymapNames() []string {
	return []string{"default"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Detector.ArmDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "detector.arm_delay_ms",
			Value:   c.Detector.ArmDelayMs,
			Message: "must be >= 0",
		})
	}
	if c.Detector.IdleTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "detector.idle_timeout_ms",
			Value:   c.Detector.IdleTimeoutMs,
			Message: "must be > 0",
		})
	}
	if c.Detector.OutputThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "detector.output_threshold",
			Value:   c.Detector.OutputThreshold,
			Message: "must be >= 0",
		})
	}

	// A minimum above 50% makes a two-pane layout impossible.
	if c.Layout.MinFlexPercent < 1 || c.Layout.MinFlexPercent > 50 {
		errors = append(errors, ValidationError{
			Field:   "layout.min_flex_percent",
			Value:   c.Layout.MinFlexPercent,
			Message: "must be between 1 and 50",
		})
	}

	if c.Process.MinRuntimeSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "process.min_runtime_seconds",
			Value:   c.Process.MinRuntimeSeconds,
			Message: "must be >= 0",
		})
	}

	if !slices.Contains(ValidKeymapNames(), c.Keymap.Name) {
		errors = append(errors, ValidationError{
			Field:   "keymap.name",
			Value:   c.Keymap.Name,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidKeymapNames(), ", ")),
		})
	}

	for command, spec := range c.Keymap.Overrides {
		if !keymap.ValidCommand(command) {
			errors = append(errors, ValidationError{
				Field:   "keymap.overrides." + command,
				Value:   command,
				Message: "unknown command",
			})
			continue
		}
		if _, _, _, err := keymap.ParseKeySpec(spec); err != nil {
			errors = append(errors, ValidationError{
				Field:   "keymap.overrides." + command,
				Value:   spec,
				Message: "invalid key spec",
			})
		}
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be >= 1",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be >= 0",
		})
	}

	return errors
}

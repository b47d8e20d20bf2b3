package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Iron-Ham/agentmux/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify agentmux configuration",
	Long: `View or modify agentmux configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  agentmux config set detector.idle_timeout_ms 3000
  agentmux config set layout.min_flex_percent 15
  agentmux config set process.min_runtime_seconds 10

Valid keys:
  detector.arm_delay_ms        - Delay after submit before the detection window opens
  detector.idle_timeout_ms     - Silence period before a completion notification
  detector.output_threshold    - Output bytes required before silence is meaningful
  layout.min_flex_percent      - Minimum pane width as a percent of the workspace
  process.min_runtime_seconds  - Runtime below which an exit counts as fast
  logging.enabled              - Enable debug logging (true/false)
  logging.level                - Log level: debug, info, warn, error
  logging.max_size_mb          - Log file size before rotation
  logging.max_backups          - Rotated log files to keep
  paths.state_file             - Persisted state file path
  paths.log_dir                - Log directory`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/agentmux/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("detector:")
	fmt.Printf("  arm_delay_ms: %d\n", cfg.Detector.ArmDelayMs)
	fmt.Printf("  idle_timeout_ms: %d\n", cfg.Detector.IdleTimeoutMs)
	fmt.Printf("  output_threshold: %d\n", cfg.Detector.OutputThreshold)

	fmt.Println("layout:")
	fmt.Printf("  min_flex_percent: %g\n", cfg.Layout.MinFlexPercent)

	fmt.Println("process:")
	fmt.Printf("  min_runtime_seconds: %d\n", cfg.Process.MinRuntimeSeconds)
	fmt.Printf("  not_found_markers: %s\n", strings.Join(cfg.Process.NotFoundMarkers, ", "))

	fmt.Println("keymap:")
	fmt.Printf("  name: %s\n", cfg.Keymap.Name)
	for command, chord := range cfg.Keymap.Overrides {
		fmt.Printf("  override %s: %s\n", command, chord)
	}

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Printf("  max_backups: %d\n", cfg.Logging.MaxBackups)

	fmt.Println("paths:")
	fmt.Printf("  state_file: %s\n", cfg.Paths.ResolveStateFile())
	fmt.Printf("  log_dir: %s\n", cfg.Paths.ResolveLogDir())

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"detector.arm_delay_ms":       "int",
		"detector.idle_timeout_ms":    "int",
		"detector.output_threshold":   "int",
		"layout.min_flex_percent":     "float",
		"process.min_runtime_seconds": "int",
		"logging.enabled":             "bool",
		"logging.level":               "string",
		"logging.max_size_mb":         "int",
		"logging.max_backups":         "int",
		"paths.state_file":            "string",
		"paths.log_dir":               "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'agentmux config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	case "float":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected number", key)
		}
		if floatVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = floatVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'agentmux config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Agentmux Configuration

# Idle/completion detector
detector:
  # Delay after submit before the detection window opens (0 = immediate)
  arm_delay_ms: 0
  # Silence period, once armed, before a completion notification fires
  idle_timeout_ms: 2000
  # Output volume (bytes) required after a submit before silence counts
  output_threshold: 100

# Split-pane group layout
layout:
  # Minimum pane width as a percentage of the workspace
  min_flex_percent: 20

# Agent process lifecycle
process:
  # Runtime below which an exit counts as fast; fast exits keep the
  # pane open unless a session-not-found marker is present
  min_runtime_seconds: 10
  not_found_markers:
    - "session not found"
    - "No conversation found"

# Keyboard bindings
keymap:
  name: default
  # Override individual commands, e.g.
  # overrides:
  #   split_group: ctrl+d
  overrides: {}

# Debug logging
logging:
  enabled: true
  level: info
  max_size_mb: 10
  max_backups: 3

# Data paths (empty = defaults under the config directory)
paths:
  state_file: ""
  log_dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}

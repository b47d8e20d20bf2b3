package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete agentmux configuration
type Config struct {
	Detector DetectorConfig `mapstructure:"detector"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Process  ProcessConfig  `mapstructure:"process"`
	Keymap   KeymapConfig   `mapstructure:"keymap"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Paths    PathsConfig    `mapstructure:"paths"`
}

// DetectorConfig tunes the per-session idle/completion detector
type DetectorConfig struct {
	// ArmDelayMs is how long after a submit before the detection window
	// opens. 0 opens the window immediately on Enter.
	ArmDelayMs int `mapstructure:"arm_delay_ms"`
	// IdleTimeoutMs is the silence period, once armed, after which the
	// session is considered done and a notification fires.
	IdleTimeoutMs int `mapstructure:"idle_timeout_ms"`
	// OutputThreshold is the output volume (bytes) a session must produce
	// after a submit before silence is meaningful. Guards against
	// notifying on trivial prompt echo.
	OutputThreshold int `mapstructure:"output_threshold"`
}

// LayoutConfig tunes the split-pane group layout
type LayoutConfig struct {
	// MinFlexPercent is the minimum width of a pane as a percentage of
	// the workspace. Resizes that would push either side of a boundary
	// below this are rejected whole.
	MinFlexPercent float64 `mapstructure:"min_flex_percent"`
}

// ProcessConfig tunes agent process lifecycle policy
type ProcessConfig struct {
	// MinRuntimeSeconds is the runtime below which an exit is considered
	// "fast". Fast exits keep the pane open for inspection unless a
	// session-not-found marker is present in recent output.
	MinRuntimeSeconds int `mapstructure:"min_runtime_seconds"`
	// NotFoundMarkers are substrings of recent output that identify a
	// failed resume; a fast exit with one of these auto-closes.
	NotFoundMarkers []string `mapstructure:"not_found_markers"`
}

// KeymapConfig selects and overrides keyboard navigation bindings
type KeymapConfig struct {
	// Name selects a built-in keymap (currently only "default").
	Name string `mapstructure:"name"`
	// Overrides maps command names to key chord specs, e.g.
	// "split_group" -> "ctrl+d". Unknown commands are a validation error.
	Overrides map[string]string `mapstructure:"overrides"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where agentmux stores data
type PathsConfig struct {
	// StateFile is the path of the persisted layout/session state.
	// Empty means {ConfigDir}/state.json.
	StateFile string `mapstructure:"state_file"`
	// LogDir is the directory for log files. Empty means {ConfigDir}/logs.
	LogDir string `mapstructure:"log_dir"`
}

// ArmDelay returns the detector arm delay as a time.Duration.
func (d *DetectorConfig) ArmDelay() time.Duration {
	return time.Duration(d.ArmDelayMs) * time.Millisecond
}

// IdleTimeout returns the detector idle timeout as a time.Duration.
func (d *DetectorConfig) IdleTimeout() time.Duration {
	return time.Duration(d.IdleTimeoutMs) * time.Millisecond
}

// MinRuntime returns the fast-exit boundary as a time.Duration.
func (p *ProcessConfig) MinRuntime() time.Duration {
	return time.Duration(p.MinRuntimeSeconds) * time.Second
}

// ResolveStateFile returns the state file path, applying the default.
func (p *PathsConfig) ResolveStateFile() string {
	if p.StateFile != "" {
		return expandHome(p.StateFile)
	}
	return filepath.Join(ConfigDir(), "state.json")
}

// ResolveLogDir returns the log directory, applying the default.
func (p *PathsConfig) ResolveLogDir() string {
	if p.LogDir != "" {
		return expandHome(p.LogDir)
	}
	return filepath.Join(ConfigDir(), "logs")
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			ArmDelayMs:      0,    // Open the window immediately on Enter
			IdleTimeoutMs:   2000, // 2s of silence once armed
			OutputThreshold: 100,
		},
		Layout: LayoutConfig{
			MinFlexPercent: 20,
		},
		Process: ProcessConfig{
			MinRuntimeSeconds: 10,
			NotFoundMarkers: []string{
				"session not found",
				"No conversation found",
			},
		},
		Keymap: KeymapConfig{
			Name:      "default",
			Overrides: map[string]string{},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			StateFile: "",
			LogDir:    "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("detector.arm_delay_ms", defaults.Detector.ArmDelayMs)
	viper.SetDefault("detector.idle_timeout_ms", defaults.Detector.IdleTimeoutMs)
	viper.SetDefault("detector.output_threshold", defaults.Detector.OutputThreshold)

	viper.SetDefault("layout.min_flex_percent", defaults.Layout.MinFlexPercent)

	viper.SetDefault("process.min_runtime_seconds", defaults.Process.MinRuntimeSeconds)
	viper.SetDefault("process.not_found_markers", defaults.Process.NotFoundMarkers)

	viper.SetDefault("keymap.name", defaults.Keymap.Name)
	viper.SetDefault("keymap.overrides", defaults.Keymap.Overrides)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("paths.state_file", defaults.Paths.StateFile)
	viper.SetDefault("paths.log_dir", defaults.Paths.LogDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentmux")
	}
	// Fall back to ~/.config/agentmux
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentmux"
	}
	return filepath.Join(home, ".config", "agentmux")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

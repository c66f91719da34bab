// Package config loads and validates Claudia's runtime configuration:
// the state directory layout, lock and heartbeat timing, and the
// Coordinator/Client tuning knobs.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Claudia configuration.
type Config struct {
	// StateDir is the directory holding tasks.json, templates.json,
	// sessions/, history.jsonl, archive.jsonl, and the .lock file.
	StateDir string `mapstructure:"state_dir"`
	// LockTimeout bounds how long a Store transaction waits to acquire
	// the advisory file lock before returning a LockTimeout error.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	// HeartbeatThreshold is the age past which a session's last heartbeat
	// is considered stale and its claimed tasks eligible for reclaim.
	HeartbeatThreshold time.Duration `mapstructure:"heartbeat_threshold"`
	// CleanupInterval is how often the coordinator sweeps for stale
	// sessions and reclaims their claimed tasks.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// FlushInterval is how often the coordinator's flush loop ticks in
	// parallel mode. The loop only logs: every Store transaction is
	// already written to disk when it commits.
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// MaxConcurrentPerSession caps how many tasks a single session may
	// hold claimed at once.
	MaxConcurrentPerSession int `mapstructure:"max_concurrent_per_session"`
	// AutoCompleteParents controls whether completing every child of a
	// parent task automatically completes the parent.
	AutoCompleteParents bool `mapstructure:"auto_complete_parents"`

	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Client      ClientConfig      `mapstructure:"client"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CoordinatorConfig controls the HTTP service used in parallel mode.
type CoordinatorConfig struct {
	// Port the coordinator listens on. 0 picks a free port, which is
	// then recorded in StateDir/.parallel-mode.
	Port int `mapstructure:"port"`
	// RequestTimeout is the soft budget a single HTTP handler has to
	// complete a Store transaction before the request is logged as slow.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ClientConfig controls the parallel-mode client façade's retry policy.
type ClientConfig struct {
	// RetryBaseDelay is the first backoff delay after a retryable failure.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	// RetryMaxDelay caps the exponential backoff schedule.
	RetryMaxDelay time.Duration `mapstructure:"retry_max_delay"`
	// MaxRetries is the maximum number of attempts, including the first.
	MaxRetries int `mapstructure:"max_retries"`
}

// LoggingConfig controls structured logging behavior.
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzip-compresses rotated coordinator.log backups (default: false)
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		StateDir:                ".agent-state",
		LockTimeout:             10 * time.Second,
		HeartbeatThreshold:      180 * time.Second,
		CleanupInterval:         30 * time.Second,
		FlushInterval:           time.Second,
		MaxConcurrentPerSession: 1,
		AutoCompleteParents:     false,
		Coordinator: CoordinatorConfig{
			Port:           0,
			RequestTimeout: 100 * time.Millisecond,
		},
		Client: ClientConfig{
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  8 * time.Second,
			MaxRetries:     5,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("state_dir", defaults.StateDir)
	viper.SetDefault("lock_timeout", defaults.LockTimeout)
	viper.SetDefault("heartbeat_threshold", defaults.HeartbeatThreshold)
	viper.SetDefault("cleanup_interval", defaults.CleanupInterval)
	viper.SetDefault("flush_interval", defaults.FlushInterval)
	viper.SetDefault("max_concurrent_per_session", defaults.MaxConcurrentPerSession)
	viper.SetDefault("auto_complete_parents", defaults.AutoCompleteParents)

	viper.SetDefault("coordinator.port", defaults.Coordinator.Port)
	viper.SetDefault("coordinator.request_timeout", defaults.Coordinator.RequestTimeout)

	viper.SetDefault("client.retry_base_delay", defaults.Client.RetryBaseDelay)
	viper.SetDefault("client.retry_max_delay", defaults.Client.RetryMaxDelay)
	viper.SetDefault("client.max_retries", defaults.Client.MaxRetries)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it.
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

// Get returns the current configuration (convenience function).
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "claudia")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claudia"
	}
	return filepath.Join(home, ".config", "claudia")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ResolveStateDir returns the absolute state directory path, resolving a
// relative StateDir against baseDir (normally the current working directory).
func (c *Config) ResolveStateDir(baseDir string) string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(baseDir, c.StateDir)
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

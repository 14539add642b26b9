package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Catalog selects the backing library store.
type Catalog struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Jellyfin contains configuration for the Jellyfin/Emby server backend.
type Jellyfin struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	UserID         string `toml:"user_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Merge holds the merge and split policy.
type Merge struct {
	// MergeAcrossLibraries groups records from every library in one scope.
	MergeAcrossLibraries bool `toml:"merge_across_libraries"`
	// RespectLocks keeps locked records out of merges and bulk splits.
	RespectLocks bool `toml:"respect_locks"`
	// RunAutomatically lets the daemon merge shortly after new movies appear.
	RunAutomatically bool `toml:"run_automatically"`
	// AllowedProviderTypes restricts grouping keys; empty means every provider.
	AllowedProviderTypes []string `toml:"allowed_provider_types"`
	// ExcludedLibraries are library names never scanned.
	ExcludedLibraries []string `toml:"excluded_libraries"`
}

// Daemon contains configuration for daemon timing.
type Daemon struct {
	AutoMergeDelaySeconds int    `toml:"auto_merge_delay_seconds"`
	ChangePollInterval    int    `toml:"change_poll_interval"`
	MergeIntervalMinutes  int    `toml:"merge_interval_minutes"`
	UICulture             string `toml:"ui_culture"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications configures ntfy push notifications for task runs.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// NotifyNoop also reports runs that merged or split nothing.
	NotifyNoop bool `toml:"notify_noop"`
}

// Config encapsulates all configuration values for automerge.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories, API bind address and token
//   - Catalog: which library store backs the tasks
//   - Jellyfin: media server connection when catalog.backend is jellyfin
//   - Merge: merge and split policy
//   - Daemon: automatic merge timing and UI culture
//   - Logging: log format, level, and retention
//   - Notifications: ntfy topic for task results
type Config struct {
	Paths    Paths    `toml:"paths"`
	Catalog  Catalog  `toml:"catalog"`
	Jellyfin Jellyfin `toml:"jellyfin"`
	Merge    Merge    `toml:"merge"`
	Daemon   Daemon   `toml:"daemon"`
	Logging  Logging  `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("automerge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Catalog.Backend == BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Catalog.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create catalog directory: %w", err)
		}
	}
	return nil
}

// LockPath is the daemon lock file inside the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "automerge.lock")
}

// JellyfinTimeout returns the HTTP timeout for the Jellyfin backend.
func (c *Config) JellyfinTimeout() time.Duration {
	return time.Duration(c.Jellyfin.TimeoutSeconds) * time.Second
}

// AutoMergeDelay is how long the daemon waits after new movies appear.
func (c *Config) AutoMergeDelay() time.Duration {
	return time.Duration(c.Daemon.AutoMergeDelaySeconds) * time.Second
}

// ChangePollInterval is how often the daemon checks the catalog for new movies.
func (c *Config) ChangePollInterval() time.Duration {
	return time.Duration(c.Daemon.ChangePollInterval) * time.Second
}

// MergeInterval is the periodic merge interval; zero disables it.
func (c *Config) MergeInterval() time.Duration {
	return time.Duration(c.Daemon.MergeIntervalMinutes) * time.Minute
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// IsExcludedLibrary reports whether a library name is excluded from scans.
// Names compare case-insensitively.
func (c *Config) IsExcludedLibrary(name string) bool {
	name = strings.TrimSpace(name)
	for _, excluded := range c.Merge.ExcludedLibraries {
		if strings.EqualFold(excluded, name) {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

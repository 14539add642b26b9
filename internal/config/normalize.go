package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeJellyfin()
	c.normalizeMerge()
	c.normalizeDaemon()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("AUTOMERGE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.Backend = strings.ToLower(strings.TrimSpace(c.Catalog.Backend))
	if c.Catalog.Backend == "" {
		c.Catalog.Backend = BackendSQLite
	}
	if strings.TrimSpace(c.Catalog.SQLitePath) == "" {
		c.Catalog.SQLitePath = filepath.Join(c.Paths.StateDir, defaultSQLiteName)
	}
	var err error
	if c.Catalog.SQLitePath, err = expandPath(c.Catalog.SQLitePath); err != nil {
		return fmt.Errorf("catalog.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeJellyfin() {
	c.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(c.Jellyfin.URL), "/")
	c.Jellyfin.UserID = strings.TrimSpace(c.Jellyfin.UserID)
	c.Jellyfin.APIKey = strings.TrimSpace(c.Jellyfin.APIKey)
	if c.Jellyfin.APIKey == "" {
		if value, ok := os.LookupEnv("JELLYFIN_API_KEY"); ok {
			c.Jellyfin.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Jellyfin.TimeoutSeconds <= 0 {
		c.Jellyfin.TimeoutSeconds = defaultJellyfinTimeout
	}
}

func (c *Config) normalizeMerge() {
	c.Merge.AllowedProviderTypes = normalizeNames(c.Merge.AllowedProviderTypes, true)
	c.Merge.ExcludedLibraries = normalizeNames(c.Merge.ExcludedLibraries, false)
}

func (c *Config) normalizeDaemon() {
	c.Daemon.UICulture = strings.TrimSpace(c.Daemon.UICulture)
	if c.Daemon.UICulture == "" {
		c.Daemon.UICulture = defaultUICulture
	}
	if c.Daemon.ChangePollInterval <= 0 {
		c.Daemon.ChangePollInterval = defaultChangePollInterval
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

// normalizeNames trims, drops blanks, and removes case-insensitive duplicates
// while keeping first-seen order. Provider names are also lowercased.
func normalizeNames(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if lower {
			value = strings.ToLower(value)
		}
		if slices.ContainsFunc(out, func(existing string) bool { return strings.EqualFold(existing, value) }) {
			continue
		}
		out = append(out, value)
	}
	return out
}

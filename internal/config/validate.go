package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case BackendSQLite:
		if strings.TrimSpace(c.Catalog.SQLitePath) == "" {
			return errors.New("catalog.sqlite_path must be set when catalog.backend is sqlite")
		}
		return nil
	case BackendJellyfin:
		return c.validateJellyfin()
	default:
		return fmt.Errorf("catalog.backend must be %q or %q, got %q", BackendSQLite, BackendJellyfin, c.Catalog.Backend)
	}
}

func (c *Config) validateJellyfin() error {
	if c.Jellyfin.URL == "" {
		return errors.New("jellyfin.url must be set when catalog.backend is jellyfin")
	}
	parsed, err := url.Parse(c.Jellyfin.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("jellyfin.url %q must be an absolute http(s) URL", c.Jellyfin.URL)
	}
	if c.Jellyfin.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("jellyfin.api_key is required. Set JELLYFIN_API_KEY env var or edit %s (create with 'automerge config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.AutoMergeDelaySeconds < 0 {
		return errors.New("daemon.auto_merge_delay_seconds must be zero or positive")
	}
	if c.Daemon.MergeIntervalMinutes < 0 {
		return errors.New("daemon.merge_interval_minutes must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be a full topic URL such as https://ntfy.sh/automerge", topic)
	}
	return nil
}

package config

const (
	defaultConfigPath            = "~/.config/automerge/config.toml"
	defaultStateDir              = "~/.local/share/automerge"
	defaultLogDir                = "~/.local/share/automerge/logs"
	defaultLogRetentionDays      = 30
	defaultAPIBind               = "127.0.0.1:7488"
	defaultSQLiteName            = "catalog.db"
	defaultJellyfinTimeout       = 30
	defaultAutoMergeDelaySeconds = 60
	defaultChangePollInterval    = 30
	defaultUICulture             = "en-US"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultExcludedLibrary       = "Top Picks"
	defaultNtfyTimeout           = 10
)

// Catalog backends.
const (
	BackendSQLite   = "sqlite"
	BackendJellyfin = "jellyfin"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Catalog: Catalog{
			Backend: BackendSQLite,
		},
		Jellyfin: Jellyfin{
			TimeoutSeconds: defaultJellyfinTimeout,
		},
		Merge: Merge{
			MergeAcrossLibraries: true,
			RespectLocks:         true,
			RunAutomatically:     true,
			ExcludedLibraries:    []string{defaultExcludedLibrary},
		},
		Daemon: Daemon{
			AutoMergeDelaySeconds: defaultAutoMergeDelaySeconds,
			ChangePollInterval:    defaultChangePollInterval,
			UICulture:             defaultUICulture,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"automerge/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("JELLYFIN_API_KEY", "")
	t.Setenv("AUTOMERGE_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "automerge")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Catalog.SQLitePath != filepath.Join(wantState, "catalog.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Catalog.SQLitePath)
	}
	if cfg.Catalog.Backend != config.BackendSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Catalog.Backend)
	}
	if !cfg.Merge.MergeAcrossLibraries || !cfg.Merge.RespectLocks || !cfg.Merge.RunAutomatically {
		t.Fatalf("unexpected merge defaults: %+v", cfg.Merge)
	}
	if len(cfg.Merge.AllowedProviderTypes) != 0 {
		t.Fatalf("expected empty allow-list, got %v", cfg.Merge.AllowedProviderTypes)
	}
	if !cfg.IsExcludedLibrary("top picks") {
		t.Fatal("expected Top Picks to be excluded by default")
	}
	if cfg.AutoMergeDelay().Seconds() != 60 {
		t.Fatalf("unexpected auto merge delay: %v", cfg.AutoMergeDelay())
	}
	if cfg.MergeInterval() != 0 {
		t.Fatalf("expected periodic merge disabled, got %v", cfg.MergeInterval())
	}
	if cfg.Daemon.UICulture != "en-US" {
		t.Fatalf("unexpected ui culture: %q", cfg.Daemon.UICulture)
	}
}

func TestLoadCustomConfigNormalizesProviders(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("JELLYFIN_API_KEY", "env-key")

	configPath := filepath.Join(t.TempDir(), "automerge.toml")
	content := `
[paths]
state_dir = "~/state"

[catalog]
backend = "Jellyfin"

[jellyfin]
url = "http://media.local:8096/"

[merge]
merge_across_libraries = false
allowed_provider_types = [" Tmdb", "imdb", "TMDB", ""]
excluded_libraries = ["Top Picks", "Trailers", "top picks"]

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Catalog.Backend != config.BackendJellyfin {
		t.Fatalf("unexpected backend: %q", cfg.Catalog.Backend)
	}
	if cfg.Jellyfin.URL != "http://media.local:8096" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Jellyfin.URL)
	}
	if cfg.Jellyfin.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.Jellyfin.APIKey)
	}
	if cfg.Merge.MergeAcrossLibraries {
		t.Fatal("expected merge_across_libraries=false")
	}
	if !slices.Equal(cfg.Merge.AllowedProviderTypes, []string{"tmdb", "imdb"}) {
		t.Fatalf("unexpected providers: %v", cfg.Merge.AllowedProviderTypes)
	}
	if !slices.Equal(cfg.Merge.ExcludedLibraries, []string{"Top Picks", "Trailers"}) {
		t.Fatalf("unexpected excluded libraries: %v", cfg.Merge.ExcludedLibraries)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "automerge.toml")
	if err := os.WriteFile(configPath, []byte("[merge]\nmerge_everything = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"unknown backend", func(c *config.Config) { c.Catalog.Backend = "plex" }, "catalog.backend"},
		{"jellyfin without url", func(c *config.Config) {
			c.Catalog.Backend = config.BackendJellyfin
			c.Jellyfin.APIKey = "k"
		}, "jellyfin.url"},
		{"jellyfin without key", func(c *config.Config) {
			c.Catalog.Backend = config.BackendJellyfin
			c.Jellyfin.URL = "http://localhost:8096"
		}, "jellyfin.api_key"},
		{"bad bind", func(c *config.Config) { c.Paths.APIBind = "nope" }, "paths.api_bind"},
		{"negative delay", func(c *config.Config) { c.Daemon.AutoMergeDelaySeconds = -1 }, "auto_merge_delay_seconds"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "automerge" }, "notifications.ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Catalog.SQLitePath = "/tmp/catalog.db"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NTFY_TOPIC", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Notifications.NtfyTopic != "" || cfg.NotificationTimeout() != 10*time.Second {
		t.Fatalf("unexpected notification defaults: %#v", cfg.Notifications)
	}
}

func TestEncodeRoundTripsThroughTOML(t *testing.T) {
	cfg := config.Default()
	cfg.Merge.AllowedProviderTypes = []string{"tmdb"}
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !slices.Equal(decoded.Merge.AllowedProviderTypes, []string{"tmdb"}) {
		t.Fatalf("unexpected providers after round trip: %v", decoded.Merge.AllowedProviderTypes)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"automerge/internal/catalog"
	"automerge/internal/config"
	"automerge/internal/library"
	"automerge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func (e *cliTestEnv) seed(t *testing.T) {
	t.Helper()
	store := testsupport.MustOpenLibrary(t, e.cfg)
	testsupport.MustImport(t, store, seedSnapshot())
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
}

func seedSnapshot() library.Snapshot {
	return library.Snapshot{
		Libraries: []catalog.Library{{ID: "lib-1", Name: "Movies"}, {ID: "lib-2", Name: "Top Picks"}},
		Movies: []catalog.MovieRecord{
			testsupport.Movie("101", "lib-1", map[string]string{"Tmdb": "603", "Imdb": "tt0133093"}),
			testsupport.Movie("102", "lib-1", map[string]string{"Tmdb": "603"}),
			testsupport.Movie("103", "lib-2", map[string]string{"Imdb": "tt0133093"}),
			testsupport.Movie("104", "lib-1", map[string]string{"Tmdb": "604"}, "105"),
			testsupport.Movie("105", "lib-1", map[string]string{"Tmdb": "604"}),
		},
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

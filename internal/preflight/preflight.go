package preflight

import (
	"context"
	"path/filepath"

	"automerge/internal/catalog"
	"automerge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// RunAll executes the checks that apply to the configured backend. store may
// be nil when the catalog could not be opened; the catalog check then fails.
func RunAll(ctx context.Context, cfg *config.Config, store catalog.Store) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	switch cfg.Catalog.Backend {
	case config.BackendJellyfin:
		results = append(results, CheckJellyfin(ctx, cfg.Jellyfin.URL, cfg.Jellyfin.APIKey))
	default:
		results = append(results, CheckDirectoryAccess("Catalog directory", filepath.Dir(cfg.Catalog.SQLitePath)))
	}
	results = append(results, CheckCatalog(ctx, store))
	return results
}

// Package catalogaccess opens the catalog.Store selected by configuration.
package catalogaccess

import (
	"fmt"

	"automerge/internal/catalog"
	"automerge/internal/config"
	"automerge/internal/library"
	"automerge/internal/services/jellyfin"
)

// Session represents an open store and its cleanup function.
type Session struct {
	Store   catalog.Store
	Backend string
	close   func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open returns the store named by catalog.backend.
func Open(cfg *config.Config) (Session, error) {
	if cfg == nil {
		return Session{}, fmt.Errorf("open catalog: config is nil")
	}
	switch cfg.Catalog.Backend {
	case config.BackendJellyfin:
		return Session{Store: jellyfin.NewFromConfig(cfg), Backend: config.BackendJellyfin}, nil
	case config.BackendSQLite, "":
		store, err := library.Open(cfg)
		if err != nil {
			return Session{}, fmt.Errorf("open catalog: %w", err)
		}
		return Session{Store: store, Backend: config.BackendSQLite, close: store.Close}, nil
	default:
		return Session{}, fmt.Errorf("open catalog: unknown backend %q", cfg.Catalog.Backend)
	}
}

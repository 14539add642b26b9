package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"automerge/internal/catalog"
	"automerge/internal/logging"
)

// Scope is one set of records grouped together. LibraryID is empty for the
// union scope used when merging across libraries.
type Scope struct {
	LibraryID   string
	LibraryName string
	Records     []catalog.MovieRecord
}

// Label names the scope for logs and tables.
func (s Scope) Label() string {
	if s.LibraryID == "" {
		return "all libraries"
	}
	if s.LibraryName != "" {
		return s.LibraryName
	}
	return s.LibraryID
}

func excluded(name string, names []string) bool {
	name = strings.TrimSpace(name)
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
	}
	return false
}

// resolveScopes lists the libraries, drops excluded ones, and loads their
// records either as one union scope or one scope per library.
func resolveScopes(ctx context.Context, store catalog.Store, opts Options, logger *slog.Logger) ([]Scope, error) {
	libraries, err := store.ListLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	logger.Info("libraries found",
		logging.Int("count", len(libraries)),
		logging.Bool("merge_across_libraries", opts.MergeAcrossLibraries),
		logging.String(logging.FieldEventType, "libraries_listed"),
	)

	var included []catalog.Library
	for _, lib := range libraries {
		if excluded(lib.Name, opts.ExcludedLibraries) {
			logger.Info("ignoring excluded library",
				logging.String(logging.FieldLibraryID, lib.ID),
				logging.String("library", lib.Name),
				logging.String(logging.FieldEventType, "library_excluded"),
			)
			continue
		}
		included = append(included, lib)
	}
	if len(included) == 0 {
		return nil, nil
	}

	if opts.MergeAcrossLibraries {
		ids := make([]string, len(included))
		for i, lib := range included {
			ids[i] = lib.ID
		}
		records, err := store.ListRecords(ctx, catalog.Query{LibraryIDs: ids})
		if err != nil {
			return nil, fmt.Errorf("list movies: %w", err)
		}
		return []Scope{{Records: records}}, nil
	}

	scopes := make([]Scope, 0, len(included))
	for _, lib := range included {
		records, err := store.ListRecords(ctx, catalog.Query{LibraryIDs: []string{lib.ID}})
		if err != nil {
			return nil, fmt.Errorf("list movies in %s: %w", lib.Name, err)
		}
		scopes = append(scopes, Scope{LibraryID: lib.ID, LibraryName: lib.Name, Records: records})
	}
	return scopes, nil
}

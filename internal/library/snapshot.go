package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"automerge/internal/catalog"
)

// Snapshot is the JSON document accepted by Import and produced by Export.
type Snapshot struct {
	Libraries []catalog.Library     `json:"libraries"`
	Movies    []catalog.MovieRecord `json:"movies"`
}

// ImportResult counts what an import touched.
type ImportResult struct {
	Libraries int
	Movies    int
	Links     int
}

// ReadSnapshot decodes a snapshot document.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// WriteSnapshot encodes a snapshot as indented JSON.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

func validateSnapshot(snap Snapshot) error {
	seen := make(map[string]struct{}, len(snap.Movies))
	for i, m := range snap.Movies {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("movie %d: id is required", i)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("movie %s: duplicate id", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	for _, lib := range snap.Libraries {
		if strings.TrimSpace(lib.ID) == "" {
			return errors.New("library id is required")
		}
	}
	return nil
}

// Import upserts the snapshot. Movies already in the database are updated in
// place; their provider ids and version links are replaced by the snapshot's.
// Alternate links are stored in both directions. A movie without a version
// key gets one derived from itself and its alternates.
func (s *Store) Import(ctx context.Context, snap Snapshot) (ImportResult, error) {
	if err := validateSnapshot(snap); err != nil {
		return ImportResult{}, err
	}
	var result ImportResult
	now := s.timestamp()
	keys := derivedKeys(snap.Movies)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result = ImportResult{}
		for _, lib := range snap.Libraries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO libraries (id, name) VALUES (?, ?)
                 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
				lib.ID, lib.Name); err != nil {
				return fmt.Errorf("upsert library %s: %w", lib.ID, err)
			}
			result.Libraries++
		}

		for _, m := range snap.Movies {
			key := m.VersionGroupKey
			if key == "" {
				key = keys[m.ID]
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO movies (id, name, library_id, locked, on_filesystem, has_top_ancestor,
                                     in_manual_collection, version_key, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(id) DO UPDATE SET
                     name = excluded.name,
                     library_id = excluded.library_id,
                     locked = excluded.locked,
                     on_filesystem = excluded.on_filesystem,
                     has_top_ancestor = excluded.has_top_ancestor,
                     in_manual_collection = excluded.in_manual_collection,
                     version_key = excluded.version_key,
                     updated_at = excluded.updated_at`,
				m.ID, m.Name, nullableString(m.LibraryID), boolToInt(m.Locked), boolToInt(m.OnFilesystem),
				boolToInt(m.HasTopAncestor), boolToInt(m.InsideManualCollection), key, now, now); err != nil {
				return fmt.Errorf("upsert movie %s: %w", m.ID, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM provider_ids WHERE movie_id = ?", m.ID); err != nil {
				return fmt.Errorf("clear provider ids of %s: %w", m.ID, err)
			}
			for providerType, value := range m.ProviderIDs {
				if strings.TrimSpace(providerType) == "" {
					continue
				}
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO provider_ids (movie_id, provider_type, provider_value) VALUES (?, ?, ?)",
					m.ID, providerType, value); err != nil {
					return fmt.Errorf("insert provider id %s of %s: %w", providerType, m.ID, err)
				}
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM version_links WHERE movie_id = ?", m.ID); err != nil {
				return fmt.Errorf("clear links of %s: %w", m.ID, err)
			}
			result.Movies++
		}

		// Links go in after every movie exists so alternates may appear in any order.
		for _, m := range snap.Movies {
			for _, alternate := range m.AlternateVersionIDs {
				if alternate == m.ID {
					continue
				}
				for _, pair := range [][2]string{{m.ID, alternate}, {alternate, m.ID}} {
					res, err := tx.ExecContext(ctx,
						"INSERT OR IGNORE INTO version_links (movie_id, alternate_id) VALUES (?, ?)", pair[0], pair[1])
					if err != nil {
						return fmt.Errorf("link %s to %s: %w", pair[0], pair[1], err)
					}
					if n, _ := res.RowsAffected(); n > 0 {
						result.Links++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, catalog.WrapError("import", "", err)
	}
	return result, nil
}

// derivedKeys computes a version key for each movie from itself and its
// alternates, counting links declared on either side.
func derivedKeys(movies []catalog.MovieRecord) map[string]string {
	neighbors := make(map[string][]string, len(movies))
	for _, m := range movies {
		for _, alternate := range m.AlternateVersionIDs {
			if alternate == m.ID {
				continue
			}
			neighbors[m.ID] = append(neighbors[m.ID], alternate)
			neighbors[alternate] = append(neighbors[alternate], m.ID)
		}
	}
	keys := make(map[string]string, len(movies))
	for _, m := range movies {
		keys[m.ID] = versionKey(append([]string{m.ID}, neighbors[m.ID]...))
	}
	return keys
}

// Export returns the whole catalog as a snapshot.
func (s *Store) Export(ctx context.Context) (Snapshot, error) {
	libraries, err := s.ListLibraries(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	movies, err := s.ListRecords(ctx, catalog.Query{})
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Libraries: libraries, Movies: movies}, nil
}

// Stats summarizes the catalog contents.
type Stats struct {
	Libraries    int `json:"libraries"`
	Movies       int `json:"movies"`
	MergedGroups int `json:"merged_groups"`
	MergedMovies int `json:"merged_movies"`
}

// Stats counts libraries, movies, and merged version groups.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM libraries").Scan(&st.Libraries); err != nil {
		return Stats{}, catalog.WrapError("stats", "", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM movies").Scan(&st.Movies); err != nil {
		return Stats{}, catalog.WrapError("stats", "", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COUNT(1) FROM movies
          WHERE id IN (SELECT movie_id FROM version_links)
          GROUP BY version_key`)
	if err != nil {
		return Stats{}, catalog.WrapError("stats", "", err)
	}
	defer rows.Close()
	var sizes []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return Stats{}, catalog.WrapError("stats", "", err)
		}
		sizes = append(sizes, n)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, catalog.WrapError("stats", "", err)
	}
	st.MergedGroups = len(sizes)
	for _, n := range sizes {
		st.MergedMovies += n
	}
	return st, nil
}

package library

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"automerge/internal/catalog"
)

// ListLibraries returns every library ordered by name.
func (s *Store) ListLibraries(ctx context.Context) ([]catalog.Library, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM libraries ORDER BY name, id")
	if err != nil {
		return nil, catalog.WrapError("list libraries", "", err)
	}
	defer rows.Close()

	var libraries []catalog.Library
	for rows.Next() {
		var lib catalog.Library
		if err := rows.Scan(&lib.ID, &lib.Name); err != nil {
			return nil, catalog.WrapError("list libraries", "", err)
		}
		libraries = append(libraries, lib)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.WrapError("list libraries", "", err)
	}
	return libraries, nil
}

// queryFilter renders a catalog.Query as a WHERE clause over movies m.
func queryFilter(q catalog.Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(q.LibraryIDs) > 0 {
		clauses = append(clauses, "m.library_id IN ("+placeholders(len(q.LibraryIDs))+")")
		args = append(args, stringArgs(q.LibraryIDs)...)
	}
	if q.HasProviderFilter() {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM provider_ids f
            WHERE f.movie_id = m.id AND f.provider_type = ? COLLATE NOCASE AND f.provider_value = ?)`)
		args = append(args, strings.TrimSpace(q.ProviderType), strings.TrimSpace(q.ProviderValue))
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

// ListRecords returns the movies matching the query ordered by id.
func (s *Store) ListRecords(ctx context.Context, q catalog.Query) ([]catalog.MovieRecord, error) {
	where, args := queryFilter(q)
	records, err := s.loadRecords(ctx, where, args)
	if err != nil {
		return nil, catalog.WrapError("list records", "", err)
	}
	return records, nil
}

// GetRecord returns one movie, or nil when the id is unknown.
func (s *Store) GetRecord(ctx context.Context, id string) (*catalog.MovieRecord, error) {
	records, err := s.loadRecords(ctx, "m.id = ?", []any{id})
	if err != nil {
		return nil, catalog.WrapError("get record", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// RecordIDsByVersionKey returns the ids sharing versionKey, without excludeID.
func (s *Store) RecordIDsByVersionKey(ctx context.Context, key, excludeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM movies WHERE version_key = ? AND id <> ? ORDER BY id", key, excludeID)
	if err != nil {
		return nil, catalog.WrapError("list version group", excludeID, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, catalog.WrapError("list version group", excludeID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.WrapError("list version group", excludeID, err)
	}
	return ids, nil
}

func (s *Store) loadRecords(ctx context.Context, where string, args []any) ([]catalog.MovieRecord, error) {
	movies, err := s.queryMovies(ctx, where, args)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, nil
	}
	providers, err := s.queryProviders(ctx, where, args)
	if err != nil {
		return nil, err
	}
	links, err := s.queryLinks(ctx, where, args)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.MovieRecord, 0, len(movies))
	for _, m := range movies {
		records = append(records, catalog.MovieRecord{
			ID:                     m.ID,
			Name:                   m.Name,
			LibraryID:              m.LibraryID,
			Locked:                 m.Locked,
			OnFilesystem:           m.OnFilesystem,
			HasTopAncestor:         m.HasTopAncestor,
			InsideManualCollection: m.InsideManualCollection,
			ProviderIDs:            providers[m.ID],
			VersionGroupKey:        m.VersionKey,
			AlternateVersionIDs:    links[m.ID],
		})
	}
	return records, nil
}

func (s *Store) queryMovies(ctx context.Context, where string, args []any) ([]movieRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+movieColumns+" FROM movies m WHERE "+where+" ORDER BY m.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()
	var out []movieRow
	for rows.Next() {
		row, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (s *Store) queryProviders(ctx context.Context, where string, args []any) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.movie_id, p.provider_type, p.provider_value
           FROM provider_ids p JOIN movies m ON m.id = p.movie_id
          WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query provider ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]map[string]string)
	for rows.Next() {
		var id, providerType, value string
		if err := rows.Scan(&id, &providerType, &value); err != nil {
			return nil, fmt.Errorf("scan provider id: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string]string)
		}
		out[id][providerType] = value
	}
	return out, rows.Err()
}

func (s *Store) queryLinks(ctx context.Context, where string, args []any) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.movie_id, l.alternate_id
           FROM version_links l JOIN movies m ON m.id = l.movie_id
          WHERE `+where+` ORDER BY l.movie_id, l.alternate_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query version links: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var id, alternate string
		if err := rows.Scan(&id, &alternate); err != nil {
			return nil, fmt.Errorf("scan version link: %w", err)
		}
		out[id] = append(out[id], alternate)
	}
	return out, rows.Err()
}

// MergeRecords makes the records one movie with several versions. Every pair
// is linked and all members take the version key of the set. Links the
// members already have to other records are kept, and records outside the
// set are not written. Merging a set that is already merged changes nothing.
func (s *Store) MergeRecords(ctx context.Context, records []catalog.MovieRecord) error {
	ids := slices.Compact(slices.Sorted(slices.Values(catalog.RecordIDs(records))))
	if len(ids) < 2 {
		return nil
	}
	key := versionKey(ids)
	now := s.timestamp()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var found int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM movies WHERE id IN ("+placeholders(len(ids))+")", stringArgs(ids)...,
		).Scan(&found); err != nil {
			return fmt.Errorf("check members: %w", err)
		}
		if found != len(ids) {
			return catalog.ErrNotFound
		}

		in := placeholders(len(ids))
		for _, id := range ids {
			for _, other := range ids {
				if id == other {
					continue
				}
				if _, err := tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO version_links (movie_id, alternate_id) VALUES (?, ?)", id, other); err != nil {
					return fmt.Errorf("link %s to %s: %w", id, other, err)
				}
			}
		}
		args := append([]any{key, now, key}, stringArgs(ids)...)
		if _, err := tx.ExecContext(ctx,
			"UPDATE movies SET version_key = ?, updated_at = ? WHERE version_key <> ? AND id IN ("+in+")",
			args...); err != nil {
			return fmt.Errorf("set version key: %w", err)
		}
		return nil
	})
	if err != nil {
		return catalog.WrapError("merge", strings.Join(ids, ","), err)
	}
	return nil
}

// SplitRecord detaches the record from its version group and gives it a
// standalone version key. The remaining members stay linked to each other.
func (s *Store) SplitRecord(ctx context.Context, record catalog.MovieRecord) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE movies SET version_key = ?, updated_at = ? WHERE id = ?",
			standaloneKey(record.ID), s.timestamp(), record.ID)
		if err != nil {
			return fmt.Errorf("reset version key: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return catalog.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM version_links WHERE movie_id = ? OR alternate_id = ?", record.ID, record.ID); err != nil {
			return fmt.Errorf("remove links: %w", err)
		}
		return nil
	})
	if err != nil {
		return catalog.WrapError("split", record.ID, err)
	}
	return nil
}

package library

import (
	"database/sql"
	"strings"
)

const movieColumns = "m.id, m.name, m.library_id, m.locked, m.on_filesystem, m.has_top_ancestor, m.in_manual_collection, m.version_key"

type rowScanner interface{ Scan(dest ...any) error }

func scanMovie(scanner rowScanner) (*movieRow, error) {
	var (
		row        movieRow
		libraryID  sql.NullString
		locked     int
		onFS       int
		topParent  int
		manualColl int
	)
	if err := scanner.Scan(
		&row.ID,
		&row.Name,
		&libraryID,
		&locked,
		&onFS,
		&topParent,
		&manualColl,
		&row.VersionKey,
	); err != nil {
		return nil, err
	}
	row.LibraryID = libraryID.String
	row.Locked = locked != 0
	row.OnFilesystem = onFS != 0
	row.HasTopAncestor = topParent != 0
	row.InsideManualCollection = manualColl != 0
	return &row, nil
}

type movieRow struct {
	ID                     string
	Name                   string
	LibraryID              string
	Locked                 bool
	OnFilesystem           bool
	HasTopAncestor         bool
	InsideManualCollection bool
	VersionKey             string
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

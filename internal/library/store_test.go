package library_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"automerge/internal/catalog"
	"automerge/internal/library"
	"automerge/internal/testsupport"
)

func seed() library.Snapshot {
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

func openSeeded(t *testing.T) *library.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	testsupport.MustImport(t, store, seed())
	return store
}

func TestImportStoresLinksInBothDirections(t *testing.T) {
	store := openSeeded(t)
	ctx := context.Background()

	rec, err := store.GetRecord(ctx, "105")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec == nil || !slices.Equal(rec.AlternateVersionIDs, []string{"104"}) {
		t.Fatalf("expected reverse link on 105, got %#v", rec)
	}
	other, err := store.GetRecord(ctx, "104")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if other.VersionGroupKey != rec.VersionGroupKey {
		t.Fatalf("expected linked records to share key: %q vs %q", other.VersionGroupKey, rec.VersionGroupKey)
	}
	if !rec.OnFilesystem || !rec.HasTopAncestor || rec.LibraryID != "lib-1" {
		t.Fatalf("flags not round-tripped: %#v", rec)
	}
}

func TestGetRecordMissingReturnsNil(t *testing.T) {
	store := openSeeded(t)
	rec, err := store.GetRecord(context.Background(), "nope")
	if err != nil || rec != nil {
		t.Fatalf("GetRecord(nope) = %#v, %v", rec, err)
	}
}

func TestListRecordsFilters(t *testing.T) {
	store := openSeeded(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		query catalog.Query
		want  []string
	}{
		{"all", catalog.Query{}, []string{"101", "102", "103", "104", "105"}},
		{"library", catalog.Query{LibraryIDs: []string{"lib-2"}}, []string{"103"}},
		{"provider case-insensitive", catalog.Query{ProviderType: "tmdb", ProviderValue: "603"}, []string{"101", "102"}},
		{"provider and library", catalog.Query{LibraryIDs: []string{"lib-2"}, ProviderType: "Imdb", ProviderValue: "tt0133093"}, []string{"103"}},
		{"no match", catalog.Query{ProviderType: "Tmdb", ProviderValue: "999"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := store.ListRecords(ctx, tc.query)
			if err != nil {
				t.Fatalf("ListRecords: %v", err)
			}
			if got := catalog.RecordIDs(records); !slices.Equal(got, tc.want) && !(len(got) == 0 && len(tc.want) == 0) {
				t.Fatalf("ids = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestListLibrariesOrderedByName(t *testing.T) {
	store := openSeeded(t)
	libs, err := store.ListLibraries(context.Background())
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}
	if len(libs) != 2 || libs[0].Name != "Movies" || libs[1].Name != "Top Picks" {
		t.Fatalf("unexpected libraries: %+v", libs)
	}
}

func TestMergeRecordsIsIdempotent(t *testing.T) {
	store := openSeeded(t)
	ctx := context.Background()

	records, err := store.ListRecords(ctx, catalog.Query{ProviderType: "Tmdb", ProviderValue: "603"})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if err := store.MergeRecords(ctx, records); err != nil {
		t.Fatalf("MergeRecords: %v", err)
	}
	first, _ := store.GetRecord(ctx, "101")
	if !slices.Equal(first.AlternateVersionIDs, []string{"102"}) {
		t.Fatalf("expected 101 linked to 102, got %v", first.AlternateVersionIDs)
	}

	// Reversed order, same set.
	slices.Reverse(records)
	if err := store.MergeRecords(ctx, records); err != nil {
		t.Fatalf("second MergeRecords: %v", err)
	}
	second, _ := store.GetRecord(ctx, "101")
	if second.VersionGroupKey != first.VersionGroupKey {
		t.Fatalf("version key changed on re-merge: %q -> %q", first.VersionGroupKey, second.VersionGroupKey)
	}
	ids, err := store.RecordIDsByVersionKey(ctx, first.VersionGroupKey, "101")
	if err != nil {
		t.Fatalf("RecordIDsByVersionKey: %v", err)
	}
	if !slices.Equal(ids, []string{"102"}) {
		t.Fatalf("unexpected group members: %v", ids)
	}
}

func TestMergeRecordsLeavesOutsidersAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	snapshot := seed()
	snapshot.Movies[4].Locked = true
	testsupport.MustImport(t, store, snapshot)
	ctx := context.Background()

	before, _ := store.GetRecord(ctx, "105")
	a, _ := store.GetRecord(ctx, "104")
	b, _ := store.GetRecord(ctx, "101")
	if err := store.MergeRecords(ctx, []catalog.MovieRecord{*a, *b}); err != nil {
		t.Fatalf("MergeRecords: %v", err)
	}

	outsider, _ := store.GetRecord(ctx, "105")
	if !slices.Equal(outsider.AlternateVersionIDs, []string{"104"}) || outsider.VersionGroupKey != before.VersionGroupKey {
		t.Fatalf("locked outsider changed: before %+v after %+v", before, outsider)
	}
	merged, _ := store.GetRecord(ctx, "104")
	if !slices.Equal(merged.AlternateVersionIDs, []string{"101", "105"}) {
		t.Fatalf("expected 104 to keep its link and gain 101, got %v", merged.AlternateVersionIDs)
	}
}

func TestMergeRecordsUnknownIDFails(t *testing.T) {
	store := openSeeded(t)
	err := store.MergeRecords(context.Background(), []catalog.MovieRecord{{ID: "101"}, {ID: "ghost"}})
	var storeErr *catalog.StoreError
	if !errors.As(err, &storeErr) || !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected not-found StoreError, got %v", err)
	}
	if storeErr.ErrorKind() != "not_found" {
		t.Fatalf("unexpected kind %q", storeErr.ErrorKind())
	}
}

func TestMergeSingleRecordIsNoop(t *testing.T) {
	store := openSeeded(t)
	ctx := context.Background()
	before, _ := store.GetRecord(ctx, "103")
	if err := store.MergeRecords(ctx, []catalog.MovieRecord{*before}); err != nil {
		t.Fatalf("MergeRecords: %v", err)
	}
	after, _ := store.GetRecord(ctx, "103")
	if after.VersionGroupKey != before.VersionGroupKey {
		t.Fatal("single-record merge must not change the record")
	}
}

func TestSplitRecordDetachesOnlyThatRecord(t *testing.T) {
	store := openSeeded(t)
	ctx := context.Background()

	all, _ := store.ListRecords(ctx, catalog.Query{LibraryIDs: []string{"lib-1"}})
	var group []catalog.MovieRecord
	for _, r := range all {
		if r.ID == "101" || r.ID == "102" || r.ID == "104" {
			group = append(group, r)
		}
	}
	if err := store.MergeRecords(ctx, group); err != nil {
		t.Fatalf("MergeRecords: %v", err)
	}
	target, _ := store.GetRecord(ctx, "104")
	if err := store.SplitRecord(ctx, *target); err != nil {
		t.Fatalf("SplitRecord: %v", err)
	}

	split, _ := store.GetRecord(ctx, "104")
	if len(split.AlternateVersionIDs) != 0 {
		t.Fatalf("expected 104 standalone, got %v", split.AlternateVersionIDs)
	}
	rest, _ := store.GetRecord(ctx, "101")
	if !slices.Equal(rest.AlternateVersionIDs, []string{"102"}) {
		t.Fatalf("expected 101 still linked to 102, got %v", rest.AlternateVersionIDs)
	}
	if split.VersionGroupKey == rest.VersionGroupKey {
		t.Fatal("split record must get its own version key")
	}

	if err := store.SplitRecord(ctx, catalog.MovieRecord{ID: "ghost"}); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImportUpsertsInPlace(t *testing.T) {
	store := openSeeded(t)
	ctx := context.Background()

	snap := library.Snapshot{Movies: []catalog.MovieRecord{
		testsupport.Movie("102", "lib-1", map[string]string{"Tmdb": "700"}),
	}}
	snap.Movies[0].Locked = true
	res, err := store.Import(ctx, snap)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Movies != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	rec, _ := store.GetRecord(ctx, "102")
	if !rec.Locked || rec.ProviderIDs["Tmdb"] != "700" || len(rec.ProviderIDs) != 1 {
		t.Fatalf("record not updated: %#v", rec)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Movies != 5 || stats.Libraries != 2 || stats.MergedGroups != 1 || stats.MergedMovies != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestImportRejectsDuplicateIDs(t *testing.T) {
	store := openSeeded(t)
	snap := library.Snapshot{Movies: []catalog.MovieRecord{{ID: "x"}, {ID: "x"}}}
	if _, err := store.Import(context.Background(), snap); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestSnapshotRoundTripThroughExport(t *testing.T) {
	store := openSeeded(t)
	snap, err := store.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var buf strings.Builder
	if err := library.WriteSnapshot(&buf, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	decoded, err := library.ReadSnapshot(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(decoded.Movies) != 5 || len(decoded.Libraries) != 2 {
		t.Fatalf("unexpected decoded snapshot: %d movies, %d libraries", len(decoded.Movies), len(decoded.Libraries))
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.MustImport(t, store, seed())
	store.Close()

	reopened := testsupport.MustOpenLibrary(t, cfg)
	rec, err := reopened.GetRecord(context.Background(), "101")
	if err != nil || rec == nil {
		t.Fatalf("expected record after reopen, got %#v, %v", rec, err)
	}
}

package catalog_test

import (
	"errors"
	"slices"
	"testing"

	"automerge/internal/catalog"
)

func TestProviderIDMatchesCaseInsensitively(t *testing.T) {
	rec := catalog.MovieRecord{ProviderIDs: map[string]string{"Tmdb": "603"}}
	value, ok := rec.ProviderID("tmdb")
	if !ok || value != "603" {
		t.Fatalf("expected tmdb=603, got %q ok=%v", value, ok)
	}
	if _, ok := rec.ProviderID("imdb"); ok {
		t.Fatal("expected imdb to be absent")
	}
}

func TestQueryMatches(t *testing.T) {
	rec := catalog.MovieRecord{ID: "1", LibraryID: "lib-a", ProviderIDs: map[string]string{"tmdb": "111"}}
	cases := []struct {
		name  string
		query catalog.Query
		want  bool
	}{
		{"zero", catalog.Query{}, true},
		{"library match", catalog.Query{LibraryIDs: []string{"lib-a"}}, true},
		{"library miss", catalog.Query{LibraryIDs: []string{"lib-b"}}, false},
		{"provider match", catalog.Query{ProviderType: "TMDB", ProviderValue: "111"}, true},
		{"provider value miss", catalog.Query{ProviderType: "tmdb", ProviderValue: "112"}, false},
		{"half provider filter ignored", catalog.Query{ProviderType: "tmdb"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.query.Matches(rec); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProviderTypesSkipsBlankAndSorts(t *testing.T) {
	records := []catalog.MovieRecord{
		{ProviderIDs: map[string]string{"tmdb": "1", " ": "x"}},
		{ProviderIDs: map[string]string{"imdb": "tt1", "tmdb": "2"}},
	}
	got := catalog.ProviderTypes(records)
	if !slices.Equal(got, []string{"imdb", "tmdb"}) {
		t.Fatalf("unexpected provider types: %v", got)
	}
}

func TestWrapErrorKeepsExistingStoreError(t *testing.T) {
	base := errors.New("boom")
	wrapped := catalog.WrapError("merge", "42", base)
	var storeErr *catalog.StoreError
	if !errors.As(wrapped, &storeErr) || storeErr.ID != "42" {
		t.Fatalf("expected StoreError for id 42, got %v", wrapped)
	}
	if again := catalog.WrapError("split", "7", wrapped); again != wrapped {
		t.Fatalf("expected existing StoreError to pass through, got %v", again)
	}
	if !errors.Is(wrapped, base) {
		t.Fatal("expected wrapped error to unwrap to base")
	}
	if catalog.WrapError("x", "", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	notFound := catalog.WrapError("get", "9", catalog.ErrNotFound)
	if !errors.As(notFound, &storeErr) || storeErr.ErrorKind() != "not_found" {
		t.Fatalf("expected not_found kind, got %v", notFound)
	}
}

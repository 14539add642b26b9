package jellyfin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"automerge/internal/catalog"
	"automerge/internal/services"
	"automerge/internal/services/jellyfin"
)

type fakeServer struct {
	mu       sync.Mutex
	requests []string
	merged   []string
	split    []string
	status   int
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, items []map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"Items": items, "TotalRecordCount": len(items)})
	}
	mux.HandleFunc("GET /Library/MediaFolders", func(w http.ResponseWriter, r *http.Request) {
		write(w, []map[string]any{{"Id": "LIB-1", "Name": "Movies"}})
	})
	mux.HandleFunc("GET /Items", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("IncludeItemTypes") == "BoxSet" {
			write(w, []map[string]any{{"Id": "box-1", "Name": "Trilogy"}})
			return
		}
		items := []map[string]any{
			{
				"Id": "aaa", "Name": "Heat", "LocationType": "FileSystem", "ParentId": "lib1",
				"ProviderIds":  map[string]string{"Tmdb": "949"},
				"MediaSources": []map[string]any{{"Id": "aaa"}, {"Id": "bbb"}},
			},
			{
				"Id": "bbb", "Name": "Heat", "LocationType": "FileSystem", "ParentId": "lib1",
				"ProviderIds":  map[string]string{"Tmdb": "949"},
				"MediaSources": []map[string]any{{"Id": "bbb"}, {"Id": "aaa"}},
			},
			{
				"Id": "ccc", "Name": "Alien", "LocationType": "Virtual", "ParentId": "box-1",
				"LockData":    true,
				"ProviderIds": map[string]string{"Imdb": "tt0078748"},
			},
		}
		if ids := q.Get("Ids"); ids != "" {
			var filtered []map[string]any
			for _, it := range items {
				if it["Id"] == ids {
					filtered = append(filtered, it)
				}
			}
			items = filtered
		}
		write(w, items)
	})
	mux.HandleFunc("POST /Videos/MergeVersions", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.merged = append(f.merged, r.URL.Query().Get("Ids"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /Videos/{id}/AlternateSources", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.split = append(f.split, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Emby-Token") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			http.Error(w, "boom", status)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func newClient(t *testing.T, fake *fakeServer, key string) *jellyfin.Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return jellyfin.NewClient(srv.URL+"/", key, "", srv.Client())
}

func TestListLibrariesNormalizesIDs(t *testing.T) {
	client := newClient(t, &fakeServer{}, "secret")
	libs, err := client.ListLibraries(context.Background())
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}
	if len(libs) != 1 || libs[0].ID != "lib1" || libs[0].Name != "Movies" {
		t.Fatalf("unexpected libraries: %+v", libs)
	}
}

func TestListRecordsMapsItems(t *testing.T) {
	client := newClient(t, &fakeServer{}, "secret")
	records, err := client.ListRecords(context.Background(), catalog.Query{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	heat := records[0]
	if !heat.OnFilesystem || !heat.HasTopAncestor || heat.LibraryID != "lib1" {
		t.Fatalf("unexpected heat flags: %+v", heat)
	}
	if len(heat.AlternateVersionIDs) != 1 || heat.AlternateVersionIDs[0] != "bbb" {
		t.Fatalf("unexpected alternates: %v", heat.AlternateVersionIDs)
	}
	if heat.VersionGroupKey != "aaa" || records[1].VersionGroupKey != "aaa" {
		t.Fatalf("expected shared key aaa, got %q and %q", heat.VersionGroupKey, records[1].VersionGroupKey)
	}
	alien := records[2]
	if alien.OnFilesystem || !alien.Locked || !alien.InsideManualCollection {
		t.Fatalf("unexpected alien flags: %+v", alien)
	}
}

func TestListRecordsFiltersByProvider(t *testing.T) {
	client := newClient(t, &fakeServer{}, "secret")
	records, err := client.ListRecords(context.Background(), catalog.Query{ProviderType: "imdb", ProviderValue: "tt0078748"})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 1 || records[0].ID != "ccc" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGetRecordAndVersionKey(t *testing.T) {
	client := newClient(t, &fakeServer{}, "secret")
	ctx := context.Background()
	record, err := client.GetRecord(ctx, "bbb")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if record == nil || record.ID != "bbb" {
		t.Fatalf("unexpected record: %+v", record)
	}
	missing, err := client.GetRecord(ctx, "zzz")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for unknown id, got %+v, %v", missing, err)
	}
	ids, err := client.RecordIDsByVersionKey(ctx, "aaa", "aaa")
	if err != nil {
		t.Fatalf("RecordIDsByVersionKey: %v", err)
	}
	if len(ids) != 1 || ids[0] != "bbb" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestMergeAndSplitCallEndpoints(t *testing.T) {
	fake := &fakeServer{}
	client := newClient(t, fake, "secret")
	ctx := context.Background()
	records := []catalog.MovieRecord{{ID: "aaa"}, {ID: "bbb"}}
	if err := client.MergeRecords(ctx, records); err != nil {
		t.Fatalf("MergeRecords: %v", err)
	}
	if err := client.MergeRecords(ctx, records[:1]); err != nil {
		t.Fatalf("MergeRecords single: %v", err)
	}
	if err := client.SplitRecord(ctx, records[0]); err != nil {
		t.Fatalf("SplitRecord: %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.merged) != 1 || fake.merged[0] != "aaa,bbb" {
		t.Fatalf("unexpected merges: %v", fake.merged)
	}
	if len(fake.split) != 1 || fake.split[0] != "aaa" {
		t.Fatalf("unexpected splits: %v", fake.split)
	}
}

func TestErrorsCarryMarkers(t *testing.T) {
	client := newClient(t, &fakeServer{}, "wrong")
	_, err := client.ListLibraries(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var storeErr *catalog.StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "list libraries" {
		t.Fatalf("expected store error, got %T", err)
	}

	client = newClient(t, &fakeServer{status: http.StatusBadGateway}, "secret")
	err = client.SplitRecord(context.Background(), catalog.MovieRecord{ID: "aaa"})
	if !services.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status in message, got %v", err)
	}
}

package testsupport

import (
	"context"
	"slices"
	"sync"

	"automerge/internal/catalog"
)

// Movie builds an eligible record in library lib carrying providers.
func Movie(id, lib string, providers map[string]string, alternates ...string) catalog.MovieRecord {
	return catalog.MovieRecord{
		ID:                  id,
		Name:                "Movie " + id,
		LibraryID:           lib,
		OnFilesystem:        true,
		HasTopAncestor:      true,
		ProviderIDs:         providers,
		AlternateVersionIDs: alternates,
	}
}

// FakeStore is an in-memory catalog.Store that records every mutation.
// Merges link every pair of the given records; splits detach one record.
type FakeStore struct {
	mu        sync.Mutex
	libraries []catalog.Library
	records   map[string]catalog.MovieRecord
	order     []string

	Merges [][]string
	Splits []string

	// ListErr, MergeErr, and SplitErr are returned by the matching calls when set.
	ListErr  error
	MergeErr error
	SplitErr error
	// OnMerge runs after each successful merge with the merged ids.
	OnMerge func(ids []string)
}

var _ catalog.Store = (*FakeStore)(nil)

// NewFakeStore seeds a fake store.
func NewFakeStore(libraries []catalog.Library, records ...catalog.MovieRecord) *FakeStore {
	f := &FakeStore{
		libraries: slices.Clone(libraries),
		records:   make(map[string]catalog.MovieRecord, len(records)),
	}
	for _, r := range records {
		f.Put(r)
	}
	return f
}

// Put inserts or replaces a record.
func (f *FakeStore) Put(r catalog.MovieRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[r.ID]; !ok {
		f.order = append(f.order, r.ID)
	}
	r.AlternateVersionIDs = slices.Clone(r.AlternateVersionIDs)
	f.records[r.ID] = r
}

// Record returns the current copy of a record.
func (f *FakeStore) Record(id string) catalog.MovieRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

// MergeCount returns the number of merge calls made so far.
func (f *FakeStore) MergeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Merges)
}

func (f *FakeStore) ListLibraries(ctx context.Context) ([]catalog.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, catalog.WrapError("list libraries", "", f.ListErr)
	}
	return slices.Clone(f.libraries), nil
}

func (f *FakeStore) ListRecords(ctx context.Context, q catalog.Query) ([]catalog.MovieRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, catalog.WrapError("list records", "", f.ListErr)
	}
	var out []catalog.MovieRecord
	for _, id := range f.order {
		r := f.records[id]
		if q.Matches(r) {
			r.AlternateVersionIDs = slices.Clone(r.AlternateVersionIDs)
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeStore) GetRecord(ctx context.Context, id string) (*catalog.MovieRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *FakeStore) RecordIDsByVersionKey(ctx context.Context, key, excludeID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, id := range f.order {
		if id != excludeID && f.records[id].VersionGroupKey == key {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *FakeStore) MergeRecords(ctx context.Context, records []catalog.MovieRecord) error {
	ids := catalog.RecordIDs(records)
	f.mu.Lock()
	if f.MergeErr != nil {
		f.mu.Unlock()
		return catalog.WrapError("merge", "", f.MergeErr)
	}
	f.Merges = append(f.Merges, ids)
	sorted := slices.Sorted(slices.Values(ids))
	for _, id := range ids {
		r, ok := f.records[id]
		if !ok {
			continue
		}
		alternates := append(slices.Clone(r.AlternateVersionIDs), sorted...)
		slices.Sort(alternates)
		r.AlternateVersionIDs = slices.DeleteFunc(slices.Compact(alternates), func(other string) bool { return other == id })
		r.VersionGroupKey = sorted[0]
		f.records[id] = r
	}
	hook := f.OnMerge
	f.mu.Unlock()

	if hook != nil {
		hook(ids)
	}
	return nil
}

func (f *FakeStore) SplitRecord(ctx context.Context, record catalog.MovieRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SplitErr != nil {
		return catalog.WrapError("split", record.ID, f.SplitErr)
	}
	f.Splits = append(f.Splits, record.ID)
	r, ok := f.records[record.ID]
	if !ok {
		return catalog.WrapError("split", record.ID, catalog.ErrNotFound)
	}
	for _, other := range r.AlternateVersionIDs {
		o, ok := f.records[other]
		if !ok {
			continue
		}
		o.AlternateVersionIDs = slices.DeleteFunc(o.AlternateVersionIDs, func(id string) bool { return id == record.ID })
		f.records[other] = o
	}
	r.AlternateVersionIDs = nil
	r.VersionGroupKey = r.ID
	f.records[r.ID] = r
	return nil
}

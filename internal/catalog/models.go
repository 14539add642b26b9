package catalog

import (
	"slices"
	"strings"
)

// Library is a top-level library container.
type Library struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MovieRecord is a read-only snapshot of one movie item in the library store.
type MovieRecord struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name"`
	LibraryID              string            `json:"library_id,omitempty"`
	Locked                 bool              `json:"locked,omitempty"`
	OnFilesystem           bool              `json:"on_filesystem"`
	HasTopAncestor         bool              `json:"has_top_ancestor"`
	InsideManualCollection bool              `json:"inside_manual_collection,omitempty"`
	ProviderIDs            map[string]string `json:"provider_ids,omitempty"`
	VersionGroupKey        string            `json:"version_group_key,omitempty"`
	AlternateVersionIDs    []string          `json:"alternate_version_ids,omitempty"`
}

// ProviderID returns the value stored for providerType. Provider names are
// matched case-insensitively because Emby and Jellyfin disagree on casing.
func (r MovieRecord) ProviderID(providerType string) (string, bool) {
	if value, ok := r.ProviderIDs[providerType]; ok {
		return value, true
	}
	for key, value := range r.ProviderIDs {
		if strings.EqualFold(key, providerType) {
			return value, true
		}
	}
	return "", false
}

// HasAlternateVersions reports whether the record is linked to other versions.
func (r MovieRecord) HasAlternateVersions() bool {
	return len(r.AlternateVersionIDs) > 0
}

// IsAlternateOf reports whether id is one of the record's alternate versions.
func (r MovieRecord) IsAlternateOf(id string) bool {
	return slices.Contains(r.AlternateVersionIDs, id)
}

// Query selects movie records from a store. The zero value lists every movie
// in every library.
type Query struct {
	// LibraryIDs restricts results to movies under these libraries.
	LibraryIDs []string
	// ProviderType and ProviderValue restrict results to movies carrying the
	// given provider id. Both must be set for the filter to apply.
	ProviderType  string
	ProviderValue string
}

// HasProviderFilter reports whether the query filters on a provider id.
func (q Query) HasProviderFilter() bool {
	return strings.TrimSpace(q.ProviderType) != "" && strings.TrimSpace(q.ProviderValue) != ""
}

// Matches applies the query to a record. Backends that cannot push a filter
// down use it to filter client-side.
func (q Query) Matches(r MovieRecord) bool {
	if len(q.LibraryIDs) > 0 && !slices.Contains(q.LibraryIDs, r.LibraryID) {
		return false
	}
	if q.HasProviderFilter() {
		value, ok := r.ProviderID(strings.TrimSpace(q.ProviderType))
		if !ok || value != strings.TrimSpace(q.ProviderValue) {
			return false
		}
	}
	return true
}

// RecordIDs returns the ids of records in input order.
func RecordIDs(records []MovieRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// ProviderTypes returns the distinct non-blank provider names present across
// records, sorted.
func ProviderTypes(records []MovieRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for key := range r.ProviderIDs {
			if strings.TrimSpace(key) == "" {
				continue
			}
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}

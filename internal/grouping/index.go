package grouping

import (
	"maps"
	"slices"
	"strings"

	"automerge/internal/catalog"
)

// Bucket holds the records sharing one equivalence key.
type Bucket struct {
	Key     Key
	Members []catalog.MovieRecord
}

// Index is the set of shared-key buckets for one scope.
type Index struct {
	// Providers lists the provider types that were indexed, lower-cased.
	Providers []string
	// Buckets holds candidate buckets ordered by key.
	Buckets []Bucket
	// Linked holds buckets of two or more records that are already linked to
	// each other. They still connect classes.
	Linked []Bucket
	// AlreadyMerged counts the Linked buckets.
	AlreadyMerged int
}

// BuildIndex buckets records by equivalence key for every allowed provider
// type present. Provider types compare case-insensitively. Buckets with one
// record are dropped, the rest are split into candidates and linked buckets.
func BuildIndex(records []catalog.MovieRecord, allow AllowList) Index {
	var idx Index
	providers := make(map[string]struct{})
	buckets := make(map[Key][]catalog.MovieRecord)
	for _, r := range records {
		for _, key := range RecordKeys(r, allow) {
			members := buckets[key]
			if n := len(members); n > 0 && members[n-1].ID == r.ID {
				continue
			}
			buckets[key] = append(members, r)
			providers[key.ProviderType()] = struct{}{}
		}
	}
	idx.Providers = slices.Sorted(maps.Keys(providers))

	for key, members := range buckets {
		if len(members) < 2 {
			continue
		}
		bucket := Bucket{Key: key, Members: members}
		if NeedsMerge(members) {
			idx.Buckets = append(idx.Buckets, bucket)
			continue
		}
		idx.Linked = append(idx.Linked, bucket)
	}
	idx.AlreadyMerged = len(idx.Linked)
	byKey := func(a, b Bucket) int {
		return strings.Compare(string(a.Key), string(b.Key))
	}
	slices.SortFunc(idx.Buckets, byKey)
	slices.SortFunc(idx.Linked, byKey)
	return idx
}

// NeedsMerge reports whether a bucket's members are not yet linked to each
// other. A single record never needs a merge; a larger bucket needs one
// unless every member already lists every other member as an alternate
// version.
func NeedsMerge(members []catalog.MovieRecord) bool {
	if len(members) < 2 {
		return false
	}
	for _, m := range members {
		for _, other := range members {
			if other.ID == m.ID {
				continue
			}
			if !m.IsAlternateOf(other.ID) {
				return true
			}
		}
	}
	return false
}

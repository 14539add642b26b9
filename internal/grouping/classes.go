package grouping

import (
	"slices"
	"strings"

	"automerge/internal/catalog"
)

// Class is one set of records that are the same logical movie. Members are
// ordered by id and Keys lists every equivalence key resolving to the class.
type Class struct {
	Keys    []Key
	Members []catalog.MovieRecord
}

// IDs returns the member ids in order.
func (c Class) IDs() []string {
	return catalog.RecordIDs(c.Members)
}

// Size returns the member count.
func (c Class) Size() int {
	return len(c.Members)
}

// Label returns a stable name for logs: the first key of the class.
func (c Class) Label() string {
	if len(c.Keys) == 0 {
		return ""
	}
	return string(c.Keys[0])
}

// BuildClasses joins every shared-key bucket of the index, linked or not,
// into connected components, so a chain of shared keys across provider types
// ends in one class. Only classes whose members are not all linked to each
// other are returned.
func BuildClasses(idx Index) []Class {
	ds := newDisjointSet()
	records := make(map[string]catalog.MovieRecord)
	anchor := make(map[string]Key)

	for _, bucket := range slices.Concat(idx.Buckets, idx.Linked) {
		ds.add(bucket.Key)
		for _, member := range bucket.Members {
			records[member.ID] = member
			if _, ok := anchor[member.ID]; !ok {
				anchor[member.ID] = bucket.Key
			}
			ds.union(bucket.Key, anchor[member.ID])
		}
	}

	members := make(map[Key][]catalog.MovieRecord)
	for id, key := range anchor {
		root := ds.find(key)
		members[root] = append(members[root], records[id])
	}
	keys := make(map[Key][]Key)
	for _, key := range ds.keys() {
		root := ds.find(key)
		keys[root] = append(keys[root], key)
	}

	classes := make([]Class, 0, len(members))
	for root, recs := range members {
		if !NeedsMerge(recs) {
			continue
		}
		slices.SortFunc(recs, func(a, b catalog.MovieRecord) int {
			return strings.Compare(a.ID, b.ID)
		})
		classKeys := keys[root]
		slices.Sort(classKeys)
		classes = append(classes, Class{Keys: classKeys, Members: recs})
	}
	slices.SortFunc(classes, func(a, b Class) int {
		return strings.Compare(a.Members[0].ID, b.Members[0].ID)
	})
	return classes
}

// Partition runs the index and class builder over already filtered records.
func Partition(records []catalog.MovieRecord, allow AllowList) []Class {
	return BuildClasses(BuildIndex(records, allow))
}

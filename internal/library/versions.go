package library

import (
	"encoding/hex"
	"slices"

	"github.com/spaolacci/murmur3"
)

// versionKey derives the group key for a set of record ids. The ids are
// sorted and deduplicated first, so any ordering of one set yields one key.
func versionKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	h := murmur3.New128()
	for _, id := range sorted {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{0})
	}
	return "v" + hex.EncodeToString(h.Sum(nil))
}

// standaloneKey is the version key of a record that is not merged.
func standaloneKey(id string) string {
	return versionKey([]string{id})
}

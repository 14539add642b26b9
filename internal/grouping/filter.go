package grouping

import "automerge/internal/catalog"

// SkipReason explains why a record was not eligible for grouping.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipLocked           SkipReason = "locked"
	SkipNotOnFilesystem  SkipReason = "not_on_filesystem"
	SkipNoTopAncestor    SkipReason = "no_top_ancestor"
	SkipManualCollection SkipReason = "manual_collection"
)

// Skipped pairs an excluded record with the rule that excluded it.
type Skipped struct {
	Record catalog.MovieRecord
	Reason SkipReason
}

// Eligible applies the exclusion rules in order and returns the first that
// matches. Locks are only considered when respectLocks is set.
func Eligible(r catalog.MovieRecord, respectLocks bool) (bool, SkipReason) {
	if respectLocks && r.Locked {
		return false, SkipLocked
	}
	switch {
	case !r.OnFilesystem:
		return false, SkipNotOnFilesystem
	case !r.HasTopAncestor:
		return false, SkipNoTopAncestor
	case r.InsideManualCollection:
		return false, SkipManualCollection
	}
	return true, SkipNone
}

// FilterEligible splits records into those eligible for grouping and those
// excluded, preserving input order in both.
func FilterEligible(records []catalog.MovieRecord, respectLocks bool) ([]catalog.MovieRecord, []Skipped) {
	eligible := make([]catalog.MovieRecord, 0, len(records))
	var skipped []Skipped
	for _, r := range records {
		if ok, reason := Eligible(r, respectLocks); !ok {
			skipped = append(skipped, Skipped{Record: r, Reason: reason})
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible, skipped
}

package grouping

import "automerge/internal/catalog"

// SplitCandidates returns the eligible records that currently have alternate
// versions. With respectLocks set, groups touching a locked record are
// removed through ExcludeLockedGroups.
func SplitCandidates(records []catalog.MovieRecord, respectLocks bool) (kept, excluded []catalog.MovieRecord) {
	linked := make([]catalog.MovieRecord, 0, len(records))
	for _, r := range records {
		if ok, _ := Eligible(r, false); !ok || !r.HasAlternateVersions() {
			continue
		}
		linked = append(linked, r)
	}
	if !respectLocks {
		return linked, nil
	}
	return ExcludeLockedGroups(linked)
}

// ExcludeLockedGroups drops every record connected to a locked record. The
// alternates of locked records form the protected set; a record is dropped
// when its own id is protected or any of its alternates is. Protection
// follows recorded links one hop from the locked record's alternates and
// does not walk longer chains.
func ExcludeLockedGroups(records []catalog.MovieRecord) (kept, excluded []catalog.MovieRecord) {
	protected := make(map[string]struct{})
	for _, r := range records {
		if !r.Locked {
			continue
		}
		for _, id := range r.AlternateVersionIDs {
			protected[id] = struct{}{}
		}
	}
	if len(protected) == 0 {
		return records, nil
	}

	kept = make([]catalog.MovieRecord, 0, len(records))
	for _, r := range records {
		if isProtected(r, protected) {
			excluded = append(excluded, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, excluded
}

func isProtected(r catalog.MovieRecord, protected map[string]struct{}) bool {
	if r.Locked {
		return true
	}
	if _, ok := protected[r.ID]; ok {
		return true
	}
	for _, id := range r.AlternateVersionIDs {
		if _, ok := protected[id]; ok {
			return true
		}
	}
	return false
}

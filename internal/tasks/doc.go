// Package tasks runs the merge and split tasks against a catalog.Store.
//
// MergeTask resolves the library scopes, filters and partitions the records
// with the grouping package, and issues one merge per equivalence class.
// SplitTask reverses merges in bulk or for one provider id. Each task owns a
// Guard so overlapping invocations of the same kind become no-ops, and every
// run reports an Outcome rather than panicking or returning bare errors.
package tasks

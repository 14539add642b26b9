// Package catalog defines the movie records the merge engine reads and the
// Store contract every library backend implements.
//
// Records are snapshots: the engine never mutates them directly. All identity
// changes happen through Store.MergeRecords and Store.SplitRecord, which leaves
// the backend as the single owner of persisted version links.
package catalog

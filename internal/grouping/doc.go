// Package grouping computes which movie records are the same logical title.
//
// Records are first filtered for eligibility, then bucketed by equivalence
// key (lower-cased provider type plus provider value). Every shared-key
// bucket is joined into classes through a disjoint-set over keys: a record
// carrying two keys connects both buckets. Classes whose members are already
// linked to each other are dropped; each remaining Class is one merge action.
//
// The package also selects records for splitting, including the lock
// propagation rule that keeps locked groups intact.
//
// Everything here is pure. Callers own store access, logging, and progress.
package grouping

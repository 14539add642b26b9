// Package preflight provides readiness checks for the catalog backend and
// the filesystem paths automerge depends on.
//
// The daemon runs RunAll at startup and logs failures; "automerge doctor"
// prints the same results as a table. A catalog check that fails means every
// merge and split will fail until it is fixed.
package preflight

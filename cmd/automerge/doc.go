// Package main hosts the automerge CLI entrypoint and command graph.
//
// The Cobra-based command tree merges and splits movie versions, either by
// asking a running daemon over its HTTP API or, when no daemon answers, by
// running the task in-process against the configured catalog. It also
// previews merge groups, imports and exports SQLite catalog snapshots, runs
// preflight checks, and scaffolds configuration.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main

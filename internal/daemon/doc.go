// Package daemon coordinates the long-running automerge process.
//
// It wires configuration, the catalog store, and the merge and split tasks
// into a single lifecycle with flock-based locking to prevent two daemons from
// sharing a state directory. While running it merges on a fixed interval when
// one is configured, watches the catalog for newly added movies and merges
// shortly after they appear, and serves a small HTTP API for status, task
// triggers, and targeted splits.
//
// Keep orchestration here: grouping and store logic live in their own
// packages while the daemon focuses on startup, shutdown, and scheduling.
package daemon

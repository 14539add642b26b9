// Package api defines wire-format types and converters for the daemon HTTP
// API. It translates task metadata, run outcomes, and merge plans into
// transport-friendly DTOs so the CLI and other consumers can render them
// without coupling to internal types.
//
// # Key Types
//
// DaemonStatus: running state, backend, lock path, and per-task status.
//
// TaskStatus: localized task metadata plus the last run summary.
//
// RunSummary: one task run with its run id, trigger, progress, and outcome.
//
// Group: one equivalence class a merge would consolidate.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors travel as strings; callers that need classification use the status
// code of the HTTP response instead.
package api

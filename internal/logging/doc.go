// Package logging assembles the structured slog loggers used across automerge.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys, and context helpers so task code can tag every line
// with the run id and task name without threading attributes by hand. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging

// Package notifications pushes task results to ntfy.
//
// The default implementation publishes to the topic configured under
// [notifications] and degrades to a no-op when no topic is set. Events cover
// finished merge and split runs, failures, and a test message so the daemon
// and CLI share one formatting path.
package notifications

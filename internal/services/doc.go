// Package services defines shared utilities consumed by the catalog
// integrations that talk to external media servers.
//
// It provides structured error markers plus the Wrap helper so adapter
// failures carry the operation that failed and can be classified (transient,
// configuration, not found) by callers without string matching.
package services

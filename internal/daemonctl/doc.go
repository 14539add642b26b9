// Package daemonctl lets the CLI find, start, query, and stop a running
// automerge daemon through its HTTP API.
package daemonctl

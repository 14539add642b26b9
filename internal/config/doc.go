// Package config loads, normalizes, and validates automerge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// JELLYFIN_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: where state lives, which catalog backend to talk to, and the merge
// policy the tasks apply.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider lists, and clear validation errors.
package config

// Package jellyfin implements catalog.Store against a Jellyfin or Emby server.
//
// Libraries come from the media folders endpoint and movies from the items
// endpoint, one library at a time so every record knows its owner. Alternate
// versions are read from each movie's media sources. Merges and splits use the
// server's own MergeVersions and AlternateSources endpoints, so the server
// stays the source of truth and nothing is cached between calls.
package jellyfin

// Package library persists a movie catalog in SQLite and implements
// catalog.Store on top of it.
//
// Libraries, movies, their provider ids, and alternate-version links live in
// one database file under the state directory. Merging a set of records links
// every pair and stamps them with a version key derived from the sorted member
// ids, so merging the same set twice leaves the database unchanged. Snapshots
// exported from a media server can be loaded with Import, which upserts.
package library

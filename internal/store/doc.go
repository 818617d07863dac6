// Package store provides file-based persistence for the watch-list.
//
// The watch-list is one JSON document under the configured home directory.
// Writes go through a temp file and a rename, so a crash mid-write leaves the
// previous version in place. All methods are concurrency-safe via internal
// locking.
package store

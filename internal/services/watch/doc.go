// Package watch keeps a persisted list of scripts in step with an Electrum
// server.
//
// Entries live in a domain.WatchStore. Sync subscribes every entry in one
// batch and records the returned statuses; Listen then follows scripthash
// notifications and reports each status change.
package watch

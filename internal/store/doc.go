// Package store provides persistence backends for fact tables.
//
// The engine serializes its whole non-computed fact table into one string
// blob and hands it to a Backend under a single key. A Backend is a plain
// string key/value store; it never interprets the blob.
//
// Three backends are provided:
//   - Memory: map-backed, for tests and the scenario harness
//   - SQLite: a single blobs table in a WAL-mode database (mattn/go-sqlite3)
//   - Badger: an embedded BadgerDB instance, on disk or in memory
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: Tracks applied schema migrations
package store

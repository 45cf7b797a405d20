// Package history persists completed conversation turns.
//
// A Store appends one record per turn. Backends are interchangeable and chosen
// by configuration:
//
//   - discard: accepts and drops every turn
//   - jsonl: one JSON object per line in an append-only file
//   - sqlite: one row per turn in the chat_history table
//   - memory: process-local, for development and tests
//
// Stores that can read back history also implement Reader; stores that
// support retention implement Pruner. Every backend serializes its own writes,
// so a single Store is safe for concurrent use.
//
// All failures are reported as *StorageError.
package history

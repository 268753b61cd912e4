// Package storage provides the storage engine for dblite.
//
// The engine owns the in-memory store and the snapshot manager:
//
//   - Memory Store: the key space, guarded by one exclusive lock
//   - Snapshot: SAVE and RESTORE to files under the data directory
//   - Sweeper: optional background purge of expired keys
//
// SAVE and RESTORE run entirely under the store lock, so no client ever
// observes a partially written snapshot or a store mid-restore.
package storage

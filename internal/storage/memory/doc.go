// Package memory provides the in-memory storage engine for dblite.
//
// The Store owns the key to entry mapping and exposes type-checked
// operations for the four value kinds (string, list, hash, set).
//
// Thread Safety:
//
// Every operation runs under a single exclusive lock, so multi-argument
// operations (LPush, SAdd) and type checks are observed atomically by all
// callers. Dump and Load hold the same lock for their whole duration.
//
// Expiry:
//
// Expiry instants are absolute. Each operation first removes the key it
// touches if its expiry is at or before the current time, so an expired
// key is never observed. SweepExpired applies the same predicate to the
// whole store and is driven periodically by the storage engine.
package memory

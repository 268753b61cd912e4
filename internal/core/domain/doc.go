// Package domain defines the core data model of dblite.
//
// Domain types are pure values without any IO dependencies or framework
// coupling. This package contains:
//
//   - Value: tagged variant holding a string, list, hash or set
//   - Entry: a Value plus an optional absolute expiry instant
//   - Errors: domain error codes shared by storage, dispatcher and codec
//
// Values stored in the engine are never aliased outside of it; callers
// receive deep copies produced by Clone.
package domain

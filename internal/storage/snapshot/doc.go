// Package snapshot implements the point-in-time persistence format used
// by SAVE and RESTORE.
//
// File layout:
//
//	magic    "DBLSNAP\x00"                 8 bytes
//	hdrLen   uint32 big endian              4 bytes
//	header   JSON (version, created_at, entry_count, encryption params)
//	bodyLen  uint64 big endian              8 bytes
//	body     entry stream, optionally AEAD encrypted with the header as
//	         additional data
//	checksum sha256 over everything above  32 bytes
//
// Entry stream:
//
//	uvarint count
//	repeat count times:
//	  uvarint keyLen, key
//	  byte    kind (1 string, 2 list, 3 hash, 4 set)
//	  varint  remaining ttl in milliseconds, -1 for no expiry
//	  payload:
//	    string  uvarint len, bytes
//	    list    uvarint n, n strings front to back
//	    hash    uvarint n, n field/value string pairs
//	    set     uvarint n, n strings
//
// Decoding is purely structural. Every length is checked against the
// remaining input before allocation, so a hostile file can at worst be
// rejected.
package snapshot

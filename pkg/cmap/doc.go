// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread across shards with MurmurHash3 using a per-map random
// seed. The RESP server keeps its live connection registry here so that
// accept, close and shutdown do not contend on one lock.
package cmap

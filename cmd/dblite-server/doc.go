// Package main provides the entry point for dblite-server.
//
// dblite-server serves an in-memory key-value store over RESP on TCP,
// optional TLS and an optional unix socket, with an admin HTTP endpoint
// for health, metrics and snapshots.
//
// Usage:
//
//	dblite-server [flags]
//	dblite-server --config /etc/dblite/server.yaml
//	dblite-server keygen
//
// Configuration is layered: defaults, the YAML file, a dotenv file,
// DBLITE_* environment variables, then flags.
package main

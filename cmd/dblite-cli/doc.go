// Package main provides the entry point for dblite-cli.
//
// dblite-cli runs single commands (dblite-cli set k v) or, with no
// arguments, an interactive session against a dblite server.
package main

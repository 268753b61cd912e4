// Package connection is the dblite client library used by dblite-cli.
//
// Client speaks the RESP protocol from pkg/resp over TCP, TLS or a unix
// socket and exposes one method per server command. Manager holds the
// lazily dialed client shared by the CLI commands and the REPL.
package connection

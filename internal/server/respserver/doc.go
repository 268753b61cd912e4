// Package respserver serves the dblite command set over the RESP wire
// protocol.
//
// The server accepts TCP (optionally TLS) and unix socket connections and
// runs one goroutine per connection. Each goroutine reads a request frame,
// hands it to the Dispatcher, writes the reply and repeats until QUIT,
// disconnect or a protocol error that leaves the stream desynchronized.
//
// Two execution modes are supported:
//
//   - threaded: commands run on the connection goroutine.
//   - eventloop: commands are queued to a single executor goroutine and
//     run strictly one after another; connection goroutines only do I/O.
//
// Both modes go through the same store lock, so clients cannot tell them
// apart. Admission is bounded by MaxClients and an optional per-IP command
// rate.
package respserver

// Package command defines dblite-cli's commands.
//
// Each data command maps to one server command and prints its result
// through the output formatter chosen with --output. Running the binary
// with no arguments starts the interactive REPL; arguments that are not a
// known subcommand are sent to the server verbatim.
package command

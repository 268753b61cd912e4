// Package repl implements dblite-cli's interactive mode.
//
// Each input line is split into arguments (single and double quotes
// group words, backslash escapes work inside double quotes) and sent to
// the server as one command. Replies are printed in the usual
// "(integer) 1" / numbered-list style. "help [prefix]" lists commands,
// "exit" leaves, and "quit" also closes the server connection.
package repl

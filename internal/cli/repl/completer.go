package repl

import (
	"sort"
	"strings"
)

// localCommands are handled by the REPL itself.
var localCommands = []string{"exit", "help"}

// Completer matches command names by prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over the server commands plus the
// REPL's own commands.
func NewCompleter(serverCommands []string) *Completer {
	seen := make(map[string]struct{})
	var cmds []string
	for _, c := range append(append([]string{}, serverCommands...), localCommands...) {
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cmds = append(cmds, c)
	}
	sort.Strings(cmds)
	return &Completer{commands: cmds}
}

// Complete returns the commands starting with prefix, case-insensitively.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}

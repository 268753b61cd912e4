package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/dblite-go/pkg/resp"
)

// Executor sends one command and returns its reply.
type Executor interface {
	Do(ctx context.Context, args ...string) (resp.Value, error)
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	exec      Executor
	input     io.Reader
	output    io.Writer
	prompt    string
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithPrompt sets the prompt; it defaults to "dblite> ".
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// New creates a REPL that sends commands through exec. commands feeds
// "help" and completion.
func New(exec Executor, commands []string, opts ...Option) *REPL {
	r := &REPL{
		exec:      exec,
		input:     strings.NewReader(""),
		output:    io.Discard,
		prompt:    "dblite> ",
		completer: NewCompleter(commands),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, "exit", "quit" or ctx is done. Reply errors
// are printed and the loop goes on; transport errors end it.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		done, err := r.execute(ctx, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// execute runs one line. It reports whether the session should end.
func (r *REPL) execute(ctx context.Context, line string) (bool, error) {
	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "(error) %v\n", err)
		return false, nil
	}
	if len(args) == 0 {
		return false, nil
	}

	switch strings.ToLower(args[0]) {
	case "exit":
		return true, nil
	case "help":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		for _, c := range r.completer.Complete(prefix) {
			fmt.Fprintln(r.output, c)
		}
		return false, nil
	}

	v, err := r.exec.Do(ctx, args...)
	var replyErr *resp.ReplyError
	if errors.As(err, &replyErr) {
		fmt.Fprintf(r.output, "(error) %s\n", replyErr.Msg)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	fmt.Fprintln(r.output, FormatValue(v))
	return strings.EqualFold(args[0], "quit") || strings.EqualFold(args[0], "shutdown"), nil
}

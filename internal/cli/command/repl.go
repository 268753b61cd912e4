package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/cli/config"
	"github.com/yndnr/dblite-go/internal/cli/repl"
	"github.com/yndnr/dblite-go/internal/server/respserver"
)

func replCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "start an interactive session",
		Action: runREPL,
	}
}

func runREPL(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("not initialized")
	}

	historyFile := config.DefaultHistoryPath()
	if cfg := GetConfig(c); cfg != nil && cfg.HistoryFile != "" {
		historyFile = cfg.HistoryFile
	}

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	r := repl.New(mgr, respserver.Commands(),
		repl.WithIO(in, writer(c)),
		repl.WithPrompt(mgr.Addr()+"> "),
		repl.WithHistory(repl.NewHistory(historyFile)),
	)
	return r.Run(c.Context)
}

// rawOrREPL sends the arguments as one server command, or starts the
// REPL when there are none.
func rawOrREPL(c *cli.Context) error {
	if c.NArg() == 0 {
		return runREPL(c)
	}

	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("not initialized")
	}
	timeout := timeoutOr(0)
	if cfg := GetConfig(c); cfg != nil {
		timeout = timeoutOr(cfg.Timeout)
	}
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	defer cancel()

	v, err := mgr.Do(ctx, c.Args().Slice()...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writer(c), repl.FormatValue(v))
	return err
}

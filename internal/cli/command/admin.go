package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/cli/connection"
)

func saveCommand() *cli.Command {
	return dataCommand("save", "write a snapshot file in the server data directory", "NAME", 1, 1,
		func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
			return "OK", cl.Save(ctx, a[0])
		})
}

func restoreCommand() *cli.Command {
	return dataCommand("restore", "replace the server contents with a snapshot file", "NAME", 1, 1,
		func(ctx context.Context, cl *connection.Client, a []string) (any, error) {
			return "OK", cl.Restore(ctx, a[0])
		})
}

func infoCommand() *cli.Command {
	return dataCommand("info", "show server statistics", "", 0, 0,
		func(ctx context.Context, cl *connection.Client, _ []string) (any, error) {
			return cl.Info(ctx)
		})
}

func shutdownCommand() *cli.Command {
	return &cli.Command{
		Name:  "shutdown",
		Usage: "stop the server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "do not ask for confirmation",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") && !confirm(c, "Stop the server at "+GetConnectionManager(c).Addr()+"?") {
				return fmt.Errorf("aborted")
			}
			cl, ctx, cancel, err := client(c)
			if err != nil {
				return err
			}
			defer cancel()

			if err := cl.Shutdown(ctx); err != nil {
				return err
			}
			return render(c, "OK")
		},
	}
}

// confirm asks a yes/no question on the app's reader.
func confirm(c *cli.Context, question string) bool {
	fmt.Fprintf(writer(c), "%s [y/N] ", question)
	var answer string
	if _, err := fmt.Fscanln(c.App.Reader, &answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}

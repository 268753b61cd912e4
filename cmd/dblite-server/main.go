package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/infra/buildinfo"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "dblite-server",
		Usage:   "in-memory key-value server speaking RESP",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", EnvVars: []string{"DBLITE_CONFIG"}},
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file with DBLITE_* variables"},
			&cli.StringFlag{Name: "host", Aliases: []string{"H"}, Usage: "RESP listen host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "RESP listen port"},
			&cli.StringFlag{Name: "mode", Usage: "command scheduling: threaded or eventloop"},
			&cli.StringFlag{Name: "data-dir", Usage: "directory for snapshot files"},
			&cli.DurationFlag{Name: "sweep-interval", Usage: "period of the background expiry sweep (0 disables)"},
			&cli.StringFlag{Name: "http", Usage: "enable the admin HTTP endpoint on this address"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
		},
		Action: func(c *cli.Context) error {
			cfg, loader, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(c.Context, cfg, loader.FilePath())
		},
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "print a new random snapshot encryption key",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "bytes", Value: 32, Usage: "key length: 16, 24 or 32"},
				},
				Action: keygen,
			},
		},
	}
}

func keygen(c *cli.Context) error {
	n := c.Int("bytes")
	if n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("--bytes must be 16, 24 or 32")
	}
	key, err := snapshot.GenerateKey(n)
	if err != nil {
		return err
	}
	defer snapshot.ZeroKey(key)
	_, err = fmt.Fprintln(c.App.Writer, snapshot.EncodeKey(key))
	return err
}

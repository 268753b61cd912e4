package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/cli/config"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect or persist CLI settings",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "print the effective settings",
				Action: configShow,
			},
			{
				Name:   "save",
				Usage:  "write the effective settings to the config file",
				Action: configSave,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg := GetConfig(c)
	if cfg == nil {
		return fmt.Errorf("not initialized")
	}
	return render(c, map[string]string{
		"host":         cfg.Host,
		"port":         strconv.Itoa(cfg.Port),
		"output":       cfg.Output,
		"timeout":      cfg.Timeout.String(),
		"history_file": cfg.HistoryFile,
		"config_file":  c.String("config"),
	})
}

func configSave(c *cli.Context) error {
	cfg := GetConfig(c)
	if cfg == nil {
		return fmt.Errorf("not initialized")
	}
	path := c.String("config")
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	_, err := fmt.Fprintf(writer(c), "saved %s\n", path)
	return err
}

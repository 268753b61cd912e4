package command

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/cli/config"
	"github.com/yndnr/dblite-go/internal/cli/connection"
	"github.com/yndnr/dblite-go/internal/cli/output"
	"github.com/yndnr/dblite-go/internal/infra/buildinfo"
	"github.com/yndnr/dblite-go/internal/infra/tlsroots"
)

const (
	metaConfig  = "config"
	metaManager = "connMgr"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "dblite-cli",
		Usage:                "command-line client for dblite",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: append(dataCommands(),
			saveCommand(),
			restoreCommand(),
			infoCommand(),
			shutdownCommand(),
			replCommand(),
			configCommand(),
		),
		Before: setup,
		After:  teardown,
		Action: rawOrREPL,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"DBLITE_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "server host, or unix:/path for a unix socket",
			EnvVars: []string{"DBLITE_HOST"},
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"DBLITE_PORT"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			EnvVars: []string{"DBLITE_OUTPUT"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "per-request timeout",
			EnvVars: []string{"DBLITE_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect over TLS",
		},
		&cli.StringFlag{
			Name:  "tls-ca",
			Usage: "PEM file with the CA that signed the server certificate",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
	}
}

// resolveConfig layers flags and environment over the config file.
func resolveConfig(c *cli.Context) (*config.CLIConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if _, err := output.ParseFormat(cfg.Output); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func tlsConfig(c *cli.Context) (*tls.Config, error) {
	if !c.Bool("tls") {
		return nil, nil
	}
	return tlsroots.ClientConfig(c.String("tls-ca"), c.Bool("insecure"))
}

// serverAddr returns the dial address; a unix: host is used as is.
func serverAddr(cfg *config.CLIConfig) string {
	if strings.HasPrefix(cfg.Host, "unix:") {
		return cfg.Host
	}
	return cfg.Address()
}

func setup(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	tlsCfg, err := tlsConfig(c)
	if err != nil {
		return err
	}

	opts := []connection.Option{connection.WithTimeout(cfg.Timeout)}
	if tlsCfg != nil {
		opts = append(opts, connection.WithTLS(tlsCfg))
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaManager] = connection.NewManager(serverAddr(cfg), opts...)
	return nil
}

func teardown(c *cli.Context) error {
	if mgr := GetConnectionManager(c); mgr != nil {
		return mgr.Close()
	}
	return nil
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	mgr, _ := c.App.Metadata[metaManager].(*connection.Manager)
	return mgr
}

// GetConfig retrieves the resolved CLI config from context.
func GetConfig(c *cli.Context) *config.CLIConfig {
	cfg, _ := c.App.Metadata[metaConfig].(*config.CLIConfig)
	return cfg
}

// client returns the connected client and a context bounded by the
// configured timeout.
func client(c *cli.Context) (*connection.Client, context.Context, context.CancelFunc, error) {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return nil, nil, nil, fmt.Errorf("not initialized")
	}

	var timeout time.Duration
	if cfg := GetConfig(c); cfg != nil {
		timeout = cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(c.Context, timeoutOr(timeout))

	cl, err := mgr.Client(ctx)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("connect to %s: %w", mgr.Addr(), err)
	}
	return cl, ctx, cancel, nil
}

// render writes data using the configured output format.
func render(c *cli.Context, data any) error {
	format := output.FormatTable
	if cfg := GetConfig(c); cfg != nil {
		format = output.Format(cfg.Output)
	}
	return output.NewFormatter(format).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// timeoutOr returns d, or the default request timeout when d is zero.
func timeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return connection.DefaultTimeout
}

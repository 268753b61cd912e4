package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dblite-go/internal/infra/confloader"
	"github.com/yndnr/dblite-go/internal/server/config"
)

// loadConfig builds the server configuration from defaults, file, dotenv,
// environment and finally the flags that were set explicitly.
func loadConfig(c *cli.Context) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if path := c.String("env-file"); path != "" {
		opts = append(opts, confloader.WithDotEnv(path))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}

	if overrides := flagOverrides(c); len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, nil, fmt.Errorf("apply flags: %w", err)
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, nil, fmt.Errorf("apply flags: %w", err)
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// flagOverrides maps explicitly set flags to configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("host") {
		m["server.resp.host"] = c.String("host")
	}
	if c.IsSet("port") {
		m["server.resp.port"] = c.Int("port")
	}
	if c.IsSet("mode") {
		m["server.resp.mode"] = c.String("mode")
	}
	if c.IsSet("data-dir") {
		m["storage.data_dir"] = c.String("data-dir")
	}
	if c.IsSet("sweep-interval") {
		m["storage.sweep_interval"] = c.Duration("sweep-interval").String()
	}
	if c.IsSet("http") {
		m["server.http.enabled"] = true
		m["server.http.addr"] = c.String("http")
	}
	if c.Bool("debug") {
		m["log.level"] = "debug"
	}
	return m
}

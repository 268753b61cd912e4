package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// CLIConfig is the configuration for dblite-cli.
type CLIConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Output  string        `yaml:"output"` // table, json, yaml
	Timeout time.Duration `yaml:"timeout"`

	// HistoryFile is where the REPL keeps its history. Empty uses
	// ~/.dblite/history.
	HistoryFile string `yaml:"history_file,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Host:    "127.0.0.1",
		Port:    31337,
		Output:  "table",
		Timeout: 10 * time.Second,
	}
}

// Address returns host:port.
func (c *CLIConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks field ranges.
func (c *CLIConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

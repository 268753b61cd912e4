package confloader

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultEnvPrefix prefixes every environment variable the loader reads.
	DefaultEnvPrefix = "DBLITE_"

	// NestingSeparator separates path segments in environment names, so
	// DBLITE_SERVER__RESP__PORT sets server.resp.port.
	NestingSeparator = "__"
)

// Loader merges configuration layers into one koanf tree. Later layers
// win: YAML file, dotenv file, process environment, then anything added
// with LoadMap.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	dotEnv    string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file layer.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithDotEnv sets the dotenv layer. Only prefixed entries are used and the
// process environment is left untouched.
func WithDotEnv(path string) Option {
	return func(l *Loader) { l.dotEnv = path }
}

// NewLoader creates a Loader with no layers loaded.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{k: koanf.New("."), envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges the file, dotenv and environment layers and unmarshals the
// result into target. Fields absent from every layer keep their current
// value, so target normally starts out holding the defaults.
func (l *Loader) Load(target any) error {
	layers := []struct {
		name string
		load func() error
	}{
		{"config file", func() error { return l.LoadFile(l.filePath) }},
		{"dotenv", func() error { return l.LoadDotEnv(l.dotEnv) }},
		{"environment", l.LoadEnv},
	}
	for _, layer := range layers {
		if err := layer.load(); err != nil {
			return fmt.Errorf("load %s: %w", layer.name, err)
		}
	}
	return l.Unmarshal(target)
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadEnv merges the prefixed process environment.
func (l *Loader) LoadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", l.envKey), nil)
}

// LoadDotEnv merges the prefixed entries of a dotenv file. An empty path
// is a no-op.
func (l *Loader) LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	data := make(map[string]any, len(vars))
	for name, value := range vars {
		if strings.HasPrefix(name, l.envPrefix) {
			data[l.envKey(name)] = value
		}
	}
	return l.LoadMap(data)
}

// LoadMap merges a flat map of dotted keys. Command line flags use it.
func (l *Loader) LoadMap(data map[string]any) error {
	return l.k.Load(mapProvider(data), nil)
}

// Unmarshal decodes the merged tree into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// FilePath returns the YAML file layer, or "".
func (l *Loader) FilePath() string { return l.filePath }

// Keys lists the dotted keys set by any layer so far.
func (l *Loader) Keys() []string { return l.k.Keys() }

func (l *Loader) envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
	return strings.ReplaceAll(name, NestingSeparator, ".")
}

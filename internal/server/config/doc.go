// Package config defines the dblite-server configuration.
//
//   - spec.go: ServerConfig schema with koanf tags
//   - default.go: default values
//   - verify.go: validation (ports, modes, durations, TLS, encryption)
//   - sanitize.go: masking secrets before the config is logged
//
// Values are loaded with internal/infra/confloader from a YAML file, a
// dotenv file, DBLITE_ environment variables and command-line flags.
package config

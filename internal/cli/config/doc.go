// Package config holds dblite-cli's persisted defaults.
//
// The file lives at ~/.dblite/cli.yaml. Command-line flags and DBLITE_*
// environment variables override it; see the command package.
package config

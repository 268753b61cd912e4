// Package confloader provides layered configuration loading.
//
// It uses koanf to merge several sources into one tree and unmarshal it
// into a typed struct. Later sources override earlier ones:
//
//  1. Default values (the target struct before Load)
//  2. YAML configuration file
//  3. Dotenv file (KEY=VALUE lines, same names as the environment)
//  4. Environment variables
//  5. Command-line flags (LoadMap)
//
// Environment names use a prefix and a double underscore for nesting, so
// single underscores stay part of key names:
//
//	DBLITE_SERVER__RESP__MAX_CLIENTS=64  ->  server.resp.max_clients
//
// Watcher reports changes to the configuration file so callers can apply
// the settings that are safe to change at runtime.
package confloader

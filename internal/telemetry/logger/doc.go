// Package logger builds the slog loggers used by dblite.
//
// All loggers created by New share one slog.LevelVar so the config
// watcher can change verbosity at runtime. Raw encryption keys (dbk_...)
// and attributes named like secrets are masked before they reach the
// handler. HTTP middleware stores a request-scoped logger in the request
// context with WithRequest.
package logger

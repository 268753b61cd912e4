package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/dblite-go/internal/storage/snapshot"
	"github.com/yndnr/dblite-go/internal/telemetry/logger"
)

// Verify validates the configuration and creates the data directory.
// All problems found are reported together.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifySecurity(&cfg.Security),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	r := cfg.RESP

	if err := verifyPort("server.resp.port", r.Port); err != nil {
		errs = append(errs, err)
	}
	switch r.Mode {
	case "threaded", "eventloop":
	default:
		errs = append(errs, fmt.Errorf("server.resp.mode must be threaded or eventloop, got %q", r.Mode))
	}
	if r.MaxClients < 1 {
		errs = append(errs, errors.New("server.resp.max_clients must be at least 1"))
	}
	if r.RateLimit < 0 {
		errs = append(errs, errors.New("server.resp.rate_limit must not be negative"))
	}
	if r.MaxBulkLen < 0 {
		errs = append(errs, errors.New("server.resp.max_bulk_len must not be negative"))
	}
	for name, d := range map[string]int64{
		"server.resp.read_timeout":  int64(r.ReadTimeout),
		"server.resp.write_timeout": int64(r.WriteTimeout),
		"server.resp.idle_timeout":  int64(r.IdleTimeout),
		"server.shutdown_timeout":   int64(cfg.ShutdownTimeout),
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if (r.TLSCertFile == "") != (r.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.resp.tls_cert_file and tls_key_file must be set together"))
	}
	if r.TLSEnabled() {
		if err := verifyPort("server.resp.tls_port", r.TLSPort); err != nil {
			errs = append(errs, err)
		} else if r.TLSPort == r.Port && r.Port != 0 {
			errs = append(errs, errors.New("server.resp.tls_port conflicts with server.resp.port"))
		}
		for _, f := range []string{r.TLSCertFile, r.TLSKeyFile} {
			if _, err := os.Stat(f); err != nil {
				errs = append(errs, fmt.Errorf("tls file: %w", err))
			}
		}
	}

	if cfg.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.http.addr: %w", err))
		}
		if cfg.HTTP.RateLimit < 0 {
			errs = append(errs, errors.New("server.http.rate_limit must not be negative"))
		}
		for _, entry := range cfg.HTTP.AllowList {
			if !validACLEntry(entry) {
				errs = append(errs, fmt.Errorf("server.http.allow_list: %q is not an IP or CIDR", entry))
			}
		}
	}

	return errors.Join(errs...)
}

func validACLEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}

// verifyPort accepts 0 so tests can bind an ephemeral port.
func verifyPort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s must be between 0 and 65535, got %d", name, port)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if cfg.SweepInterval < 0 {
		return errors.New("storage.sweep_interval must not be negative")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.EncryptionKey == "" {
		return nil
	}
	if _, err := snapshot.ParseEncryptionKey(cfg.EncryptionKey, cfg.EncryptionAlgorithm); err != nil {
		return fmt.Errorf("security.encryption_key: %w", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch cfg.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Format))
	}
	return errors.Join(errs...)
}

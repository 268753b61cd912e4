package config

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig is the root configuration for dblite-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	RESP RESPConfig `koanf:"resp"`
	HTTP HTTPConfig `koanf:"http"`

	// ShutdownTimeout bounds how long in-flight requests may take to
	// finish once shutdown starts.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RESPConfig configures the client protocol listener.
type RESPConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Mode is "threaded" or "eventloop".
	Mode string `koanf:"mode"`

	MaxClients   int           `koanf:"max_clients"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	// MaxBulkLen caps a single request argument in bytes. 0 keeps the
	// protocol default.
	MaxBulkLen int `koanf:"max_bulk_len"`

	// TLS listener, enabled when both files are set.
	TLSPort     int    `koanf:"tls_port"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// LocalPath is an optional unix socket.
	LocalPath string `koanf:"local_path"`
}

// Address returns host:port of the plaintext listener.
func (c RESPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSEnabled reports whether a TLS listener is configured.
func (c RESPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// TLSAddress returns host:tls_port of the TLS listener.
func (c RESPConfig) TLSAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.TLSPort))
}

// HTTPConfig configures the admin HTTP endpoint.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// RateLimit is requests per second per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`

	// AllowList restricts /admin/v1/* to these IPs or CIDR blocks.
	// Empty allows every client.
	AllowList []string `koanf:"allow_list"`
}

// StorageSection configures storage behavior.
type StorageSection struct {
	// DataDir holds snapshot files. Relative SAVE/RESTORE names resolve
	// against it.
	DataDir string `koanf:"data_dir"`

	// SweepInterval is the period of the background expiry sweep.
	// 0 disables the sweep; expired keys are then only removed on access.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// EncryptionKey enables snapshot encryption. A value with the dbk_
	// prefix is a raw key, anything else a passphrase.
	EncryptionKey string `koanf:"encryption_key"`

	// EncryptionAlgorithm is "aes-gcm" or "chacha20-poly1305".
	EncryptionAlgorithm string `koanf:"encryption_algorithm"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

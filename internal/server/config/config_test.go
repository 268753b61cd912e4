package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/dblite-go/internal/infra/confloader"
)

func validConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := Default()
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if got := cfg.Server.RESP.Address(); got != "127.0.0.1:31337" {
		t.Errorf("RESP.Address() = %q, want 127.0.0.1:31337", got)
	}
	if cfg.Server.RESP.Mode != "threaded" {
		t.Errorf("RESP.Mode = %q, want threaded", cfg.Server.RESP.Mode)
	}
	if cfg.Server.RESP.MaxClients != DefaultMaxClients {
		t.Errorf("RESP.MaxClients = %d, want %d", cfg.Server.RESP.MaxClients, DefaultMaxClients)
	}
	if cfg.Server.RESP.TLSEnabled() {
		t.Error("TLS should be disabled by default")
	}
	if cfg.Server.HTTP.Enabled {
		t.Error("HTTP should be disabled by default")
	}
	if cfg.Storage.DataDir != DefaultDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.Storage.DataDir, DefaultDataDir)
	}
	if cfg.Storage.SweepInterval != time.Second {
		t.Errorf("SweepInterval = %v, want 1s", cfg.Storage.SweepInterval)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v, want %s/%s", cfg.Log, DefaultLogLevel, DefaultLogFormat)
	}
}

func TestVerify_Default(t *testing.T) {
	cfg := validConfig(t)
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(default) error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.DataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestVerify_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		want   string
	}{
		{"port too large", func(c *ServerConfig) { c.Server.RESP.Port = 70000 }, "server.resp.port"},
		{"negative port", func(c *ServerConfig) { c.Server.RESP.Port = -1 }, "server.resp.port"},
		{"unknown mode", func(c *ServerConfig) { c.Server.RESP.Mode = "gevent" }, "server.resp.mode"},
		{"no clients", func(c *ServerConfig) { c.Server.RESP.MaxClients = 0 }, "max_clients"},
		{"negative rate", func(c *ServerConfig) { c.Server.RESP.RateLimit = -5 }, "rate_limit"},
		{"negative timeout", func(c *ServerConfig) { c.Server.RESP.IdleTimeout = -time.Second }, "idle_timeout"},
		{"negative shutdown", func(c *ServerConfig) { c.Server.ShutdownTimeout = -time.Second }, "shutdown_timeout"},
		{"half tls", func(c *ServerConfig) { c.Server.RESP.TLSCertFile = "cert.pem" }, "set together"},
		{"missing tls files", func(c *ServerConfig) {
			c.Server.RESP.TLSCertFile = "/nonexistent/cert.pem"
			c.Server.RESP.TLSKeyFile = "/nonexistent/key.pem"
		}, "tls file"},
		{"bad http addr", func(c *ServerConfig) {
			c.Server.HTTP.Enabled = true
			c.Server.HTTP.Addr = "localhost"
		}, "server.http.addr"},
		{"bad allow list", func(c *ServerConfig) {
			c.Server.HTTP.Enabled = true
			c.Server.HTTP.AllowList = []string{"10.0.0.0/8", "not-an-ip"}
		}, "allow_list"},
		{"empty data dir", func(c *ServerConfig) { c.Storage.DataDir = "" }, "data_dir"},
		{"negative sweep", func(c *ServerConfig) { c.Storage.SweepInterval = -time.Second }, "sweep_interval"},
		{"weak passphrase", func(c *ServerConfig) { c.Security.EncryptionKey = "short" }, "encryption_key"},
		{"unknown cipher", func(c *ServerConfig) {
			c.Security.EncryptionKey = "a long enough passphrase"
			c.Security.EncryptionAlgorithm = "rot13"
		}, "unsupported algorithm"},
		{"bad level", func(c *ServerConfig) { c.Log.Level = "verbose" }, "log.level"},
		{"bad format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestVerify_ReportsAllProblems(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.RESP.Mode = "bogus"
	cfg.Log.Format = "xml"

	err := Verify(cfg)
	if err == nil {
		t.Fatal("Verify() should fail")
	}
	for _, want := range []string{"server.resp.mode", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Verify() error %q does not mention %q", err, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := &ServerConfig{
		Security: SecuritySection{
			EncryptionKey: "super-secret-passphrase",
		},
	}

	sanitized := Sanitize(cfg)

	if cfg.Security.EncryptionKey != "super-secret-passphrase" {
		t.Error("original config should not be modified")
	}
	got := sanitized.Security.EncryptionKey
	if got == cfg.Security.EncryptionKey {
		t.Fatal("sanitized config should mask the encryption key")
	}
	if !strings.HasPrefix(got, "su") || !strings.HasSuffix(got, "se") {
		t.Errorf("masked key = %q, want first and last two characters kept", got)
	}
}

func TestSanitize_RawKeyPrefix(t *testing.T) {
	cfg := &ServerConfig{Security: SecuritySection{EncryptionKey: "dbk_abcdefghijkl"}}
	got := Sanitize(cfg).Security.EncryptionKey
	if got != "dbk_ab********kl" {
		t.Errorf("masked key = %q, want dbk_ab********kl", got)
	}

	cfg.Security.EncryptionKey = "abc"
	if got := Sanitize(cfg).Security.EncryptionKey; got != "****" {
		t.Errorf("short key masked as %q, want ****", got)
	}

	cfg.Security.EncryptionKey = ""
	if got := Sanitize(cfg).Security.EncryptionKey; got != "" {
		t.Errorf("empty key masked as %q, want empty", got)
	}
}

func TestLoad_FromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  resp:
    port: 7000
    mode: eventloop
  http:
    enabled: true
storage:
  sweep_interval: 250ms
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DBLITE_SERVER__RESP__MAX_CLIENTS", "8")

	cfg := Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.RESP.Port != 7000 || cfg.Server.RESP.Mode != "eventloop" {
		t.Errorf("RESP = %+v, want port 7000 in eventloop mode", cfg.Server.RESP)
	}
	if cfg.Server.RESP.MaxClients != 8 {
		t.Errorf("MaxClients = %d, want 8 from env", cfg.Server.RESP.MaxClients)
	}
	if cfg.Server.RESP.Host != DefaultHost {
		t.Errorf("Host = %q, want default %q", cfg.Server.RESP.Host, DefaultHost)
	}
	if !cfg.Server.HTTP.Enabled {
		t.Error("HTTP should be enabled from file")
	}
	if cfg.Storage.SweepInterval != 250*time.Millisecond {
		t.Errorf("SweepInterval = %v, want 250ms", cfg.Storage.SweepInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

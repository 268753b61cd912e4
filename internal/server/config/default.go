package config

import "time"

// Default configuration values.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 31337
	DefaultTLSPort      = 31339
	DefaultMode         = "threaded"
	DefaultMaxClients   = 1024
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute

	DefaultHTTPAddr = "127.0.0.1:31338"

	DefaultShutdownTimeout = 10 * time.Second

	DefaultDataDir       = "./data"
	DefaultSweepInterval = time.Second

	DefaultEncryptionAlgorithm = "aes-gcm"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			RESP: RESPConfig{
				Host:         DefaultHost,
				Port:         DefaultPort,
				TLSPort:      DefaultTLSPort,
				Mode:         DefaultMode,
				MaxClients:   DefaultMaxClients,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
			},
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			DataDir:       DefaultDataDir,
			SweepInterval: DefaultSweepInterval,
		},
		Security: SecuritySection{
			EncryptionAlgorithm: DefaultEncryptionAlgorithm,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

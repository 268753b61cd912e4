package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/yndnr/dblite-go/internal/infra/buildinfo"
	"github.com/yndnr/dblite-go/internal/infra/confloader"
	"github.com/yndnr/dblite-go/internal/infra/shutdown"
	"github.com/yndnr/dblite-go/internal/infra/tlsroots"
	"github.com/yndnr/dblite-go/internal/server/config"
	"github.com/yndnr/dblite-go/internal/server/httpserver"
	"github.com/yndnr/dblite-go/internal/server/respserver"
	"github.com/yndnr/dblite-go/internal/storage"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
	"github.com/yndnr/dblite-go/internal/telemetry/logger"
	"github.com/yndnr/dblite-go/internal/telemetry/metric"
	"github.com/yndnr/dblite-go/pkg/resp"
)

// run starts every configured listener and blocks until shutdown.
func run(ctx context.Context, cfg *config.ServerConfig, configFile string) error {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogger := log.Slog()

	bi := buildinfo.Get()
	log.Info("starting dblite-server",
		"version", bi.Version,
		"commit", bi.Commit,
		"config", configFile)

	engine, err := newEngine(cfg, slogger)
	if err != nil {
		return err
	}

	metrics := metric.Global()
	if err := metrics.Register(metric.NewCollector(engine.Store())); err != nil {
		engine.Close()
		return fmt.Errorf("register keyspace collector: %w", err)
	}

	sh := shutdown.NewHandler(cfg.Server.ShutdownTimeout, shutdown.WithLogger(slogger))

	respCfg, certs, err := respConfig(cfg, slogger)
	if err != nil {
		engine.Close()
		return err
	}
	srv := respserver.New(respCfg, engine,
		respserver.WithLogger(slogger),
		respserver.WithMetrics(metrics),
		respserver.WithShutdownFunc(sh.Trigger),
	)

	// Hooks run in reverse: HTTP, RESP, watchers, then the engine.
	sh.OnShutdown(func(context.Context) error {
		log.Info("closing storage engine")
		return engine.Close()
	})
	if certs != nil {
		sh.OnShutdown(func(context.Context) error { return certs.Stop() })
	}

	if err := srv.Start(ctx); err != nil {
		engine.Close()
		return fmt.Errorf("start resp server: %w", err)
	}
	log.Info("RESP server listening",
		"addr", srv.Addr("tcp"),
		"tls", srv.Addr("tls"),
		"unix", srv.Addr("unix"),
		"mode", respCfg.Mode)

	if configFile != "" {
		w, err := watchLogLevel(configFile, slogger)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			sh.OnShutdown(func(context.Context) error { return w.Stop() })
		}
	}

	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down RESP server")
		return srv.Shutdown(ctx)
	})

	if cfg.Server.HTTP.Enabled {
		httpSrv := httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Engine:    engine,
			Info:      srv.Dispatcher(),
			Config:    func() any { return config.Sanitize(cfg) },
			Ready:     func() bool { return sh.Reason() == "" },
			Metrics:   metrics,
			Logger:    slogger,
			AllowList: cfg.Server.HTTP.AllowList,
			RateLimit: cfg.Server.HTTP.RateLimit,
		}))
		httpErrs, err := httpSrv.Start()
		if err != nil {
			sh.Trigger()
			_ = sh.Wait(ctx)
			return fmt.Errorf("start http server: %w", err)
		}
		log.Info("admin HTTP server listening", "addr", httpSrv.Addr())

		sh.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			return httpSrv.Shutdown(ctx)
		})
		go func() {
			if err := <-httpErrs; err != nil {
				log.Error("admin HTTP server failed", "error", err)
				sh.Trigger()
			}
		}()
	}

	go func() {
		if err := srv.Wait(); err != nil {
			log.Error("RESP server failed", "error", err)
			sh.Trigger()
		}
	}()

	err = sh.Wait(ctx)
	log.Info("dblite-server stopped", "reason", sh.Reason())
	return err
}

func newEngine(cfg *config.ServerConfig, l *slog.Logger) (*storage.Engine, error) {
	enc, err := snapshot.ParseEncryptionKey(cfg.Security.EncryptionKey, cfg.Security.EncryptionAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("security.encryption_key: %w", err)
	}

	scfg := storage.DefaultConfig(cfg.Storage.DataDir)
	scfg.SweepInterval = cfg.Storage.SweepInterval
	scfg.Encryption = enc
	scfg.Logger = l

	engine, err := storage.New(scfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return engine, nil
}

// respConfig maps the RESP section onto the server config. With TLS
// enabled it also returns the started certificate reloader.
func respConfig(cfg *config.ServerConfig, l *slog.Logger) (*respserver.Config, *tlsroots.Reloader, error) {
	rc := cfg.Server.RESP
	out := &respserver.Config{
		Address:      rc.Address(),
		LocalPath:    rc.LocalPath,
		Mode:         respserver.Mode(rc.Mode),
		MaxClients:   rc.MaxClients,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		IdleTimeout:  rc.IdleTimeout,
		RateLimit:    rc.RateLimit,
		Limits:       resp.Limits{BulkLen: rc.MaxBulkLen},
	}

	if !rc.TLSEnabled() {
		return out, nil, nil
	}
	certs, err := tlsroots.NewReloader(rc.TLSCertFile, rc.TLSKeyFile, tlsroots.WithLogger(l))
	if err != nil {
		return nil, nil, err
	}
	if err := certs.Start(); err != nil {
		l.Warn("certificate hot reload disabled", "error", err)
	}
	out.TLSAddress = rc.TLSAddress()
	out.TLSConfig = certs.ServerConfig()
	return out, certs, nil
}

// watchLogLevel re-reads the config file on change and applies log.level.
// Other settings need a restart.
func watchLogLevel(path string, l *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(l))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg := config.Default()
		if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
			l.Warn("config reload failed", "file", path, "error", err)
			return
		}
		if !logger.ValidLevel(cfg.Log.Level) {
			l.Warn("config reload: invalid log.level", "level", cfg.Log.Level)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			l.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w, nil
}

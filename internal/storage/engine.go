package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/storage/memory"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
)

// Default configuration values.
const (
	DefaultDataDir       = "data"
	DefaultSweepInterval = time.Second
)

// Config configures the storage engine.
type Config struct {
	// DataDir is the directory SAVE and RESTORE file names resolve in.
	DataDir string

	// SweepInterval is the period of the background expiry sweep.
	// Zero disables the sweep; expiry then happens only on access.
	SweepInterval time.Duration

	// Encryption enables encrypted snapshots when non-nil.
	Encryption *snapshot.EncryptionConfig

	// StoreOptions are passed to memory.New.
	StoreOptions []memory.Option

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:       dataDir,
		SweepInterval: DefaultSweepInterval,
		Logger:        slog.Default(),
	}
}

// Engine combines the memory store, snapshot manager and expiry sweeper.
type Engine struct {
	cfg Config

	store    *memory.Store
	snapshot *snapshot.Manager

	logger *slog.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// New creates a storage engine and starts the background sweeper.
func New(cfg Config) (*Engine, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("storage: data_dir is required")
	}
	if cfg.SweepInterval < 0 {
		return nil, fmt.Errorf("storage: sweep_interval must not be negative")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	snapMgr, err := snapshot.NewManager(snapshot.Config{Encryption: cfg.Encryption})
	if err != nil {
		return nil, fmt.Errorf("storage: create snapshot manager: %w", err)
	}

	engine := &Engine{
		cfg:      cfg,
		store:    memory.New(cfg.StoreOptions...),
		snapshot: snapMgr,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go engine.backgroundLoop()

	return engine, nil
}

// Store returns the underlying memory store.
func (e *Engine) Store() *memory.Store {
	return e.store
}

// ResolvePath maps a client supplied snapshot name to a path inside the
// data directory. Absolute names and names escaping the directory are
// rejected.
func (e *Engine) ResolvePath(name string) (string, error) {
	if name == "" {
		return "", domain.ErrPersistence.WithDetails("empty file name")
	}
	if !filepath.IsLocal(name) {
		return "", domain.ErrPersistence.WithDetails(fmt.Sprintf("file name %q must be relative to the data directory", name))
	}
	return filepath.Join(e.cfg.DataDir, name), nil
}

// Save writes every live key to the snapshot file name. The store lock is
// held for the whole write.
func (e *Engine) Save(_ context.Context, name string) (*snapshot.Info, error) {
	path, err := e.ResolvePath(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var info *snapshot.Info
	err = e.store.Dump(func(now time.Time, entries map[string]*domain.Entry) error {
		var werr error
		info, werr = e.snapshot.Write(path, now, entries)
		return werr
	})
	if err != nil {
		e.logger.Error("snapshot save failed", "path", path, "error", err)
		return nil, domain.ErrPersistence.WithDetails(err.Error()).WithCause(err)
	}

	e.logger.Info("snapshot saved",
		"path", info.Path,
		"entry_count", info.EntryCount,
		"size_bytes", info.Size,
		"encrypted", info.Encrypted,
		"elapsed", time.Since(start))

	return info, nil
}

// Restore replaces the whole store with the contents of the snapshot file
// name. On any error the store is left unmodified.
func (e *Engine) Restore(_ context.Context, name string) (*snapshot.Info, error) {
	path, err := e.ResolvePath(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var info *snapshot.Info
	err = e.store.Load(func(now time.Time) (map[string]*domain.Entry, error) {
		entries, rinfo, rerr := e.snapshot.Read(path, now)
		info = rinfo
		return entries, rerr
	})
	if err != nil {
		e.logger.Error("snapshot restore failed", "path", path, "error", err)
		return nil, classifyRestoreError(err)
	}

	e.logger.Info("snapshot restored",
		"path", path,
		"entry_count", info.EntryCount,
		"live_keys", e.store.Len(),
		"elapsed", time.Since(start))

	return info, nil
}

func classifyRestoreError(err error) error {
	switch {
	case errors.Is(err, snapshot.ErrCorrupt),
		errors.Is(err, snapshot.ErrDecryptionFailed),
		errors.Is(err, snapshot.ErrEncryptionRequired):
		return domain.ErrCorruptSnapshot.WithDetails(err.Error()).WithCause(err)
	case errors.Is(err, os.ErrNotExist):
		return domain.ErrPersistence.WithDetails("no such file").WithCause(err)
	default:
		return domain.ErrPersistence.WithDetails(err.Error()).WithCause(err)
	}
}

// SweepExpired purges expired keys now and returns how many were removed.
func (e *Engine) SweepExpired() int {
	n := e.store.SweepExpired()
	if n > 0 {
		e.logger.Debug("expired keys swept", "count", n)
	}
	return n
}

// backgroundLoop runs the periodic expiry sweep.
func (e *Engine) backgroundLoop() {
	defer close(e.doneCh)

	if e.cfg.SweepInterval == 0 {
		<-e.stopCh
		return
	}

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.SweepExpired()

		case <-e.stopCh:
			return
		}
	}
}

// Close stops the background sweeper. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.logger.Info("shutting down storage engine")
		close(e.stopCh)
		<-e.doneCh
		e.logger.Info("storage engine shutdown complete")
	})
	return nil
}

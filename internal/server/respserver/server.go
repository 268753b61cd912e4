package respserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/storage"
	"github.com/yndnr/dblite-go/internal/telemetry/metric"
	"github.com/yndnr/dblite-go/pkg/cmap"
	"github.com/yndnr/dblite-go/pkg/resp"
)

// Mode selects how commands are scheduled.
type Mode string

const (
	ModeThreaded  Mode = "threaded"
	ModeEventLoop Mode = "eventloop"
)

// Config holds the RESP server configuration.
type Config struct {
	// Address is the TCP address for plaintext clients. Empty disables it.
	Address string
	// TLSAddress is the address for TLS clients. Requires TLSConfig.
	TLSAddress string
	// TLSConfig is the TLS configuration for TLSAddress.
	TLSConfig *tls.Config
	// LocalPath is an optional unix socket path.
	LocalPath string
	// Mode is threaded (default) or eventloop.
	Mode Mode
	// MaxClients bounds concurrently open connections (default: 1024).
	MaxClients int
	// ReadTimeout bounds reading one command once its first byte arrived (default: 30s).
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout closes connections idle between commands (default: 5m).
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per client IP.
	// Set to 0 to disable rate limiting.
	RateLimit int
	// Limits bounds request frame sizes. Zero fields use resp.DefaultLimits.
	Limits resp.Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      "127.0.0.1:31337",
		Mode:         ModeThreaded,
		MaxClients:   1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.Mode == "" {
		out.Mode = def.Mode
	}
	if out.MaxClients <= 0 {
		out.MaxClients = def.MaxClients
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = def.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = def.IdleTimeout
	}
	return &out
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records command and connection metrics in r.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) { s.metrics = r }
}

// WithShutdownFunc sets the callback run after a SHUTDOWN command has been
// answered. It is called on its own goroutine.
func WithShutdownFunc(fn func()) Option {
	return func(s *Server) { s.onShutdown = fn }
}

// Server is the RESP protocol server.
type Server struct {
	cfg        *Config
	dispatcher *Dispatcher
	exec       executor
	logger     *slog.Logger
	metrics    *metric.Registry
	onShutdown func()

	stats   *Stats
	clients *semaphore.Weighted
	limiter *ipLimiter
	conns   *cmap.Map[string, *Conn]

	lnMu      sync.Mutex
	listeners map[string]net.Listener

	running atomic.Bool
	group   errgroup.Group
	wg      sync.WaitGroup
}

// Conn is a single client connection.
type Conn struct {
	id      string
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	ip      string
	logger  *slog.Logger

	closed atomic.Bool
}

func newConn(c net.Conn, logger *slog.Logger) *Conn {
	id := ulid.Make().String()
	return &Conn{
		id:      id,
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
		ip:      remoteIP(c.RemoteAddr()),
		logger:  logger.With("conn_id", id, "remote", addrString(c.RemoteAddr())),
	}
}

// ID returns the connection's ULID.
func (c *Conn) ID() string {
	return c.id
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// RemoteAddr returns the client address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

func remoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addrString(addr))
	if err != nil {
		// unix sockets and pipes
		return addrString(addr)
	}
	return host
}

// New creates a RESP server executing commands against engine.
func New(cfg *Config, engine *storage.Engine, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()

	s := &Server{
		cfg:       cfg,
		logger:    slog.Default(),
		stats:     newStats(),
		clients:   semaphore.NewWeighted(int64(cfg.MaxClients)),
		limiter:   newIPLimiter(cfg.RateLimit),
		conns:     cmap.New[string, *Conn](),
		listeners: make(map[string]net.Listener),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Mode == ModeEventLoop {
		s.exec = newEventLoop()
	} else {
		s.exec = threaded{}
	}
	s.dispatcher = NewDispatcher(engine, s.stats,
		WithMode(cfg.Mode),
		WithDispatcherLogger(s.logger),
		WithDispatcherMetrics(s.metrics))
	return s
}

// Dispatcher returns the server's command dispatcher.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Stats returns the live server counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

// Start binds all configured listeners and begins accepting connections.
// Bind errors are returned before any listener starts serving.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Address == "" && s.cfg.TLSAddress == "" && s.cfg.LocalPath == "" {
		return errors.New("respserver: no listener configured")
	}

	if err := s.listen(); err != nil {
		s.closeListeners()
		return err
	}

	s.running.Store(true)
	s.exec.start()

	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	for name, ln := range s.listeners {
		s.logger.Info("resp server listening", "listener", name, "address", ln.Addr().String(), "mode", string(s.cfg.Mode))
		s.group.Go(func() error {
			return s.acceptLoop(ctx, ln)
		})
	}
	return nil
}

func (s *Server) listen() error {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()

	if s.cfg.Address != "" {
		ln, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
		}
		s.listeners["tcp"] = ln
	}

	if s.cfg.TLSAddress != "" {
		if s.cfg.TLSConfig == nil {
			return errors.New("respserver: tls address set without tls config")
		}
		ln, err := tls.Listen("tcp", s.cfg.TLSAddress, s.cfg.TLSConfig)
		if err != nil {
			return fmt.Errorf("listen tls %s: %w", s.cfg.TLSAddress, err)
		}
		s.listeners["tls"] = ln
	}

	if s.cfg.LocalPath != "" {
		// A stale socket from a previous run blocks the bind.
		if err := os.Remove(s.cfg.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale socket: %w", err)
		}
		ln, err := net.Listen("unix", s.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("listen unix %s: %w", s.cfg.LocalPath, err)
		}
		if err := os.Chmod(s.cfg.LocalPath, 0o660); err != nil {
			ln.Close()
			return fmt.Errorf("chmod socket: %w", err)
		}
		s.listeners["unix"] = ln
	}
	return nil
}

// Addr returns the address of the named listener ("tcp", "tls" or
// "unix"), or nil if it is not bound.
func (s *Server) Addr(name string) net.Addr {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if ln, ok := s.listeners[name]; ok {
		return ln.Addr()
	}
	return nil
}

// Wait blocks until every accept loop has returned and reports the first
// accept error.
func (s *Server) Wait() error {
	return s.group.Wait()
}

func (s *Server) closeListeners() error {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()

	var firstErr error
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Shutdown stops accepting connections, lets commands already executing
// finish and write their replies, then closes every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	firstErr := s.closeListeners()

	// Wake connections blocked waiting for their next command.
	for _, c := range s.conns.All() {
		_ = c.netConn.SetReadDeadline(time.Now())
	}

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		for _, c := range s.conns.All() {
			_ = c.Close()
		}
		s.exec.stop()
		return ctx.Err()
	}

	s.exec.stop()
	s.logger.Info("resp server stopped",
		"connections_total", s.stats.ConnectionsTotal(),
		"commands_processed", s.stats.CommandsProcessed())
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept timeout", "error", err)
				continue
			}
			return err
		}

		if !s.clients.TryAcquire(1) {
			s.reject(c)
			continue
		}

		conn := newConn(c, s.logger)
		s.track(conn)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) reject(c net.Conn) {
	s.stats.rejected.Inc()
	if s.metrics != nil {
		s.metrics.ConnectionRejected("max_clients")
	}
	s.logger.Warn("connection rejected", "remote", addrString(c.RemoteAddr()), "reason", "max_clients", "max_clients", s.cfg.MaxClients)

	bw := bufio.NewWriter(c)
	_ = c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	_ = resp.WriteError(bw, "ERR "+domain.ErrMaxClients.Message)
	_ = bw.Flush()
	_ = c.Close()
}

func (s *Server) track(c *Conn) {
	s.conns.Set(c.id, c)
	s.limiter.acquire(c.ip)
	s.stats.connOpened()
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}
	c.logger.Debug("connection accepted")
}

func (s *Server) untrack(c *Conn) {
	if _, ok := s.conns.Pop(c.id); !ok {
		return
	}
	s.limiter.release(c.ip)
	s.stats.connClosed()
	if s.metrics != nil {
		s.metrics.ConnectionClosed()
	}
	c.logger.Debug("connection closed")
}

// serveConn runs the request loop for c. The caller must hold one client
// slot, which is released when the connection ends.
func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic serving connection", "panic", r, "stack", string(debug.Stack()))
		}
		_ = c.Close()
		s.clients.Release(1)
		s.untrack(c)
	}()

	for {
		// Idle deadline applies while waiting for the first byte.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if !s.running.Load() {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(c, err)
			return
		}

		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		args, err := resp.ReadCommandLimits(c.br, s.cfg.Limits)
		if err != nil {
			var pe *resp.ProtocolError
			if !errors.As(err, &pe) {
				s.logReadError(c, err)
				return
			}
			s.stats.commandErrors.Inc()
			if pe.Limit {
				c.logger.Warn("protocol limit exceeded", "error", err)
			} else {
				c.logger.Debug("protocol error", "error", err, "fatal", pe.Fatal)
			}
			if werr := s.writeReply(c, resp.Error("ERR protocol: "+pe.Msg)); werr != nil || pe.Fatal {
				return
			}
			continue
		}
		if len(args) == 0 {
			continue
		}

		if !s.limiter.allow(c.ip) {
			s.stats.commandErrors.Inc()
			if err := s.writeReply(c, resp.Error(formatError(domain.ErrRateLimited))); err != nil {
				return
			}
			continue
		}

		var (
			reply  resp.Value
			action Action
		)
		if err := s.exec.execute(ctx, func() {
			reply, action = s.dispatcher.Dispatch(ctx, args)
		}); err != nil {
			var pe *panicError
			if errors.As(err, &pe) {
				c.logger.Error("panic executing command", "panic", pe.value, "stack", string(pe.stack))
				_ = s.writeReply(c, resp.Error(formatError(domain.ErrInternal)))
				return
			}
			_ = s.writeReply(c, resp.Error(formatError(err)))
			return
		}

		if err := s.writeReply(c, reply); err != nil {
			c.logger.Debug("write reply failed", "error", err)
			return
		}

		switch action {
		case ActionClose:
			return
		case ActionShutdown:
			c.logger.Info("shutdown requested by client")
			if s.onShutdown != nil {
				go s.onShutdown()
			}
			return
		}
	}
}

func (s *Server) writeReply(c *Conn, v resp.Value) error {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := resp.WriteValue(c.bw, v); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (s *Server) logReadError(c *Conn, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if s.running.Load() {
			c.logger.Debug("connection timed out")
		}
		return
	}
	c.logger.Debug("connection read error", "error", err)
}

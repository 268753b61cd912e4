package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/dblite-go/internal/server/httpserver/handler"
	"github.com/yndnr/dblite-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Engine handler.Engine
	Info   handler.InfoSource

	// Config returns the sanitized configuration for /admin/v1/config.
	// Nil disables the endpoint.
	Config func() any

	// Ready reports readiness for /ready. Nil means always ready.
	Ready handler.ReadyFunc

	// Metrics serves /metrics and records request counts. Nil disables both.
	Metrics *metric.Registry

	Logger *slog.Logger

	// AllowList restricts /admin/v1/* to these IPs or CIDR blocks.
	AllowList []string

	// RateLimit is requests per second per client IP. 0 disables it.
	RateLimit int
}

// NewRouter creates the admin HTTP handler.
//
// Order: Recover -> RequestID -> RateLimit -> AccessLog -> mux.
// /admin/v1/* additionally passes the network ACL.
func NewRouter(cfg *RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}

	var opts []handler.Option
	if cfg.Config != nil {
		opts = append(opts, handler.WithConfig(cfg.Config))
	}
	if cfg.Ready != nil {
		opts = append(opts, handler.WithReady(cfg.Ready))
	}
	h := handler.New(cfg.Engine, cfg.Info, l, opts...)

	mux := http.NewServeMux()
	mux.Handle("GET /health", h)
	mux.Handle("GET /ready", h)
	mux.Handle("/admin/v1/", NetworkACL(cfg.AllowList, l)(h))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	middlewares := []Middleware{Recover(l), RequestID(l)}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit))
	}
	middlewares = append(middlewares, AccessLog(l, cfg.Metrics))

	return Chain(mux, middlewares...)
}

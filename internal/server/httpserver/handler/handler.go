package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/server/respserver"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
	"github.com/yndnr/dblite-go/internal/telemetry/logger"
)

// Engine is the storage surface used by the admin endpoints.
type Engine interface {
	Save(ctx context.Context, name string) (*snapshot.Info, error)
	Restore(ctx context.Context, name string) (*snapshot.Info, error)
}

// InfoSource reports server statistics.
type InfoSource interface {
	Info() []respserver.InfoField
}

// ReadyFunc reports whether the server accepts clients.
type ReadyFunc func() bool

// Handler serves the admin API.
type Handler struct {
	engine Engine
	info   InfoSource
	config func() any
	ready  ReadyFunc
	logger *slog.Logger
	mux    *http.ServeMux
}

// Option configures a Handler.
type Option func(*Handler)

// WithConfig exposes a sanitized configuration at GET /admin/v1/config.
func WithConfig(fn func() any) Option {
	return func(h *Handler) { h.config = fn }
}

// WithReady sets the readiness probe. Without it /ready always succeeds.
func WithReady(fn ReadyFunc) Option {
	return func(h *Handler) { h.ready = fn }
}

// New creates a new Handler.
func New(engine Engine, info InfoSource, l *slog.Logger, opts ...Option) *Handler {
	if l == nil {
		l = slog.Default()
	}
	h := &Handler{
		engine: engine,
		info:   info,
		ready:  func() bool { return true },
		logger: l,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /admin/v1/info", h.handleInfo)
	h.mux.HandleFunc("POST /admin/v1/snapshots", h.handleSave)
	h.mux.HandleFunc("POST /admin/v1/restores", h.handleRestore)
	if h.config != nil {
		h.mux.HandleFunc("GET /admin/v1/config", h.handleConfig)
	}
}

// writeJSON writes data inside a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := newResponse(logger.RequestIDFromContext(r.Context()), "OK", "Success", data)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.FromContext(r.Context(), h.logger).Error("failed to encode response", "error", err)
	}
}

// writeError writes de inside an error envelope with its HTTP status.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, de *domain.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", de.Code)
	w.WriteHeader(de.Status())
	msg := de.Message
	if de.Details != "" {
		msg += ": " + de.Details
	}
	_ = json.NewEncoder(w).Encode(newResponse(logger.RequestIDFromContext(r.Context()), de.Code, msg, nil))
}

// handleError answers with the domain error wrapped in err. Anything else
// is logged and hidden behind a generic internal error.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsDomainError(err)
	if !ok {
		de = domain.ErrInternal
	}
	if de.Status() >= 500 {
		logger.FromContext(r.Context(), h.logger).Error("admin request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, r, de)
}

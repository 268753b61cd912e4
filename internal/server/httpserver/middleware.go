package httpserver

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/telemetry/logger"
	"github.com/yndnr/dblite-go/internal/telemetry/metric"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID tags each request with the client's X-Request-ID or a fresh
// ULID, echoes it back, and stores it with a request-scoped logger in the
// context.
func RequestID(l *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = "req-" + ulid.Make().String()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(logger.WithRequest(r.Context(), id, l)))
		})
	}
}

// RateLimit allows requestsPerSecond requests per client IP with a burst
// of the same size.
func RateLimit(requestsPerSecond int) Middleware {
	limiters := xsync.NewMapOf[string, *rate.Limiter]()
	limit := rate.Limit(requestsPerSecond)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim, _ := limiters.LoadOrCompute(clientIP(r), func() *rate.Limiter {
				return rate.NewLimiter(limit, requestsPerSecond)
			})
			if !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog logs each request and records it in m. It must wrap the mux
// directly so the matched route pattern is visible after serving.
func AccessLog(l *slog.Logger, m *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.RecordHTTPRequest(r.Method, route, strconv.Itoa(rw.status))
			}

			level := slog.LevelDebug
			switch {
			case rw.status >= 500:
				level = slog.LevelError
			case rw.status >= 400:
				level = slog.LevelWarn
			}
			logger.FromContext(r.Context(), l).Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", clientIP(r))
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(l *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.FromContext(r.Context(), l).Error("panic recovered", "panic", v, "path", r.URL.Path)
					writeError(w, domain.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var errForbidden = &domain.DomainError{Code: "DBL-ADMIN-4030", Message: "IP not in allowlist"}

// NetworkACL rejects clients whose IP is not in allowList. Entries are
// single IPs or CIDR blocks; invalid entries are logged and skipped. An
// empty list allows everyone.
func NetworkACL(allowList []string, l *slog.Logger) Middleware {
	var prefixes []netip.Prefix
	for _, entry := range allowList {
		p, err := parseACLEntry(entry)
		if err != nil {
			l.Warn("invalid allowlist entry", "entry", entry, "error", err)
			continue
		}
		prefixes = append(prefixes, p)
	}

	return func(next http.Handler) http.Handler {
		if len(prefixes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if addr, err := netip.ParseAddr(ip); err == nil {
				addr = addr.Unmap()
				for _, p := range prefixes {
					if p.Contains(addr) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			logger.FromContext(r.Context(), l).Warn("request denied by network ACL", "client_ip", ip, "path", r.URL.Path)
			writeError(w, errForbidden)
		})
	}
}

func parseACLEntry(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		p, err := netip.ParsePrefix(entry)
		return p.Masked(), err
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, de *domain.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", de.Code)
	w.WriteHeader(de.Status())
	_ = json.NewEncoder(w).Encode(map[string]string{"code": de.Code, "message": de.Message})
}

// clientIP returns the peer address. Forwarding headers are ignored so
// the ACL cannot be spoofed.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package httpserver provides the optional admin HTTP endpoint.
//
// Routes:
//
//   - GET /health, GET /ready
//   - GET /metrics (Prometheus)
//   - GET /admin/v1/info, GET /admin/v1/config
//   - POST /admin/v1/snapshots, POST /admin/v1/restores
//
// Requests pass through Recover, RequestID, an optional per-IP RateLimit
// and AccessLog. The /admin/v1 routes can be restricted with a network
// allow list.
package httpserver

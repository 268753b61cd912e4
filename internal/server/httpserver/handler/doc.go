// Package handler implements the admin HTTP endpoints.
//
//   - health.go: liveness and readiness
//   - admin.go: statistics, snapshots, sanitized configuration
//
// Every JSON body uses the Response envelope; /metrics is served by the
// router in Prometheus text format.
package handler

// Package metric provides Prometheus metrics for dblite.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: keyspace collector reading live store statistics
//
// Metrics include:
//
//   - Command latency histograms and outcome counters
//   - Connection gauges and rejection counters
//   - Snapshot save/restore durations and sizes
//   - Keyspace size and expired key counts
//
// Metrics are exposed at /metrics in Prometheus format by the HTTP
// admin server.
package metric

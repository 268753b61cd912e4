package metric

import "github.com/prometheus/client_golang/prometheus"

// KeyspaceStats is the read side of the key store the collector samples.
type KeyspaceStats interface {
	Len() int
	ExpiredKeys() uint64
}

// Collector exports keyspace statistics at scrape time.
type Collector struct {
	stats   KeyspaceStats
	keys    *prometheus.Desc
	expired *prometheus.Desc
}

// NewCollector creates a collector over stats.
func NewCollector(stats KeyspaceStats) *Collector {
	return &Collector{
		stats: stats,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys"),
			"Live keys in the store.", nil, nil),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "expired_keys_total"),
			"Keys removed because their expiry passed.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.stats.Len()))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(c.stats.ExpiredKeys()))
}

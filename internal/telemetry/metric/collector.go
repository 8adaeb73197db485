package metric

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeCollector exposes process-level health signals (goroutine count)
// alongside the domain-specific snapshot metrics, following the same
// prometheus.Collector pattern used for the rest of this registry.
type RuntimeCollector struct {
	goroutines *prometheus.Desc
}

// NewRuntimeCollector creates a RuntimeCollector.
func NewRuntimeCollector() *RuntimeCollector {
	return &RuntimeCollector{
		goroutines: prometheus.NewDesc(
			namespace+"_goroutines",
			"Number of goroutines currently running in the process.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.goroutines
}

// Collect implements prometheus.Collector.
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
}

// Package metric provides the snapshot engine's Prometheus instrumentation.
//
//   - prometheus.go: the Registry (counters/gauges) and HTTP handler
//   - collector.go: a process-level runtime collector (goroutine count)
//
// Registry.Handler serves the metrics in Prometheus text exposition format;
// the package does not mount it on any path itself.
package metric

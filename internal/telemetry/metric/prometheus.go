// Package metric provides the snapshot engine's Prometheus instrumentation:
// how many snapshots have committed, been rejected as corrupt, or been
// superseded; how many pending receptions are in flight; how many bytes a
// store has received; and the index of the last committed snapshot.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "snapkeep"

// Counter is a cumulative metric that only increases.
type Counter interface {
	Inc()
	Add(float64)
}

// CounterVec is a Counter with labels, resolved once per label set.
type CounterVec interface {
	With(labels map[string]string) Counter
}

// Gauge is a metric that can go up and down.
type Gauge interface {
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
}

// GaugeVec is a Gauge with labels, resolved once per label set.
type GaugeVec interface {
	With(labels map[string]string) Gauge
}

// Histogram samples observations and counts them in buckets.
type Histogram interface {
	Observe(float64)
}

// HistogramVec is a Histogram with labels.
type HistogramVec interface {
	With(labels map[string]string) Histogram
}

// Registry holds every metric the snapshot engine exposes.
type Registry struct {
	prom *prometheus.Registry

	SnapshotsCommittedTotal   CounterVec
	SnapshotsCorruptedTotal   CounterVec
	SnapshotsSupersededTotal  CounterVec
	PendingReceptionsActive   GaugeVec
	SnapshotBytesReceivedTotal CounterVec
	LastCommittedSnapshotIndex GaugeVec

	ReceptionDuration HistogramVec
}

// NewRegistry builds and registers a fresh Registry against its own private
// prometheus.Registry, so callers (including tests) never collide with
// other registries in the same process.
func NewRegistry() *Registry {
	prom := prometheus.NewRegistry()

	committed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_committed_total",
		Help:      "Total number of snapshots successfully committed.",
	}, []string{"store", "partition"})

	corrupted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_corrupted_total",
		Help:      "Total number of snapshots rejected for failing integrity verification.",
	}, []string{"store", "partition"})

	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_superseded_total",
		Help:      "Total number of persist attempts superseded by an already-committed newer snapshot.",
	}, []string{"store", "partition"})

	pending := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_receptions_active",
		Help:      "Number of snapshot receptions currently in flight.",
	}, []string{"store", "partition"})

	bytesReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_bytes_received_total",
		Help:      "Total bytes of chunk content accepted into pending snapshot directories.",
	}, []string{"store", "partition"})

	lastIndex := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_committed_snapshot_index",
		Help:      "Log index of the most recently committed snapshot.",
	}, []string{"store", "partition"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reception_duration_seconds",
		Help:      "Time from the first accepted chunk of a reception to persist().",
		Buckets:   prometheus.DefBuckets,
	}, []string{"store", "partition"})

	prom.MustRegister(committed, corrupted, superseded, pending, bytesReceived, lastIndex, duration, NewRuntimeCollector())

	return &Registry{
		prom:                       prom,
		SnapshotsCommittedTotal:    promCounterVec{committed},
		SnapshotsCorruptedTotal:    promCounterVec{corrupted},
		SnapshotsSupersededTotal:   promCounterVec{superseded},
		PendingReceptionsActive:    promGaugeVec{pending},
		SnapshotBytesReceivedTotal: promCounterVec{bytesReceived},
		LastCommittedSnapshotIndex: promGaugeVec{lastIndex},
		ReceptionDuration:          promHistogramVec{duration},
	}
}

// Handler returns an HTTP handler serving r's metrics in the Prometheus
// text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

// defaultRegistry backs the package-level Registered() accessor used by
// components that do not thread a *Registry through their constructors.
var defaultRegistry = NewRegistry()

// Registered returns the process-wide default Registry.
func Registered() *Registry {
	return defaultRegistry
}

type promCounterVec struct{ v *prometheus.CounterVec }

func (p promCounterVec) With(labels map[string]string) Counter {
	return p.v.With(prometheus.Labels(labels))
}

type promGaugeVec struct{ v *prometheus.GaugeVec }

func (p promGaugeVec) With(labels map[string]string) Gauge {
	return p.v.With(prometheus.Labels(labels))
}

type promHistogramVec struct{ v *prometheus.HistogramVec }

func (p promHistogramVec) With(labels map[string]string) Histogram {
	return p.v.With(prometheus.Labels(labels))
}

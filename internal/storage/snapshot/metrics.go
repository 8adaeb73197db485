package snapshot

import "github.com/yndnr/snapkeep-go/internal/telemetry/metric"

// storeMetrics holds a single store's Prometheus instruments, labeled by
// store name and partition id.
type storeMetrics struct {
	committed  metric.Counter
	corrupted  metric.Counter
	superseded metric.Counter
	pending    metric.Gauge
	bytesRecv  metric.Counter
	lastIndex  metric.Gauge
	reception  metric.Histogram
}

func newStoreMetrics(storeName, partitionId string) *storeMetrics {
	labels := map[string]string{"store": storeName, "partition": partitionId}
	return &storeMetrics{
		committed:  metric.Registered().SnapshotsCommittedTotal.With(labels),
		corrupted:  metric.Registered().SnapshotsCorruptedTotal.With(labels),
		superseded: metric.Registered().SnapshotsSupersededTotal.With(labels),
		pending:    metric.Registered().PendingReceptionsActive.With(labels),
		bytesRecv:  metric.Registered().SnapshotBytesReceivedTotal.With(labels),
		lastIndex:  metric.Registered().LastCommittedSnapshotIndex.With(labels),
		reception:  metric.Registered().ReceptionDuration.With(labels),
	}
}

package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/snapkeep-go/internal/telemetry/logger"
	"github.com/yndnr/snapkeep-go/pkg/cmap"
)

// Factory creates one Store per partition, resolving each partition's root
// directory (optionally sharded across multiple data roots) and caching
// opened stores so repeated lookups for the same partition return the same
// instance. Lookups for already-open partitions are lock-free; opening a
// new partition is serialized through openMu so two concurrent first
// requests for the same partition can't race each other into OpenStore
// twice.
type Factory struct {
	nodeId    string
	roots     []string
	logger    logger.Logger
	rateLimit atomic.Int64

	openMu sync.Mutex
	stores *cmap.Map[string, *Store]
}

// NewFactory creates a Factory rooted at one or more data directories. When
// len(roots) > 1, a partition's root is chosen deterministically by hashing
// its partition key with murmur3, so a given partition always resolves to
// the same disk across restarts regardless of process-start order.
func NewFactory(nodeId string, roots []string, log logger.Logger) *Factory {
	if log == nil {
		log = logger.Default()
	}
	return &Factory{
		nodeId: nodeId,
		roots:  roots,
		logger: log,
		stores: cmap.New[string, *Store](),
	}
}

// rootFor returns the data root assigned to partitionId.
func (f *Factory) rootFor(partitionId string) (string, error) {
	if len(f.roots) == 0 {
		return "", fmt.Errorf("snapshot: factory has no configured data roots")
	}
	if len(f.roots) == 1 {
		return f.roots[0], nil
	}

	h := murmur3.Sum32([]byte(partitionId))
	return f.roots[int(h)%len(f.roots)], nil
}

// open returns the cached store for partitionId, opening one if this is
// the first request for that partition.
func (f *Factory) open(partitionId string) (*Store, error) {
	if s, ok := f.stores.Get(partitionId); ok {
		return s, nil
	}

	f.openMu.Lock()
	defer f.openMu.Unlock()

	if s, ok := f.stores.Get(partitionId); ok {
		return s, nil
	}

	root, err := f.rootFor(partitionId)
	if err != nil {
		return nil, err
	}

	partitionRoot := filepath.Join(root, "partitions", partitionId)
	store, err := OpenStore(partitionRoot, Config{
		StoreName:               f.nodeId,
		PartitionId:             partitionId,
		ReceptionBytesPerSecond: f.rateLimit.Load(),
	}, f.logger)
	if err != nil {
		return nil, err
	}

	f.stores.Set(partitionId, store)
	return store, nil
}

// GetConstructableSnapshotStore returns the leader capability view for
// partitionId, opening the underlying store if necessary.
func (f *Factory) GetConstructableSnapshotStore(partitionId string) (ConstructableSnapshotStore, error) {
	return f.open(partitionId)
}

// CreateReceivableSnapshotStore returns the follower capability view for
// partitionId, opening the underlying store if necessary.
func (f *Factory) CreateReceivableSnapshotStore(partitionId string) (ReceivableSnapshotStore, error) {
	return f.open(partitionId)
}

// SetReceptionRateLimit changes the chunk-reception rate limit applied to
// every store the factory has already opened, and to any store it opens
// afterward. Intended to be called from a confloader.Watcher callback for
// live reload without a process restart.
func (f *Factory) SetReceptionRateLimit(bytesPerSecond int64) {
	f.rateLimit.Store(bytesPerSecond)
	for _, s := range f.stores.Values() {
		s.SetReceptionRateLimit(bytesPerSecond)
	}
}

// CloseAll closes every store the factory has opened, in no particular
// order, collecting and returning the first error encountered (if any)
// after attempting all of them.
func (f *Factory) CloseAll(ctx context.Context) error {
	stores := f.stores.Values()

	var firstErr error
	for _, s := range stores {
		if err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/snapkeep-go/internal/telemetry/logger"
	"github.com/yndnr/snapkeep-go/pkg/actor"
)

// ConstructableSnapshotStore is the capability view a leader uses to take
// local snapshots.
type ConstructableSnapshotStore interface {
	CurrentSnapshot() *PersistedSnapshot
	NewTransientSnapshot(index, term, processedPosition, exportedPosition uint64) (*TransientSnapshot, error)
	AddSnapshotListener(l PersistedSnapshotListener)
	RemoveSnapshotListener(l PersistedSnapshotListener)
}

// ReceivableSnapshotStore is the capability view a follower uses to receive
// snapshots from a leader.
type ReceivableSnapshotStore interface {
	CurrentSnapshot() *PersistedSnapshot
	NewReceivedSnapshot(id string) (*ReceivedSnapshot, error)
	PurgePendingSnapshots(ctx context.Context) error
	AddSnapshotListener(l PersistedSnapshotListener)
	RemoveSnapshotListener(l PersistedSnapshotListener)
}

// Store is the partition-scoped facade over the snapshot engine. All
// mutating operations are serialized onto a single pkg/actor.Task so that
// nothing ever observes a partially-applied mutation.
type Store struct {
	partitionId string
	logger      logger.Logger
	layout      *layout
	task        *actor.Task

	committed atomic.Pointer[PersistedSnapshot]
	listeners []PersistedSnapshotListener

	metrics   *storeMetrics
	rateLimit atomic.Int64
}

// Config configures a Store's metrics labels and tunables.
// ReceptionBytesPerSecond is the chunk-reception rate limit; zero means
// defaultReceptionBytesPerSecond. It can be changed after OpenStore via
// Store.SetReceptionRateLimit without a restart.
type Config struct {
	StoreName               string
	PartitionId             string
	ReceptionBytesPerSecond int64
}

// OpenStore opens (or creates) a snapshot store rooted at root, recovers the
// latest valid committed snapshot if one exists, and reconciles any
// orphaned pending directories left from a prior crash.
func OpenStore(root string, cfg Config, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Default()
	}

	l := newLayout(root)
	if err := l.ensureDirs(); err != nil {
		return nil, err
	}

	s := &Store{
		partitionId: cfg.PartitionId,
		logger:      log,
		layout:      l,
		task:        actor.NewTask(),
		metrics:     newStoreMetrics(cfg.StoreName, cfg.PartitionId),
	}
	if cfg.ReceptionBytesPerSecond > 0 {
		s.rateLimit.Store(cfg.ReceptionBytesPerSecond)
	} else {
		s.rateLimit.Store(defaultReceptionBytesPerSecond)
	}

	if err := s.recover(); err != nil {
		s.task.Close(context.Background())
		return nil, err
	}

	return s, nil
}

// SetReceptionRateLimit changes the chunk-reception rate limit applied to
// new and in-flight ReceivedSnapshots for this store. Safe to call from
// any goroutine (e.g. a confloader.Watcher callback) without going through
// the partition task, since it only updates a shared atomic read by
// ReceivedSnapshot.limiterOrDefault.
func (s *Store) SetReceptionRateLimit(bytesPerSecond int64) {
	if bytesPerSecond <= 0 {
		bytesPerSecond = defaultReceptionBytesPerSecond
	}
	s.rateLimit.Store(bytesPerSecond)
}

// recover enumerates snapshots/, adopts the greatest parsable committed id
// after verifying its checksum sidecar, purges every sibling committed
// directory, and purges everything under pending/.
func (s *Store) recover() error {
	entries, err := os.ReadDir(s.layout.snapshotsDir())
	if err != nil {
		return domainIoError("list "+s.layout.snapshotsDir(), err)
	}

	type candidate struct {
		id   Id
		name string
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := ParseId(e.Name())
		if err != nil {
			s.logger.Warn("ignoring unparsable snapshot directory", "name", e.Name())
			continue
		}
		candidates = append(candidates, candidate{id: id, name: e.Name()})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].id.Compare(candidates[j].id) > 0
	})

	for i, c := range candidates {
		dir := filepath.Join(s.layout.snapshotsDir(), c.name)
		if i == 0 {
			checksum, err := verifyCommittedChecksum(dir, c.id)
			if err != nil {
				s.metrics.corrupted.Add(1)
				return domainCorrupted(fmt.Sprintf("committed snapshot %s failed verification: %v", c.name, err))
			}
			s.committed.Store(&PersistedSnapshot{id: c.id, path: dir, checksum: checksum})
			s.logger.Info("recovered committed snapshot", "snapshot_id", c.name)
			continue
		}
		s.logger.Warn("purging stale committed snapshot directory", "name", c.name)
		if err := s.layout.purge(dir); err != nil {
			s.logger.Error("failed to purge stale snapshot directory", "name", c.name, "error", err)
		}
	}

	return s.reconcilePending()
}

// reconcilePending purges every directory under pending/, logging the
// names it removes: any in-flight ReceivedSnapshot handle from before a
// crash is invalidated by construction (process restart drops the handle),
// so its pending directory is orphaned and unsafe to resume.
func (s *Store) reconcilePending() error {
	entries, err := os.ReadDir(s.layout.pendingDir())
	if err != nil {
		return domainIoError("list "+s.layout.pendingDir(), err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s.logger.Warn("purging orphaned pending snapshot directory", "name", e.Name())
		if err := s.layout.purge(filepath.Join(s.layout.pendingDir(), e.Name())); err != nil {
			s.logger.Error("failed to purge orphaned pending directory", "name", e.Name(), "error", err)
		}
	}
	return nil
}

func verifyCommittedChecksum(dir string, id Id) (uint64, error) {
	sidecar := checksumFilePath(dir, id.String())
	declared, err := readChecksumSidecar(sidecar)
	if err != nil {
		return 0, err
	}

	actual, err := AggregateChecksum(dir)
	if err != nil {
		return 0, err
	}

	if actual != declared {
		return 0, fmt.Errorf("checksum mismatch: declared %d, computed %d", declared, actual)
	}
	return actual, nil
}

// CurrentSnapshot returns the currently committed snapshot, or nil if none
// has been committed yet. It never blocks on the partition task.
func (s *Store) CurrentSnapshot() *PersistedSnapshot {
	return s.committed.Load()
}

// NewTransientSnapshot returns a handle for a locally-produced snapshot, or
// nil if the id is not strictly newer than the currently committed
// snapshot. No disk state is created yet: per P6, creating the handle has
// no pending side effects until Take is called.
func (s *Store) NewTransientSnapshot(index, term, processedPosition, exportedPosition uint64) (*TransientSnapshot, error) {
	id := NewId(index, term, processedPosition, exportedPosition)

	future := actor.Submit(s.task, func() (*TransientSnapshot, error) {
		if committed := s.committed.Load(); committed != nil && !id.NewerThan(committed.id) {
			return nil, nil
		}
		return &TransientSnapshot{store: s, id: id}, nil
	})

	return future.Get()
}

// NewReceivedSnapshot returns a handle for a remotely-sent snapshot
// identified by idStr. No disk state is created until the first chunk is
// applied.
func (s *Store) NewReceivedSnapshot(idStr string) (*ReceivedSnapshot, error) {
	id, err := ParseId(idStr)
	if err != nil {
		return nil, err
	}
	return &ReceivedSnapshot{store: s, declaredId: id, declaredIdStr: idStr, state: stateEmpty}, nil
}

// PurgePendingSnapshots removes every subdirectory of pending/ whose name's
// id does not match the currently committed snapshot's id. It never
// touches snapshots/.
func (s *Store) PurgePendingSnapshots(ctx context.Context) error {
	future := actor.SubmitVoid(s.task, func() error {
		entries, err := os.ReadDir(s.layout.pendingDir())
		if err != nil {
			return domainIoError("list "+s.layout.pendingDir(), err)
		}

		committed := s.committed.Load()
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			idPart, _, ok := splitPendingName(e.Name())
			if !ok {
				continue
			}
			if committed != nil && idPart == committed.id.String() {
				continue
			}
			if err := s.layout.purge(filepath.Join(s.layout.pendingDir(), e.Name())); err != nil {
				s.logger.Error("failed to purge pending directory", "name", e.Name(), "error", err)
			}
		}
		return nil
	})

	_, err := future.Wait(ctx)
	return err
}

// AddSnapshotListener registers l to be notified of future commits. The
// registration itself is dispatched onto the partition task so the
// listener list is never touched concurrently with a notification.
func (s *Store) AddSnapshotListener(l PersistedSnapshotListener) {
	actor.SubmitVoid(s.task, func() error {
		s.listeners = append(s.listeners, l)
		return nil
	}).Get()
}

// RemoveSnapshotListener unregisters l.
func (s *Store) RemoveSnapshotListener(l PersistedSnapshotListener) {
	actor.SubmitVoid(s.task, func() error {
		for i, existing := range s.listeners {
			if existing == l {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				break
			}
		}
		return nil
	}).Get()
}

// Close drains the partition task and releases file handles, honoring
// ctx's deadline.
func (s *Store) Close(ctx context.Context) error {
	return s.task.Close(ctx)
}

// finalizePersist is the shared commit path for both TransientSnapshot and
// ReceivedSnapshot: it must run on the partition task. It computes the
// aggregate checksum, writes the sidecar, and resolves the snapshot against
// whatever is currently committed.
func (s *Store) finalizePersist(id Id, pendingPath string) (*PersistedSnapshot, error) {
	checksum, err := AggregateChecksum(pendingPath)
	if err != nil {
		return nil, err
	}

	if err := writeChecksumSidecar(checksumFilePath(pendingPath, id.String()), checksum); err != nil {
		return nil, err
	}

	current := s.committed.Load()

	if current != nil {
		switch current.id.Compare(id) {
		case 0:
			// Concurrent reception of the same id: compare byte-for-byte
			// rather than trusting the checksum match alone.
			same, err := directoriesEqual(pendingPath, current.path)
			if err != nil {
				return nil, err
			}
			if !same {
				s.metrics.corrupted.Add(1)
				return nil, domainCorrupted(fmt.Sprintf("snapshot %s committed twice with differing content", id))
			}
			s.layout.purge(pendingPath)
			return current, nil
		case 1:
			// current is newer: this attempt is superseded.
			s.layout.purge(pendingPath)
			s.metrics.superseded.Add(1)
			return current, domainSuperseded(fmt.Sprintf("snapshot %s is superseded by committed %s", id, current.id))
		}
	}

	dest, err := s.layout.commit(pendingPath, id.String())
	if err != nil {
		return nil, err
	}

	persisted := &PersistedSnapshot{id: id, path: dest, checksum: checksum}
	s.committed.Store(persisted)
	s.metrics.committed.Add(1)
	s.metrics.lastIndex.Set(float64(id.Index))

	if current != nil {
		s.logger.Info("purging superseded snapshot", "snapshot_id", current.id.String(), "new_snapshot_id", id.String())
		if err := s.layout.purge(current.path); err != nil {
			s.logger.Error("failed to purge superseded snapshot", "error", err)
		}
	}

	s.notifyListeners(persisted)
	return persisted, nil
}

// notifyListeners runs on the partition task, in listener-registration
// order, and never overlaps with a persist/abort/purge.
func (s *Store) notifyListeners(persisted *PersistedSnapshot) {
	correlationId := ulid.Make().String()
	s.logger.Info("notifying snapshot listeners",
		"snapshot_id", persisted.id.String(),
		"listener_count", len(s.listeners),
		"correlation_id", correlationId,
	)
	for _, l := range s.listeners {
		l.OnNewSnapshot(persisted)
	}
}

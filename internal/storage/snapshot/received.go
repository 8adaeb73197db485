package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/snapkeep-go/pkg/actor"
)

type receivedState int

const (
	stateEmpty receivedState = iota
	stateWriting
	statePersisted
	stateAborted
)

// defaultReceptionBytesPerSecond bounds how fast a single reception may
// write to disk, so one bulk transfer cannot monopolize the partition
// task's time budget.
const defaultReceptionBytesPerSecond = 64 << 20 // 64MB/s

// ReceivedSnapshot is a writable, uncommitted snapshot populated
// chunk-by-chunk from a remote sender. State transitions
// (Empty -> Writing -> Persisted|Aborted) are driven exclusively by Apply,
// Persist, and Abort, all of which run on the store's partition task.
type ReceivedSnapshot struct {
	store *Store

	declaredId    Id
	declaredIdStr string

	state       receivedState
	pendingPath string

	expectedTotal            uint32
	expectedSnapshotChecksum uint64
	seenChunks               map[string]struct{}

	startedAt time.Time
	limiter   *rate.Limiter
}

func (r *ReceivedSnapshot) limiterOrDefault() *rate.Limiter {
	n := r.store.rateLimit.Load()
	if n <= 0 {
		n = defaultReceptionBytesPerSecond
	}

	if r.limiter == nil {
		r.limiter = rate.NewLimiter(rate.Limit(n), int(n))
		return r.limiter
	}

	// Pick up a live rate limit change (e.g. from a confloader.Watcher
	// callback) for the rest of an in-flight reception.
	if int64(r.limiter.Limit()) != n {
		r.limiter.SetLimit(rate.Limit(n))
		r.limiter.SetBurst(int(n))
	}
	return r.limiter
}

// Apply validates and writes a single chunk, returning false (not an error)
// when the chunk is unacceptable and should be retried or the reception
// aborted. Each accepted chunk's content length is reported to this
// reception's own rate limiter, whose rate is the store's reception limit,
// before the write proceeds, throttling how fast a single
// bulk transfer can consume the partition task's time budget.
func (r *ReceivedSnapshot) Apply(ctx context.Context, chunk Chunk) *actor.Future[bool] {
	return actor.Submit(r.store.task, func() (bool, error) {
		if r.state == statePersisted || r.state == stateAborted {
			return false, nil
		}

		if chunk.SnapshotId != r.declaredIdStr {
			return false, nil
		}

		if r.state == stateEmpty {
			path, err := r.store.layout.allocatePendingPath(r.declaredId)
			if err != nil {
				return false, err
			}
			r.pendingPath = path
			r.expectedTotal = chunk.TotalCount
			r.expectedSnapshotChecksum = chunk.SnapshotChecksum
			r.seenChunks = make(map[string]struct{})
			r.state = stateWriting
			r.startedAt = time.Now()
			r.store.metrics.pending.Inc()
		}

		if chunk.TotalCount != r.expectedTotal || chunk.SnapshotChecksum != r.expectedSnapshotChecksum {
			return false, nil
		}

		if !VerifyChunk(chunk) {
			return false, nil
		}

		if _, seen := r.seenChunks[chunk.ChunkName]; seen {
			// Duplicate chunk: idempotent success without rewriting.
			return true, nil
		}

		if err := r.limiterOrDefault().WaitN(ctx, len(chunk.Content)); err != nil {
			return false, nil
		}

		dest := filepath.Join(r.pendingPath, chunk.ChunkName)
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				r.seenChunks[chunk.ChunkName] = struct{}{}
				return true, nil
			}
			return false, domainIoError("create chunk file "+dest, err)
		}
		_, writeErr := f.Write(chunk.Content)
		closeErr := f.Close()
		if writeErr != nil {
			return false, domainIoError("write chunk file "+dest, writeErr)
		}
		if closeErr != nil {
			return false, domainIoError("close chunk file "+dest, closeErr)
		}

		r.seenChunks[chunk.ChunkName] = struct{}{}
		r.store.metrics.bytesRecv.Add(float64(len(chunk.Content)))
		return true, nil
	})
}

// Persist verifies the pending directory holds exactly the expected number
// of files and that their aggregate checksum matches the value declared by
// the chunk stream, then commits via the layout manager.
func (r *ReceivedSnapshot) Persist() *actor.Future[*PersistedSnapshot] {
	return actor.Submit(r.store.task, func() (*PersistedSnapshot, error) {
		if r.state == stateAborted {
			return nil, domainIoError("persist called after abort", nil)
		}
		if r.state == statePersisted {
			return r.store.CurrentSnapshot(), nil
		}
		if r.state != stateWriting {
			return nil, domainCorrupted("persist called before any chunk was applied")
		}

		entries, err := os.ReadDir(r.pendingPath)
		if err != nil {
			return nil, domainIoError("list "+r.pendingPath, err)
		}
		if uint32(len(entries)) != r.expectedTotal {
			r.store.metrics.corrupted.Add(1)
			return nil, domainCorrupted(fmt.Sprintf("snapshot %s is partial: have %d of %d files", r.declaredIdStr, len(entries), r.expectedTotal))
		}

		actual, err := AggregateChecksum(r.pendingPath)
		if err != nil {
			return nil, err
		}
		if actual != r.expectedSnapshotChecksum {
			r.store.metrics.corrupted.Add(1)
			return nil, domainCorrupted(fmt.Sprintf("snapshot %s is corrupted: checksum mismatch", r.declaredIdStr))
		}

		persisted, err := r.store.finalizePersist(r.declaredId, r.pendingPath)
		r.store.metrics.pending.Dec()
		if err == nil {
			r.state = statePersisted
			r.store.metrics.reception.Observe(time.Since(r.startedAt).Seconds())
		}
		return persisted, err
	})
}

// Abort purges the pending directory unconditionally and is idempotent.
func (r *ReceivedSnapshot) Abort() *actor.Future[struct{}] {
	return actor.SubmitVoid(r.store.task, func() error {
		if r.state == stateAborted {
			return nil
		}
		if r.state == stateWriting {
			r.store.layout.purge(r.pendingPath)
			r.store.metrics.pending.Dec()
		}
		r.state = stateAborted
		return nil
	})
}

package snapshot

import (
	"github.com/yndnr/snapkeep-go/pkg/actor"
)

// TransientSnapshot is a writable, uncommitted snapshot produced locally by
// a state-machine callback. It becomes a PersistedSnapshot on successful
// Persist. Its fields are only ever touched from closures running on the
// store's partition task, so no lock is needed: the task itself serializes
// every access.
type TransientSnapshot struct {
	store *Store
	id    Id

	pendingPath string
	taken       bool
	finished    bool
}

// Take schedules writer on the store's partition task. writer receives the
// pending directory's path and should populate it with the snapshot's state
// files; it returns false to abort the take (e.g. the state machine
// detected it has nothing new to snapshot). If writer returns false, the
// pending directory is purged and Persist will fail.
func (t *TransientSnapshot) Take(writer func(path string) bool) *actor.Future[struct{}] {
	return actor.SubmitVoid(t.store.task, func() error {
		if t.finished {
			return domainIoError("take called after persist/abort", nil)
		}

		path, err := t.store.layout.allocatePendingPath(t.id)
		if err != nil {
			return err
		}

		ok := writer(path)
		if !ok {
			t.store.layout.purge(path)
			return domainIoError("writer callback reported failure for "+path, nil)
		}

		t.pendingPath = path
		t.taken = true
		return nil
	})
}

// Abort discards the pending directory allocated by Take, if any. It is
// idempotent and safe to call whether or not Take ever ran.
func (t *TransientSnapshot) Abort() *actor.Future[struct{}] {
	return actor.SubmitVoid(t.store.task, func() error {
		if t.finished {
			return nil
		}
		if t.taken {
			t.store.layout.purge(t.pendingPath)
		}
		t.finished = true
		return nil
	})
}

// Persist computes the aggregate checksum, writes the checksum sidecar,
// and atomically renames the pending directory into snapshots/. If a
// committed snapshot with a lower id already exists it is purged after the
// rename. If one with an equal id exists, this call resolves to that handle
// when the content matches and fails with a corrupted-snapshot error when it
// differs; if one with a greater id exists, it resolves to that handle
// together with an ErrSuperseded error (see Store.finalizePersist).
func (t *TransientSnapshot) Persist() *actor.Future[*PersistedSnapshot] {
	return actor.Submit(t.store.task, func() (*PersistedSnapshot, error) {
		if !t.taken {
			return nil, domainIoError("persist called before take completed", nil)
		}
		if t.finished {
			return nil, domainIoError("persist called twice", nil)
		}

		persisted, err := t.store.finalizePersist(t.id, t.pendingPath)
		t.finished = true
		return persisted, err
	})
}

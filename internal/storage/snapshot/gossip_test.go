package snapshot

import "testing"

func TestGossipAnnouncer_OnNewSnapshotQueuesBroadcast(t *testing.T) {
	a := NewGossipAnnouncer("node-1", "partition-1", func() int { return 3 }, nil)

	persisted := &PersistedSnapshot{id: NewId(1, 1, 0, 0), path: t.TempDir(), checksum: 42}
	a.OnNewSnapshot(persisted)

	delegate := a.Delegate()
	msgs := delegate.GetBroadcasts(0, 1<<20)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 queued broadcast, got %d", len(msgs))
	}
}

func TestGossipAnnouncer_NotifyMsgInvokesCallback(t *testing.T) {
	a := NewGossipAnnouncer("node-1", "partition-1", nil, nil)

	var received SnapshotAnnouncement
	a.OnAnnouncement(func(ann SnapshotAnnouncement) { received = ann })

	other := NewGossipAnnouncer("node-2", "partition-1", nil, nil)
	persisted := &PersistedSnapshot{id: NewId(1, 1, 0, 0), path: t.TempDir(), checksum: 42}
	other.OnNewSnapshot(persisted)

	msgs := other.Delegate().GetBroadcasts(0, 1<<20)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 queued broadcast, got %d", len(msgs))
	}

	a.Delegate().NotifyMsg(msgs[0])

	if received.NodeId != "node-2" || received.SnapshotId != NewId(1, 1, 0, 0).String() {
		t.Errorf("unexpected announcement received: %+v", received)
	}
}

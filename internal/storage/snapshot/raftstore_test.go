package snapshot

import (
	"io"
	"testing"

	"github.com/hashicorp/raft"
)

func TestRaftSnapshotStore_CreateListOpenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rss := NewRaftSnapshotStore(s, s, nil)

	configuration := raft.Configuration{
		Servers: []raft.Server{{ID: "node-1", Address: "127.0.0.1:8300"}},
	}

	sink, err := rss.Create(raft.SnapshotVersion(1), 10, 2, configuration, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("fsm-state-bytes")
	if _, err := sink.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	metas, err := rss.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(metas))
	}
	if metas[0].Index != 10 || metas[0].Term != 2 {
		t.Errorf("unexpected meta: %+v", metas[0])
	}

	_, reader, err := rss.Open(metas[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("read back %q, want %q", got, payload)
	}
}

func TestRaftSnapshotStore_CancelDiscardsSnapshot(t *testing.T) {
	s := newTestStore(t)
	rss := NewRaftSnapshotStore(s, s, nil)

	sink, err := rss.Create(raft.SnapshotVersion(1), 1, 1, raft.Configuration{}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	sink.Write([]byte("partial"))
	if err := sink.Cancel(); err != nil {
		t.Fatal(err)
	}

	metas, err := rss.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Errorf("expected no committed snapshots after Cancel, got %d", len(metas))
	}
}

func TestRaftSnapshotStore_ListEmpty(t *testing.T) {
	s := newTestStore(t)
	rss := NewRaftSnapshotStore(s, s, nil)

	metas, err := rss.List()
	if err != nil {
		t.Fatal(err)
	}
	if metas != nil {
		t.Errorf("expected nil for an empty store, got %v", metas)
	}
}

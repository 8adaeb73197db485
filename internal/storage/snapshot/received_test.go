package snapshot

import (
	"context"
	"testing"
)

func TestReceivedSnapshot_MismatchedSnapshotIdRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := NewId(1, 1, 0, 0)
	chunks := buildChunks(t, id.String(), map[string]string{"a": "1"})
	chunks[0].SnapshotId = NewId(2, 1, 0, 0).String()

	rs, err := s.NewReceivedSnapshot(id.String())
	if err != nil {
		t.Fatal(err)
	}

	ok, err := rs.Apply(ctx, chunks[0]).Get()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected a chunk declaring a different snapshot id to be rejected")
	}
}

func TestReceivedSnapshot_DuplicateChunkIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := NewId(1, 1, 0, 0)
	chunks := buildChunks(t, id.String(), map[string]string{"a": "1"})

	rs, err := s.NewReceivedSnapshot(id.String())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		ok, err := rs.Apply(ctx, chunks[0]).Get()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("re-application %d of the same chunk should still succeed", i)
		}
	}

	persisted, err := rs.Persist().Get()
	if err != nil {
		t.Fatal(err)
	}
	if persisted.Id() != id {
		t.Errorf("persisted id = %v, want %v", persisted.Id(), id)
	}
}

func TestReceivedSnapshot_ChunksAfterPersistOrAbortAreNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := NewId(1, 1, 0, 0)
	chunks := buildChunks(t, id.String(), map[string]string{"a": "1"})

	rs, err := s.NewReceivedSnapshot(id.String())
	if err != nil {
		t.Fatal(err)
	}
	rs.Apply(ctx, chunks[0]).Get()
	if _, err := rs.Persist().Get(); err != nil {
		t.Fatal(err)
	}

	ok, err := rs.Apply(ctx, chunks[0]).Get()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected Apply after Persist to report false rather than rewrite")
	}
}

func TestReceivedSnapshot_MidStreamChecksumMutationRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := NewId(1, 1, 0, 0)
	chunks := buildChunks(t, id.String(), map[string]string{"a": "1", "b": "2"})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	rs, err := s.NewReceivedSnapshot(id.String())
	if err != nil {
		t.Fatal(err)
	}

	ok, err := rs.Apply(ctx, chunks[0]).Get()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the first chunk to be accepted")
	}

	mutated := chunks[1]
	mutated.SnapshotChecksum++

	ok, err = rs.Apply(ctx, mutated).Get()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected a later chunk declaring a different snapshot checksum to be rejected")
	}

	ok, err = rs.Apply(ctx, chunks[1]).Get()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the unmutated second chunk to still be accepted after the rejection")
	}

	persisted, err := rs.Persist().Get()
	if err != nil {
		t.Fatal(err)
	}
	if persisted.Id() != id {
		t.Errorf("persisted id = %v, want %v", persisted.Id(), id)
	}
}

func TestReceivedSnapshot_LowerIdSupersededOnPersist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	takeAndPersist(t, s, 5, 1, 0, 0, map[string]string{"a": "current"})

	staleId := NewId(3, 1, 0, 0)
	chunks := buildChunks(t, staleId.String(), map[string]string{"a": "stale"})

	rs, err := s.NewReceivedSnapshot(staleId.String())
	if err != nil {
		t.Fatal(err)
	}
	rs.Apply(ctx, chunks[0]).Get()

	persisted, err := rs.Persist().Get()
	if err == nil {
		t.Fatal("expected persisting a stale received snapshot to fail as superseded")
	}
	if persisted == nil || persisted.Id() != NewId(5, 1, 0, 0) {
		t.Errorf("expected the current committed snapshot to be returned, got %v", persisted)
	}
}

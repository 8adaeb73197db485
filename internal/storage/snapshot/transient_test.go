package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTransientSnapshot_TakeFailureAbortsPending(t *testing.T) {
	s := newTestStore(t)

	ts, err := s.NewTransientSnapshot(1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ts.Take(func(path string) bool {
		os.WriteFile(filepath.Join(path, "a"), []byte("1"), 0o644)
		return false
	}).Get()
	if err == nil {
		t.Fatal("expected Take to fail when the writer callback returns false")
	}

	entries, err := os.ReadDir(s.layout.pendingDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected the aborted pending directory to be purged, found %d entries", len(entries))
	}

	if _, err := ts.Persist().Get(); err == nil {
		t.Error("expected Persist to fail after a failed Take")
	}
}

func TestTransientSnapshot_PersistTwiceFails(t *testing.T) {
	s := newTestStore(t)

	ts, err := s.NewTransientSnapshot(1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	ts.Take(func(path string) bool {
		os.WriteFile(filepath.Join(path, "a"), []byte("1"), 0o644)
		return true
	}).Get()

	if _, err := ts.Persist().Get(); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Persist().Get(); err == nil {
		t.Error("expected the second Persist call to fail")
	}
}

func TestTransientSnapshot_PersistBeforeTakeFails(t *testing.T) {
	s := newTestStore(t)

	ts, err := s.NewTransientSnapshot(1, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ts.Persist().Get(); err == nil {
		t.Error("expected Persist before Take to fail")
	}
}

func TestTransientSnapshot_LowerIdSupersededOnPersist(t *testing.T) {
	s := newTestStore(t)

	takeAndPersist(t, s, 5, 1, 0, 0, map[string]string{"a": "1"})

	// Build a transient handle directly (bypassing NewTransientSnapshot's
	// monotonicity gate) to exercise finalizePersist's superseded branch.
	ts := &TransientSnapshot{store: s, id: NewId(3, 1, 0, 0)}
	ts.Take(func(path string) bool {
		os.WriteFile(filepath.Join(path, "a"), []byte("stale"), 0o644)
		return true
	}).Get()

	persisted, err := ts.Persist().Get()
	if err == nil {
		t.Fatal("expected superseded error")
	}
	if persisted == nil || persisted.Id() != NewId(5, 1, 0, 0) {
		t.Errorf("expected the existing newer snapshot to be returned, got %v", persisted)
	}
}

package snapshot

import (
	"context"
	"testing"
)

func TestFactory_CachesStoresPerPartition(t *testing.T) {
	f := NewFactory("node-1", []string{t.TempDir()}, nil)
	defer f.CloseAll(context.Background())

	s1, err := f.GetConstructableSnapshotStore("partition-1")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := f.GetConstructableSnapshotStore("partition-1")
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Error("expected repeated lookups of the same partition to return the same store instance")
	}

	s3, err := f.CreateReceivableSnapshotStore("partition-1")
	if err != nil {
		t.Fatal(err)
	}
	if s1.(*Store) != s3.(*Store) {
		t.Error("expected both capability views to wrap the identical underlying Store")
	}
}

func TestFactory_ShardsAcrossMultipleRoots(t *testing.T) {
	roots := []string{t.TempDir(), t.TempDir(), t.TempDir()}
	f := NewFactory("node-1", roots, nil)

	assignment := make(map[string]string)
	for i := 0; i < 50; i++ {
		partitionId := string(rune('a' + i))
		root, err := f.rootFor(partitionId)
		if err != nil {
			t.Fatal(err)
		}
		assignment[partitionId] = root

		again, err := f.rootFor(partitionId)
		if err != nil {
			t.Fatal(err)
		}
		if again != root {
			t.Errorf("partition %q resolved to a different root on a second call: %q vs %q", partitionId, root, again)
		}
	}

	seen := make(map[string]bool)
	for _, root := range assignment {
		seen[root] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected partitions to spread across multiple roots, all landed on %d", len(seen))
	}
}

func TestFactory_NoRootsConfigured(t *testing.T) {
	f := NewFactory("node-1", nil, nil)
	if _, err := f.GetConstructableSnapshotStore("partition-1"); err == nil {
		t.Error("expected an error when the factory has no configured data roots")
	}
}

func TestFactory_CloseAll(t *testing.T) {
	f := NewFactory("node-1", []string{t.TempDir()}, nil)

	if _, err := f.GetConstructableSnapshotStore("partition-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.GetConstructableSnapshotStore("partition-2"); err != nil {
		t.Fatal(err)
	}

	if err := f.CloseAll(context.Background()); err != nil {
		t.Fatal(err)
	}
}

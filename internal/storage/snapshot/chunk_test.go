package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVerifyChunk(t *testing.T) {
	content := []byte("hello world")
	c := Chunk{Content: content, Checksum: ChecksumContent(content)}
	if !VerifyChunk(c) {
		t.Error("expected VerifyChunk to succeed for matching checksum")
	}

	c.Checksum++
	if VerifyChunk(c) {
		t.Error("expected VerifyChunk to fail for mismatched checksum")
	}
}

func TestAggregateChecksum_OrderIndependentOfCreationOrder(t *testing.T) {
	dir := t.TempDir()

	// Write files in reverse alphabetical order; the checksum must still be
	// computed in ascending lexicographic order regardless.
	mustWriteFile(t, filepath.Join(dir, "b.txt"), []byte("second"))
	mustWriteFile(t, filepath.Join(dir, "a.txt"), []byte("first"))

	sum1, err := AggregateChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}

	dir2 := t.TempDir()
	mustWriteFile(t, filepath.Join(dir2, "a.txt"), []byte("first"))
	mustWriteFile(t, filepath.Join(dir2, "b.txt"), []byte("second"))

	sum2, err := AggregateChecksum(dir2)
	if err != nil {
		t.Fatal(err)
	}

	if sum1 != sum2 {
		t.Errorf("checksums differ based on write order: %d != %d", sum1, sum2)
	}
}

func TestAggregateChecksum_ChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), []byte("first"))
	sum1, err := AggregateChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}

	mustWriteFile(t, filepath.Join(dir, "a.txt"), []byte("first!"))
	sum2, err := AggregateChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}

	if sum1 == sum2 {
		t.Error("expected checksum to change when file content changes")
	}
}

func TestChunk_EncodeDecodeRoundTrip(t *testing.T) {
	c := Chunk{
		SnapshotId:       "10-2-100-50",
		TotalCount:       3,
		ChunkName:        "state.bin",
		Content:          []byte("some snapshot bytes"),
		Checksum:         ChecksumContent([]byte("some snapshot bytes")),
		SnapshotChecksum: 0xDEADBEEF,
	}

	encoded := c.Encode()
	decoded, err := DecodeChunk(encoded)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.SnapshotId != c.SnapshotId ||
		decoded.TotalCount != c.TotalCount ||
		decoded.ChunkName != c.ChunkName ||
		string(decoded.Content) != string(c.Content) ||
		decoded.Checksum != c.Checksum ||
		decoded.SnapshotChecksum != c.SnapshotChecksum {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, c)
	}
}

func mustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

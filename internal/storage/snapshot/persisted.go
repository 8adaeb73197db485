package snapshot

import (
	"os"
	"path/filepath"
)

// PersistedSnapshot is an immutable handle to a committed snapshot
// directory. It stays valid (and its directory stays on disk) until the
// store replaces it with a newer persisted snapshot.
type PersistedSnapshot struct {
	id       Id
	path     string
	checksum uint64
}

// Id returns the snapshot's identifier.
func (p *PersistedSnapshot) Id() Id { return p.id }

// Path returns the committed snapshot directory's path on disk.
func (p *PersistedSnapshot) Path() string { return p.path }

// Checksum returns the aggregate CRC32C of the snapshot's content files.
func (p *PersistedSnapshot) Checksum() uint64 { return p.checksum }

// NewChunkReader returns a reader that yields the snapshot's content files
// as Chunk records, in ascending filename order, with the same
// totalCount/snapshotChecksum a fresh sender would compute. This lets a
// node that received a snapshot turn around and re-send it without
// re-deriving the chunk stream from scratch.
func (p *PersistedSnapshot) NewChunkReader() (*ChunkReader, error) {
	names, err := sortedFileNames(p.path)
	if err != nil {
		return nil, err
	}
	return &ChunkReader{snapshot: p, names: names}, nil
}

// ChunkReader iterates a PersistedSnapshot's content files as Chunk records.
type ChunkReader struct {
	snapshot *PersistedSnapshot
	names    []string
	i        int
}

// Next returns the next chunk, or ok=false once every file has been
// emitted.
func (r *ChunkReader) Next() (chunk Chunk, ok bool, err error) {
	if r.i >= len(r.names) {
		return Chunk{}, false, nil
	}

	name := r.names[r.i]
	content, err := os.ReadFile(filepath.Join(r.snapshot.path, name))
	if err != nil {
		return Chunk{}, false, domainIoError("read "+name, err)
	}
	r.i++

	return Chunk{
		SnapshotId:       r.snapshot.id.String(),
		TotalCount:       uint32(len(r.names)),
		ChunkName:        name,
		Content:          content,
		Checksum:         ChecksumContent(content),
		SnapshotChecksum: r.snapshot.checksum,
	}, true, nil
}

// PersistedSnapshotListener is notified whenever the store's committed
// snapshot advances.
type PersistedSnapshotListener interface {
	OnNewSnapshot(snapshot *PersistedSnapshot)
}

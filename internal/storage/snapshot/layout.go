package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	snapshotsDirName = "snapshots"
	pendingDirName   = "pending"
	checksumSuffix   = ".checksum"
)

// layout owns the two directories under a partition root and the
// rename/fsync sequence that moves a directory from pending/ into
// snapshots/ atomically.
type layout struct {
	root string
}

func newLayout(root string) *layout {
	return &layout{root: root}
}

func (l *layout) snapshotsDir() string { return filepath.Join(l.root, snapshotsDirName) }
func (l *layout) pendingDir() string   { return filepath.Join(l.root, pendingDirName) }

// ensureDirs creates snapshots/ and pending/ under root if absent.
func (l *layout) ensureDirs() error {
	for _, dir := range []string{l.snapshotsDir(), l.pendingDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domainIoError("create "+dir, err)
		}
	}
	return nil
}

// allocatePendingPath returns pending/<id>-<n> for the smallest positive n
// such that the path does not already exist, and creates that directory.
func (l *layout) allocatePendingPath(id Id) (string, error) {
	idStr := id.String()
	for n := 1; ; n++ {
		path := filepath.Join(l.pendingDir(), fmt.Sprintf("%s-%d", idStr, n))
		if err := os.Mkdir(path, 0o755); err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", domainIoError("create pending dir "+path, err)
		}
		return path, nil
	}
}

// commit fsyncs pendingPath, renames it to snapshots/<finalName>, then
// fsyncs the snapshots/ parent directory. On any error the pending
// directory is left intact so the caller can retry or abort.
func (l *layout) commit(pendingPath, finalName string) (string, error) {
	if err := fsyncDir(pendingPath); err != nil {
		return "", domainIoError("fsync "+pendingPath, err)
	}

	dest := filepath.Join(l.snapshotsDir(), finalName)
	if err := os.Rename(pendingPath, dest); err != nil {
		return "", domainIoError(fmt.Sprintf("rename %s to %s", pendingPath, dest), err)
	}

	if err := fsyncDir(l.snapshotsDir()); err != nil {
		return "", domainIoError("fsync "+l.snapshotsDir(), err)
	}

	return dest, nil
}

// purge recursively deletes path. Failures are logged by the caller, not
// returned as fatal: a failed purge leaves disk usage slightly elevated but
// never corrupts an invariant.
func (l *layout) purge(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return domainIoError("purge "+path, err)
	}
	return nil
}

// fsyncDir opens dir and calls Sync, which on POSIX filesystems persists
// the directory entry changes (creates, renames, deletes) made within it.
func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// checksumFilePath returns the path of the checksum sidecar that lives
// inside snapshotDir, named after the snapshot id it belongs to.
func checksumFilePath(snapshotDir, idStr string) string {
	return filepath.Join(snapshotDir, idStr+checksumSuffix)
}

// writeChecksumSidecar writes the aggregate CRC32C as an 8-byte big-endian
// value at path.
func writeChecksumSidecar(path string, checksum uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], checksum)
	if err := os.WriteFile(path, buf[:], 0o644); err != nil {
		return domainIoError("write checksum sidecar "+path, err)
	}
	return nil
}

// readChecksumSidecar reads back an 8-byte big-endian CRC32C written by
// writeChecksumSidecar.
func readChecksumSidecar(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, domainIoError("read checksum sidecar "+path, err)
	}
	if len(b) != 8 {
		return 0, domainCorrupted(fmt.Sprintf("checksum sidecar %s has %d bytes, want 8", path, len(b)))
	}
	return binary.BigEndian.Uint64(b), nil
}

// directoriesEqual reports whether a and b contain the same set of content
// files (excluding the checksum sidecar) with byte-identical contents. Used
// only on the rare concurrent-same-id persist race, as a defensive check
// beyond trusting the checksum match alone.
func directoriesEqual(a, b string) (bool, error) {
	namesA, err := sortedFileNames(a)
	if err != nil {
		return false, err
	}
	namesB, err := sortedFileNames(b)
	if err != nil {
		return false, err
	}
	if len(namesA) != len(namesB) {
		return false, nil
	}
	for i := range namesA {
		if namesA[i] != namesB[i] {
			return false, nil
		}
		contentA, err := os.ReadFile(filepath.Join(a, namesA[i]))
		if err != nil {
			return false, domainIoError("read "+namesA[i], err)
		}
		contentB, err := os.ReadFile(filepath.Join(b, namesB[i]))
		if err != nil {
			return false, domainIoError("read "+namesB[i], err)
		}
		if !bytes.Equal(contentA, contentB) {
			return false, nil
		}
	}
	return true, nil
}

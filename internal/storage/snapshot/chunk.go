package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// castagnoli is the CRC32C table used for both per-chunk and aggregate
// snapshot checksums. This is a deliberate departure from the log stream's
// CRC32 (IEEE) framing: chunk integrity needs to interoperate with senders
// and receivers that only ever speak CRC32C over the wire.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Chunk is the wire unit of a snapshot transfer.
type Chunk struct {
	SnapshotId       string
	TotalCount       uint32
	ChunkName        string
	Content          []byte
	Checksum         uint64 // CRC32C of Content
	SnapshotChecksum uint64 // aggregate CRC32C of the whole snapshot
}

// ChecksumContent computes the CRC32C of b.
func ChecksumContent(b []byte) uint64 {
	return uint64(crc32.Checksum(b, castagnoli))
}

// VerifyChunk reports whether c's declared per-chunk checksum matches the
// CRC32C of its content.
func VerifyChunk(c Chunk) bool {
	return ChecksumContent(c.Content) == c.Checksum
}

// AggregateChecksum computes the canonical aggregate CRC32C of a snapshot
// directory's files: the concatenation of each file's content, processed in
// ascending byte-lexicographic filename order, each prefixed by its 4-byte
// big-endian length. This ordering is the only cross-node canonicalization
// step and must be reproduced exactly by any sender or receiver.
func AggregateChecksum(dir string) (uint64, error) {
	names, err := sortedFileNames(dir)
	if err != nil {
		return 0, err
	}

	crc := crc32.New(castagnoli)
	var lenBuf [4]byte
	for _, name := range names {
		f, err := os.Open(dir + string(os.PathSeparator) + name)
		if err != nil {
			return 0, domainIoError("open "+name+" for checksum", err)
		}

		info, err := f.Stat()
		if err != nil {
			f.Close()
			return 0, domainIoError("stat "+name+" for checksum", err)
		}

		binary.BigEndian.PutUint32(lenBuf[:], uint32(info.Size()))
		if _, err := crc.Write(lenBuf[:]); err != nil {
			f.Close()
			return 0, domainIoError("write length prefix for "+name, err)
		}

		if _, err := io.Copy(crc, bufio.NewReader(f)); err != nil {
			f.Close()
			return 0, domainIoError("read "+name+" for checksum", err)
		}
		f.Close()
	}

	return uint64(crc.Sum32()), nil
}

// sortedFileNames lists the regular files directly inside dir, in ascending
// byte-lexicographic order. Subdirectories and the checksum sidecar itself
// are skipped here, so only a snapshot directory's content files are listed.
func sortedFileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domainIoError("list "+dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), checksumSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Encode writes c's protowire encoding to w: field 1 snapshotId (string),
// field 2 totalCount (varint), field 3 chunkName (string), field 4 content
// (bytes), field 5 checksum (varint), field 6 snapshotChecksum (varint).
// This hand-written encoding lets a raw-frame transport drive the engine
// without generated protobuf message code.
func (c Chunk) Encode() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, c.SnapshotId)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.TotalCount))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, c.ChunkName)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, c.Content)
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, c.Checksum)
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, c.SnapshotChecksum)
	return b
}

// DecodeChunk parses the wire encoding produced by Chunk.Encode. Unknown
// fields are skipped rather than rejected, matching protobuf's forward
// compatibility rules.
func DecodeChunk(b []byte) (Chunk, error) {
	var c Chunk

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid snapshotId: %w", protowire.ParseError(n))
			}
			c.SnapshotId = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid totalCount: %w", protowire.ParseError(n))
			}
			c.TotalCount = uint32(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid chunkName: %w", protowire.ParseError(n))
			}
			c.ChunkName = v
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid content: %w", protowire.ParseError(n))
			}
			c.Content = append([]byte(nil), v...)
			b = b[n:]
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid checksum: %w", protowire.ParseError(n))
			}
			c.Checksum = v
			b = b[n:]
		case 6:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid snapshotChecksum: %w", protowire.ParseError(n))
			}
			c.SnapshotChecksum = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Chunk{}, fmt.Errorf("snapshot: decode chunk: invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return c, nil
}

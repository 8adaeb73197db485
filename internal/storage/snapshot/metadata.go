package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// Id is a totally-ordered snapshot identifier: index-term-processedPosition-
// exportedPosition. Index and term come from the replication log; processed
// and exported position track how far the state machine has consumed and
// exported records as of the snapshot. Ordering is lexicographic on the
// 4-tuple, so a snapshot is newer than another iff its tuple compares
// strictly greater.
type Id struct {
	Index              uint64
	Term               uint64
	ProcessedPosition  uint64
	ExportedPosition   uint64
}

// NewId constructs an Id from its four fields.
func NewId(index, term, processedPosition, exportedPosition uint64) Id {
	return Id{
		Index:             index,
		Term:              term,
		ProcessedPosition: processedPosition,
		ExportedPosition:  exportedPosition,
	}
}

// String formats the id in its canonical "index-term-processed-exported"
// form, the exact name a committed snapshot directory carries on disk.
func (id Id) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", id.Index, id.Term, id.ProcessedPosition, id.ExportedPosition)
}

// Compare returns -1, 0, or 1 as id is less than, equal to, or greater than
// other, comparing fields in order (Index, Term, ProcessedPosition,
// ExportedPosition).
func (id Id) Compare(other Id) int {
	switch {
	case id.Index != other.Index:
		return cmpUint64(id.Index, other.Index)
	case id.Term != other.Term:
		return cmpUint64(id.Term, other.Term)
	case id.ProcessedPosition != other.ProcessedPosition:
		return cmpUint64(id.ProcessedPosition, other.ProcessedPosition)
	default:
		return cmpUint64(id.ExportedPosition, other.ExportedPosition)
	}
}

// NewerThan reports whether id strictly follows other in the total order.
func (id Id) NewerThan(other Id) bool {
	return id.Compare(other) > 0
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ParseId parses a directory name of the form "index-term-processed-exported"
// into an Id. A pending directory's "-<seq>" disambiguator must already be
// stripped by the caller (see splitPendingName).
func ParseId(name string) (Id, error) {
	fields := strings.Split(name, "-")
	if len(fields) != 4 {
		return Id{}, domainInvalidId(name, "expected 4 dash-separated fields")
	}

	var values [4]uint64
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return Id{}, domainInvalidId(name, fmt.Sprintf("field %d (%q) is not an unsigned integer", i, f))
		}
		values[i] = v
	}

	return NewId(values[0], values[1], values[2], values[3]), nil
}

// splitPendingName splits a pending directory name "<id>-<seq>" into its id
// string and the trailing sequence number. Because an Id itself contains
// dashes, the sequence is always the last field; the remaining fields
// (joined back with "-") form the id.
func splitPendingName(name string) (idPart string, seq int, ok bool) {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return "", 0, false
	}
	seqStr := name[i+1:]
	n, err := strconv.Atoi(seqStr)
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return name[:i], n, true
}

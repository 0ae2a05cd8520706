package laz

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ChunkTableVersion is the version field written at the head of the
// chunk table, mirroring the lazperf chunk-table layout the writer's
// Close protocol emits (spec.md §4.5 step 2).
const ChunkTableVersion = 0

// ChunkEntry records one compressed chunk's absolute file offset and point
// count.
type ChunkEntry struct {
	Offset     int64
	PointCount int32
}

// ChunkTable is the writer's ordered record of every chunk it has
// appended, used to build the compressed chunk-table tail.
type ChunkTable struct {
	Entries []ChunkEntry
}

// MaxChunks is the largest chunk count the 32-bit chunk-table count field
// can hold (spec.md §7's "too many chunks for a 32-bit count").
const MaxChunks = 1<<32 - 1

// ErrInvariantViolated is the category sentinel for spec.md §7's
// "invariant-violated" error kind (conditions that can only arise from a
// bug in the writer itself, not from bad input). Declared here since the
// chunk-table overflow is the lowest-level condition in this category;
// other packages wrap it for their own invariant checks.
var ErrInvariantViolated = errors.New("laz: invariant violated")

// ErrTooManyChunks is returned when the chunk count would overflow the
// table's 32-bit count field.
var ErrTooManyChunks = errors.Wrap(ErrInvariantViolated, "laz: too many chunks for a 32-bit chunk table")

// EncodeDeltas rewrites Entries' offsets from absolute to delta form
// (relative to the previous chunk's offset, or firstChunkOffset for the
// first entry), the fixup spec.md §4.5 step 2 performs before handing the
// table to the codec.
func (t ChunkTable) EncodeDeltas(firstChunkOffset int64) []ChunkEntry {
	out := make([]ChunkEntry, len(t.Entries))
	prev := firstChunkOffset
	for i, e := range t.Entries {
		out[i] = ChunkEntry{Offset: e.Offset - prev, PointCount: e.PointCount}
		prev = e.Offset
	}
	return out
}

// DecodeDeltas reverses EncodeDeltas, turning relative offsets back into
// absolute ones.
func DecodeDeltas(deltas []ChunkEntry, firstChunkOffset int64) []ChunkEntry {
	out := make([]ChunkEntry, len(deltas))
	prev := firstChunkOffset
	for i, e := range deltas {
		abs := prev + e.Offset
		out[i] = ChunkEntry{Offset: abs, PointCount: e.PointCount}
		prev = abs
	}
	return out
}

// Encode serializes the (already delta-encoded) table as a version+count
// header followed by (offset, point_count) pairs, then compresses the
// whole thing with codec.
func Encode(codec Codec, deltas []ChunkEntry) ([]byte, error) {
	if uint64(len(deltas)) > MaxChunks {
		return nil, errors.Wrapf(ErrTooManyChunks, "%d chunks", len(deltas))
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(ChunkTableVersion))
	binary.Write(&buf, binary.LittleEndian, uint32(len(deltas)))
	for _, e := range deltas {
		binary.Write(&buf, binary.LittleEndian, e.Offset)
		binary.Write(&buf, binary.LittleEndian, e.PointCount)
	}
	return codec.Compress(buf.Bytes(), Params{})
}

// Decode reverses Encode, returning the delta-encoded entries (callers
// apply DecodeDeltas to recover absolute offsets).
func Decode(codec Codec, compressed []byte) ([]ChunkEntry, error) {
	raw, err := codec.Decompress(compressed, Params{}, 0)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(raw)
	var version, count uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(err, "laz: reading chunk table version")
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "laz: reading chunk table count")
	}
	out := make([]ChunkEntry, count)
	for i := range out {
		if err := binary.Read(r, binary.LittleEndian, &out[i].Offset); err != nil {
			return nil, errors.Wrap(err, "laz: reading chunk table entry offset")
		}
		if err := binary.Read(r, binary.LittleEndian, &out[i].PointCount); err != nil {
			return nil, errors.Wrap(err, "laz: reading chunk table entry count")
		}
	}
	return out, nil
}

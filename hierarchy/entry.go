// Package hierarchy implements the COPC hierarchy's index records (Entry)
// and their containers (Page): the paged, offset-linked structure that maps
// octree voxel keys to compressed point chunks or further pages.
package hierarchy

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/copc-go/copc/voxelkey"
)

// EntrySize is the fixed on-wire size of one hierarchy entry (spec.md
// §4.2): 4 x int32 key + int64 offset + int32 size + int32 count.
const EntrySize = 32

// Kind discriminates Entry's tagged-union variants (spec.md §9: "expose
// this as a sum type with explicit variants rather than a raw struct with
// magic numbers").
type Kind int

const (
	// KindEmpty is a reservation with no payload (offset=0, size=0, count=0).
	KindEmpty Kind = iota
	// KindNode points to a compressed chunk of points.
	KindNode
	// KindPage points to a child hierarchy page.
	KindPage
)

// Entry is one hierarchy index record.
type Entry struct {
	Key        voxelkey.Key
	Offset     int64
	ByteSize   int32
	PointCount int32
}

// Kind classifies the entry per spec.md §3's Node / Page-pointer / Empty
// variants, keyed off PointCount's sign and the offset/size fields.
func (e Entry) Kind() Kind {
	switch {
	case e.PointCount == -1:
		return KindPage
	case e.Offset == 0 && e.ByteSize == 0 && e.PointCount == 0:
		return KindEmpty
	default:
		return KindNode
	}
}

// IsNode, IsPage, IsEmpty are convenience predicates over Kind.
func (e Entry) IsNode() bool  { return e.Kind() == KindNode }
func (e Entry) IsPage() bool  { return e.Kind() == KindPage }
func (e Entry) IsEmpty() bool { return e.Kind() == KindEmpty }

// NewPageEntry returns a page-pointer Entry for key, referencing a
// sub-page of byteSize bytes at offset.
func NewPageEntry(key voxelkey.Key, offset int64, byteSize int32) Entry {
	return Entry{Key: key, Offset: offset, ByteSize: byteSize, PointCount: -1}
}

// NewEmptyEntry returns a zero-payload placeholder Entry for key.
func NewEmptyEntry(key voxelkey.Key) Entry {
	return Entry{Key: key}
}

// Marshal serializes one entry to its 32-byte wire form.
func (e Entry) Marshal() []byte {
	buf := make([]byte, EntrySize)
	w := bytes.NewBuffer(buf[:0])
	binary.Write(w, binary.LittleEndian, e.Key.D)
	binary.Write(w, binary.LittleEndian, e.Key.X)
	binary.Write(w, binary.LittleEndian, e.Key.Y)
	binary.Write(w, binary.LittleEndian, e.Key.Z)
	binary.Write(w, binary.LittleEndian, e.Offset)
	binary.Write(w, binary.LittleEndian, e.ByteSize)
	binary.Write(w, binary.LittleEndian, e.PointCount)
	return w.Bytes()
}

// UnmarshalEntry parses one 32-byte entry.
func UnmarshalEntry(data []byte) (Entry, error) {
	if len(data) < EntrySize {
		return Entry{}, errors.Errorf("hierarchy: entry needs %d bytes, got %d", EntrySize, len(data))
	}
	r := bytes.NewReader(data[:EntrySize])
	var e Entry
	binary.Read(r, binary.LittleEndian, &e.Key.D)
	binary.Read(r, binary.LittleEndian, &e.Key.X)
	binary.Read(r, binary.LittleEndian, &e.Key.Y)
	binary.Read(r, binary.LittleEndian, &e.Key.Z)
	binary.Read(r, binary.LittleEndian, &e.Offset)
	binary.Read(r, binary.LittleEndian, &e.ByteSize)
	binary.Read(r, binary.LittleEndian, &e.PointCount)
	return e, nil
}

// Package lasio implements the LAS 1.4 public header, VLR/EVLR byte codecs,
// the extra-bytes record, and point-record packing for point formats 6-8.
// spec.md treats this serialization as an external collaborator reached only
// through the interfaces it names; no library in the retrieval pack
// implements the exact bit-for-bit layout COPC requires (see DESIGN.md), so
// this package is that collaborator's concrete, in-repo implementation.
package lasio

import (
	"bytes"
	"encoding/binary"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// HeaderSize is the fixed byte length of a LAS 1.4 public header block.
const HeaderSize = 375

// CopcInfoOffset is the fixed file offset, per spec.md's invariant 1, at
// which the COPC-info VLR's payload begins: the VLR header occupies bytes
// [HeaderSize, HeaderSize+VlrHeaderSize) = [375, 429), with the COPC-info
// VLR always the first (and, per the COPC container contract, only
// mandatory) VLR in the file.
const CopcInfoOffset = HeaderSize + VlrHeaderSize


// Header is the LAS 1.4 public header block. Field names follow the ASPRS
// spec; only the subset spec.md §3 names as consumed by the core
// (Scale, Offset, Min, Max, PointFormatID, PointRecordLength,
// PointsByReturn) is given special treatment elsewhere — the rest round
// trips byte-identically so spec.md §8's header round-trip property holds.
type Header struct {
	FileSourceID          uint16
	GlobalEncoding        uint16
	GUID                  [16]byte
	VersionMajor          uint8
	VersionMinor          uint8
	SystemIdentifier      [32]byte
	GeneratingSoftware    [32]byte
	FileCreationDayOfYear uint16
	FileCreationYear      uint16

	PointDataOffset uint32
	NumVLRs         uint32

	PointFormatID     uint8
	PointRecordLength uint16

	Scale, Offset r3.Vector
	Min, Max      r3.Vector

	WaveformDataStart uint64
	EVLROffset        uint64
	NumEVLRs          uint32

	PointCount     uint64
	PointsByReturn [15]uint64
}

const fileSignature = "LASF"

// DefaultScale is the default per-axis scale factor for newly constructed
// headers (spec.md §4.6).
var DefaultScale = r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}

// ErrFormatInvalid is the category sentinel for spec.md §7's
// "format-invalid" error kind (missing COPC-info VLR, wrong VLR size,
// truncated page, chunk table unreadable). Declared here since header/VLR
// signature and length checks are lasio's; other packages wrap it for
// their own wire-format conditions.
var ErrFormatInvalid = errors.New("lasio: invalid file format")

// ErrBadSignature is returned by UnmarshalBinary when the leading 4 bytes
// are not "LASF".
var ErrBadSignature = errors.Wrap(ErrFormatInvalid, "lasio: bad file signature")

// ErrTruncated is returned when fewer than HeaderSize bytes are available.
var ErrTruncated = errors.Wrap(ErrFormatInvalid, "lasio: truncated header")

// MarshalBinary serializes h to the fixed 375-byte LAS 1.4 layout.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	w := bytes.NewBuffer(buf[:0])

	w.WriteString(fileSignature)
	binary.Write(w, binary.LittleEndian, h.FileSourceID)
	binary.Write(w, binary.LittleEndian, h.GlobalEncoding)
	w.Write(h.GUID[:])
	w.WriteByte(h.VersionMajor)
	w.WriteByte(h.VersionMinor)
	w.Write(h.SystemIdentifier[:])
	w.Write(h.GeneratingSoftware[:])
	binary.Write(w, binary.LittleEndian, h.FileCreationDayOfYear)
	binary.Write(w, binary.LittleEndian, h.FileCreationYear)
	binary.Write(w, binary.LittleEndian, uint16(HeaderSize))
	binary.Write(w, binary.LittleEndian, h.PointDataOffset)
	binary.Write(w, binary.LittleEndian, h.NumVLRs)
	w.WriteByte(h.PointFormatID)
	binary.Write(w, binary.LittleEndian, h.PointRecordLength)

	// Legacy 1.2-era point count / points-by-return: 0 when the real counts
	// don't fit in 32 bits, which is always true for the legacy fields once
	// NumEVLRs-style 1.4 extended fields are in play; COPC files are always
	// written as 1.4, so these stay zero.
	binary.Write(w, binary.LittleEndian, uint32(0))
	for i := 0; i < 5; i++ {
		binary.Write(w, binary.LittleEndian, uint32(0))
	}

	binary.Write(w, binary.LittleEndian, h.Scale.X)
	binary.Write(w, binary.LittleEndian, h.Scale.Y)
	binary.Write(w, binary.LittleEndian, h.Scale.Z)
	binary.Write(w, binary.LittleEndian, h.Offset.X)
	binary.Write(w, binary.LittleEndian, h.Offset.Y)
	binary.Write(w, binary.LittleEndian, h.Offset.Z)
	binary.Write(w, binary.LittleEndian, h.Max.X)
	binary.Write(w, binary.LittleEndian, h.Min.X)
	binary.Write(w, binary.LittleEndian, h.Max.Y)
	binary.Write(w, binary.LittleEndian, h.Min.Y)
	binary.Write(w, binary.LittleEndian, h.Max.Z)
	binary.Write(w, binary.LittleEndian, h.Min.Z)

	binary.Write(w, binary.LittleEndian, h.WaveformDataStart)
	binary.Write(w, binary.LittleEndian, h.EVLROffset)
	binary.Write(w, binary.LittleEndian, h.NumEVLRs)
	binary.Write(w, binary.LittleEndian, h.PointCount)
	for _, v := range h.PointsByReturn {
		binary.Write(w, binary.LittleEndian, v)
	}

	out := w.Bytes()
	if len(out) != HeaderSize {
		return nil, errors.Errorf("lasio: serialized header is %d bytes, want %d", len(out), HeaderSize)
	}
	return out, nil
}

// UnmarshalBinary parses a 375-byte LAS 1.4 public header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return errors.Wrapf(ErrTruncated, "got %d bytes", len(data))
	}
	r := bytes.NewReader(data[:HeaderSize])

	var sig [4]byte
	r.Read(sig[:])
	if string(sig[:]) != fileSignature {
		return errors.Wrapf(ErrBadSignature, "got %q", sig[:])
	}

	binary.Read(r, binary.LittleEndian, &h.FileSourceID)
	binary.Read(r, binary.LittleEndian, &h.GlobalEncoding)
	r.Read(h.GUID[:])
	h.VersionMajor, _ = r.ReadByte()
	h.VersionMinor, _ = r.ReadByte()
	r.Read(h.SystemIdentifier[:])
	r.Read(h.GeneratingSoftware[:])
	binary.Read(r, binary.LittleEndian, &h.FileCreationDayOfYear)
	binary.Read(r, binary.LittleEndian, &h.FileCreationYear)

	var headerSize uint16
	binary.Read(r, binary.LittleEndian, &headerSize)
	binary.Read(r, binary.LittleEndian, &h.PointDataOffset)
	binary.Read(r, binary.LittleEndian, &h.NumVLRs)
	h.PointFormatID, _ = r.ReadByte()
	binary.Read(r, binary.LittleEndian, &h.PointRecordLength)

	var legacyCount uint32
	binary.Read(r, binary.LittleEndian, &legacyCount)
	for i := 0; i < 5; i++ {
		var v uint32
		binary.Read(r, binary.LittleEndian, &v)
	}

	binary.Read(r, binary.LittleEndian, &h.Scale.X)
	binary.Read(r, binary.LittleEndian, &h.Scale.Y)
	binary.Read(r, binary.LittleEndian, &h.Scale.Z)
	binary.Read(r, binary.LittleEndian, &h.Offset.X)
	binary.Read(r, binary.LittleEndian, &h.Offset.Y)
	binary.Read(r, binary.LittleEndian, &h.Offset.Z)
	binary.Read(r, binary.LittleEndian, &h.Max.X)
	binary.Read(r, binary.LittleEndian, &h.Min.X)
	binary.Read(r, binary.LittleEndian, &h.Max.Y)
	binary.Read(r, binary.LittleEndian, &h.Min.Y)
	binary.Read(r, binary.LittleEndian, &h.Max.Z)
	binary.Read(r, binary.LittleEndian, &h.Min.Z)

	binary.Read(r, binary.LittleEndian, &h.WaveformDataStart)
	binary.Read(r, binary.LittleEndian, &h.EVLROffset)
	binary.Read(r, binary.LittleEndian, &h.NumEVLRs)
	binary.Read(r, binary.LittleEndian, &h.PointCount)
	for i := range h.PointsByReturn {
		binary.Read(r, binary.LittleEndian, &h.PointsByReturn[i])
	}

	return nil
}

// setBoundedString copies s into dst, truncation-checked rather than
// silently truncated: spec.md §7 classifies an oversized system
// identifier/generating-software as config-invalid.
func setBoundedString(dst []byte, s string, field string) error {
	if len(s) > len(dst) {
		return errors.Wrapf(ErrConfigInvalid, "lasio: %s %q exceeds %d bytes", field, s, len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
	return nil
}

// SetSystemIdentifier sets the header's system identifier field.
func (h *Header) SetSystemIdentifier(s string) error {
	return setBoundedString(h.SystemIdentifier[:], s, "system identifier")
}

// SetGeneratingSoftware sets the header's generating-software field.
func (h *Header) SetGeneratingSoftware(s string) error {
	return setBoundedString(h.GeneratingSoftware[:], s, "generating software")
}

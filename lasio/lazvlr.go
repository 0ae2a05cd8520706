package lasio

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// LazVlrItemSize is the on-wire size of one LazVlrItem record.
const LazVlrItemSize = 6

// LazVlrFixedSize is the LAZ VLR payload's fixed-width portion, before its
// variable-length item list.
const LazVlrFixedSize = 2 + 2 + 1 + 1 + 2 + 4 + 4 + 8 + 8 + 8 + 2

// LazVlrItem names one per-point-record field group a real LASzip stream
// would compress independently. DefaultCodec compresses a chunk as one
// opaque blob rather than per-field, so a default LazVlr carries a single
// catch-all item; the shape follows the LASzip VLR layout, plus an added
// ChunkTableOffset field, so the container round-trips cleanly even though
// Compressor/Items don't drive any real per-field entropy coding (see
// DESIGN.md).
type LazVlrItem struct {
	Type    uint16
	Size    uint16
	Version uint16
}

// LazVlr is the LAZ compression-parameters VLR: the compressor identifier,
// chunking parameters, the back-patched chunk-table offset, and the list
// of per-record item groups.
type LazVlr struct {
	Compressor         uint16
	Coder              uint16
	VersionMajor       uint8
	VersionMinor       uint8
	VersionRevision    uint16
	Options            uint32
	ChunkSize          int32
	ChunkTableOffset   int64
	NumSpecialEvlrs    int64
	OffsetSpecialEvlrs int64
	Items              []LazVlrItem
}

// VariableChunkSize signals that chunks are not fixed-size (every chunk
// in a COPC file is exactly one octree node's points, so chunking is
// always "variable" from the codec's point of view).
const VariableChunkSize = -1

// NewLazVlr returns the default LazVlr this module's writer emits: a
// single item spanning the full point record (base size plus extra
// bytes), matching DefaultCodec's whole-chunk compression model.
func NewLazVlr(formatID uint8, extraBytesSize int) (LazVlr, error) {
	base, err := PointBaseByteSize(formatID)
	if err != nil {
		return LazVlr{}, err
	}
	return LazVlr{
		Compressor:      2, // point-wise chunked compression, per lazperf's numbering
		VersionMajor:    2,
		VersionMinor:    2,
		ChunkSize:       VariableChunkSize,
		Items:           []LazVlrItem{{Type: 6, Size: uint16(base + extraBytesSize), Version: 2}},
	}, nil
}

// MarshalBinary serializes the LAZ VLR payload.
func (v LazVlr) MarshalBinary() ([]byte, error) {
	if len(v.Items) > 0xffff {
		return nil, errors.Errorf("lasio: laz vlr has %d items, too many for a uint16 count", len(v.Items))
	}
	var w bytes.Buffer
	binary.Write(&w, binary.LittleEndian, v.Compressor)
	binary.Write(&w, binary.LittleEndian, v.Coder)
	w.WriteByte(v.VersionMajor)
	w.WriteByte(v.VersionMinor)
	binary.Write(&w, binary.LittleEndian, v.VersionRevision)
	binary.Write(&w, binary.LittleEndian, v.Options)
	binary.Write(&w, binary.LittleEndian, v.ChunkSize)
	binary.Write(&w, binary.LittleEndian, v.ChunkTableOffset)
	binary.Write(&w, binary.LittleEndian, v.NumSpecialEvlrs)
	binary.Write(&w, binary.LittleEndian, v.OffsetSpecialEvlrs)
	binary.Write(&w, binary.LittleEndian, uint16(len(v.Items)))
	for _, it := range v.Items {
		binary.Write(&w, binary.LittleEndian, it.Type)
		binary.Write(&w, binary.LittleEndian, it.Size)
		binary.Write(&w, binary.LittleEndian, it.Version)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary parses a LAZ VLR payload.
func (v *LazVlr) UnmarshalBinary(data []byte) error {
	if len(data) < LazVlrFixedSize {
		return errors.Wrapf(ErrTruncated, "laz vlr: got %d bytes", len(data))
	}
	r := bytes.NewReader(data)
	binary.Read(r, binary.LittleEndian, &v.Compressor)
	binary.Read(r, binary.LittleEndian, &v.Coder)
	v.VersionMajor, _ = r.ReadByte()
	v.VersionMinor, _ = r.ReadByte()
	binary.Read(r, binary.LittleEndian, &v.VersionRevision)
	binary.Read(r, binary.LittleEndian, &v.Options)
	binary.Read(r, binary.LittleEndian, &v.ChunkSize)
	binary.Read(r, binary.LittleEndian, &v.ChunkTableOffset)
	binary.Read(r, binary.LittleEndian, &v.NumSpecialEvlrs)
	binary.Read(r, binary.LittleEndian, &v.OffsetSpecialEvlrs)
	var numItems uint16
	binary.Read(r, binary.LittleEndian, &numItems)
	v.Items = make([]LazVlrItem, numItems)
	for i := range v.Items {
		binary.Read(r, binary.LittleEndian, &v.Items[i].Type)
		binary.Read(r, binary.LittleEndian, &v.Items[i].Size)
		binary.Read(r, binary.LittleEndian, &v.Items[i].Version)
	}
	return nil
}

package lasio

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// CopcExtentEntrySize is the on-wire size of one CopcExtents VLR entry: a
// (min, max) pair of float64s. Mean/variance are not part of the
// non-extended CopcExtents VLR (spec.md §7's extended-stats EVLR carries
// those instead, per the same 16-byte-entry layout with mean/var in place
// of min/max).
const CopcExtentEntrySize = 16

// CopcExtentEntry is one (min, max) pair within a CopcExtents VLR.
type CopcExtentEntry struct {
	Min, Max float64
}

// CopcExtentsVlr is the ordered list of per-dimension (min, max) pairs
// spec.md §4.3 describes: x, y, z, then the point format's non-positional
// attributes in normative order, then one pair per extra-bytes field.
type CopcExtentsVlr struct {
	Items []CopcExtentEntry
}

// MarshalBinary serializes the VLR as a contiguous run of 16-byte entries.
func (v CopcExtentsVlr) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, len(v.Items)*CopcExtentEntrySize)
	w := bytes.NewBuffer(buf)
	for _, it := range v.Items {
		binary.Write(w, binary.LittleEndian, it.Min)
		binary.Write(w, binary.LittleEndian, it.Max)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary parses a run of 16-byte (min, max) entries.
func (v *CopcExtentsVlr) UnmarshalBinary(data []byte) error {
	if len(data)%CopcExtentEntrySize != 0 {
		return errors.Errorf("lasio: copc extents VLR size %d is not a multiple of %d", len(data), CopcExtentEntrySize)
	}
	n := len(data) / CopcExtentEntrySize
	v.Items = make([]CopcExtentEntry, n)
	for i := 0; i < n; i++ {
		r := bytes.NewReader(data[i*CopcExtentEntrySize : (i+1)*CopcExtentEntrySize])
		binary.Read(r, binary.LittleEndian, &v.Items[i].Min)
		binary.Read(r, binary.LittleEndian, &v.Items[i].Max)
	}
	return nil
}

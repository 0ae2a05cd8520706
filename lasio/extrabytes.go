package lasio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// EbItemSize is the fixed size of one extra-bytes item record.
const EbItemSize = 192

// EbDataType enumerates the LAS extra-bytes field data types.
type EbDataType uint8

// Extra-bytes data types, per the ASPRS LAS 1.4 spec. Undocumented (0) is
// sized by Options rather than by a fixed per-type table.
const (
	EbDataTypeUndocumented EbDataType = 0
	EbDataTypeUChar        EbDataType = 1
	EbDataTypeChar         EbDataType = 2
	EbDataTypeUShort       EbDataType = 3
	EbDataTypeShort        EbDataType = 4
	EbDataTypeULong        EbDataType = 5
	EbDataTypeLong         EbDataType = 6
	EbDataTypeUInt64       EbDataType = 7
	EbDataTypeInt64        EbDataType = 8
	EbDataTypeFloat        EbDataType = 9
	EbDataTypeDouble       EbDataType = 10
)

var ebTypeSizes = map[EbDataType]int{
	EbDataTypeUChar:  1,
	EbDataTypeChar:   1,
	EbDataTypeUShort: 2,
	EbDataTypeShort:  2,
	EbDataTypeULong:  4,
	EbDataTypeLong:   4,
	EbDataTypeUInt64: 8,
	EbDataTypeInt64:  8,
	EbDataTypeFloat:  4,
	EbDataTypeDouble: 8,
}

// EbItem is one extra-bytes field declaration.
type EbItem struct {
	DataType    EbDataType
	Options     uint8
	Name        string
	NoData      [3]float64
	Min         [3]float64
	Max         [3]float64
	Scale       [3]float64
	Offset      [3]float64
	Description string
}

// ByteSize returns the per-point byte footprint of this field: for
// DataType 0 (undocumented) that is Options itself (a raw byte count);
// otherwise it is the fixed size for the type.
func (e EbItem) ByteSize() (int, error) {
	if e.DataType == EbDataTypeUndocumented {
		return int(e.Options), nil
	}
	size, ok := ebTypeSizes[e.DataType]
	if !ok {
		return 0, errors.Errorf("lasio: unknown extra-bytes data type %d", e.DataType)
	}
	return size, nil
}

// defaultName returns "FIELD_<index>" for an unnamed item, matching common
// LAS-tool behavior for extra-bytes fields that were never named.
func defaultName(index int) string {
	return fmt.Sprintf("FIELD_%d", index)
}

// EbVlr is the extra-bytes VLR: an ordered list of field declarations.
type EbVlr struct {
	Items []EbItem
}

// NumBytes returns the total per-point byte footprint of all items.
func (v EbVlr) NumBytes() (int, error) {
	total := 0
	for _, it := range v.Items {
		n, err := it.ByteSize()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// MarshalBinary serializes the EB VLR payload as a contiguous run of
// 192-byte item records.
func (v EbVlr) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, EbItemSize*len(v.Items))
	w := bytes.NewBuffer(buf)
	for i, it := range v.Items {
		name := it.Name
		if name == "" {
			name = defaultName(i)
		}
		binary.Write(w, binary.LittleEndian, uint16(0)) // reserved
		w.WriteByte(byte(it.DataType))
		w.WriteByte(it.Options)
		w.Write(packFixedString(name, 32))
		binary.Write(w, binary.LittleEndian, uint32(0)) // unused
		for _, v := range it.NoData {
			binary.Write(w, binary.LittleEndian, v)
		}
		for _, v := range it.Min {
			binary.Write(w, binary.LittleEndian, v)
		}
		for _, v := range it.Max {
			binary.Write(w, binary.LittleEndian, v)
		}
		for _, v := range it.Scale {
			binary.Write(w, binary.LittleEndian, v)
		}
		for _, v := range it.Offset {
			binary.Write(w, binary.LittleEndian, v)
		}
		w.Write(packFixedString(it.Description, 32))
	}
	return w.Bytes(), nil
}

// UnmarshalBinary parses a run of 192-byte extra-bytes item records.
func (v *EbVlr) UnmarshalBinary(data []byte) error {
	if len(data)%EbItemSize != 0 {
		return errors.Errorf("lasio: extra-bytes VLR size %d is not a multiple of %d", len(data), EbItemSize)
	}
	n := len(data) / EbItemSize
	v.Items = make([]EbItem, n)
	for i := 0; i < n; i++ {
		r := bytes.NewReader(data[i*EbItemSize : (i+1)*EbItemSize])
		it := &v.Items[i]
		var reserved uint16
		binary.Read(r, binary.LittleEndian, &reserved)
		dt, _ := r.ReadByte()
		it.DataType = EbDataType(dt)
		it.Options, _ = r.ReadByte()
		name := make([]byte, 32)
		r.Read(name)
		it.Name = cstring(name)
		var unused uint32
		binary.Read(r, binary.LittleEndian, &unused)
		for j := range it.NoData {
			binary.Read(r, binary.LittleEndian, &it.NoData[j])
		}
		for j := range it.Min {
			binary.Read(r, binary.LittleEndian, &it.Min[j])
		}
		for j := range it.Max {
			binary.Read(r, binary.LittleEndian, &it.Max[j])
		}
		for j := range it.Scale {
			binary.Read(r, binary.LittleEndian, &it.Scale[j])
		}
		for j := range it.Offset {
			binary.Read(r, binary.LittleEndian, &it.Offset[j])
		}
		desc := make([]byte, 32)
		r.Read(desc)
		it.Description = cstring(desc)
	}
	return nil
}

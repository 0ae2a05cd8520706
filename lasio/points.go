package lasio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PointBaseByteSize returns the fixed per-point record length for a point
// format, excluding any extra bytes.
func PointBaseByteSize(formatID uint8) (int, error) {
	switch formatID {
	case 6:
		return 30, nil
	case 7:
		return 36, nil
	case 8:
		return 38, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedFormat, "format %d", formatID)
	}
}

// PointBaseNumberDimensions returns the number of non-positional attributes
// a point format carries, the same base counts the CopcExtents cardinality
// formula uses (spec.md §4.3): base(6)=11, base(7)=14, base(8)=15.
func PointBaseNumberDimensions(formatID uint8) (int, error) {
	switch formatID {
	case 6:
		return 11, nil
	case 7:
		return 14, nil
	case 8:
		return 15, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedFormat, "format %d", formatID)
	}
}

// ErrConfigInvalid is the category sentinel for spec.md §7's
// "configuration-invalid" error kind (unsupported point format, extent
// min>max, negative variance, oversized identifier fields). Declared here
// since format validation is lasio's; other packages wrap it for their
// own configuration conditions so callers can test
// errors.Is(err, ErrConfigInvalid) across all of them.
var ErrConfigInvalid = errors.New("lasio: invalid configuration")

// ErrUnsupportedFormat is returned when a point format outside {6,7,8} is
// requested (spec.md invariant 2).
var ErrUnsupportedFormat = errors.Wrap(ErrConfigInvalid, "lasio: point format must be 6, 7, or 8")

// PointRecord is one LAS point, in world-space (already scale/offset
// applied) rather than the raw on-wire scaled-integer representation.
type PointRecord struct {
	X, Y, Z float64

	Intensity           uint16
	ReturnNumber        uint8
	NumberOfReturns     uint8
	ClassificationFlags uint8
	ScannerChannel      uint8
	ScanDirectionFlag   bool
	EdgeOfFlightLine    bool
	Classification      uint8
	UserData            uint8
	ScanAngle           int16
	PointSourceID       uint16
	GpsTime             float64

	Red, Green, Blue uint16 // formats 7, 8
	NIR              uint16 // format 8

	ExtraBytes []byte
}

// Position returns the point's world-space position.
func (p PointRecord) Position() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Points is a batch of point records sharing a point format and
// extra-bytes schema.
type Points struct {
	FormatID uint8
	EbItems  []EbItem
	Records  []PointRecord
}

// RecordLength returns the total per-point byte length (base format size
// plus extra bytes).
func (p Points) RecordLength() (int, error) {
	base, err := PointBaseByteSize(p.FormatID)
	if err != nil {
		return 0, err
	}
	eb, err := EbVlr{Items: p.EbItems}.NumBytes()
	if err != nil {
		return 0, err
	}
	return base + eb, nil
}

// Pack serializes every record to its raw on-wire representation (scaled
// integer X/Y/Z, little-endian), ready to be handed to a laz.Codec.
func (p Points) Pack(scale, offset r3.Vector) ([]byte, error) {
	recLen, err := p.RecordLength()
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, recLen*len(p.Records)))
	for _, rec := range p.Records {
		if err := packOne(buf, rec, p.FormatID, scale, offset); err != nil {
			return nil, err
		}
		if len(rec.ExtraBytes) > 0 {
			buf.Write(rec.ExtraBytes)
		}
	}
	return buf.Bytes(), nil
}

func packOne(w *bytes.Buffer, rec PointRecord, formatID uint8, scale, offset r3.Vector) error {
	binary.Write(w, binary.LittleEndian, int32(math.Round((rec.X-offset.X)/scale.X)))
	binary.Write(w, binary.LittleEndian, int32(math.Round((rec.Y-offset.Y)/scale.Y)))
	binary.Write(w, binary.LittleEndian, int32(math.Round((rec.Z-offset.Z)/scale.Z)))
	binary.Write(w, binary.LittleEndian, rec.Intensity)

	returns := (rec.ReturnNumber & 0x0F) | ((rec.NumberOfReturns & 0x0F) << 4)
	w.WriteByte(returns)

	var flags uint8
	flags = rec.ClassificationFlags & 0x0F
	flags |= (rec.ScannerChannel & 0x03) << 4
	if rec.ScanDirectionFlag {
		flags |= 1 << 6
	}
	if rec.EdgeOfFlightLine {
		flags |= 1 << 7
	}
	w.WriteByte(flags)

	w.WriteByte(rec.Classification)
	w.WriteByte(rec.UserData)
	binary.Write(w, binary.LittleEndian, rec.ScanAngle)
	binary.Write(w, binary.LittleEndian, rec.PointSourceID)
	binary.Write(w, binary.LittleEndian, rec.GpsTime)

	if formatID == 7 || formatID == 8 {
		binary.Write(w, binary.LittleEndian, rec.Red)
		binary.Write(w, binary.LittleEndian, rec.Green)
		binary.Write(w, binary.LittleEndian, rec.Blue)
	}
	if formatID == 8 {
		binary.Write(w, binary.LittleEndian, rec.NIR)
	}
	return nil
}

// Unpack parses raw on-wire point bytes (as produced by Pack, or returned
// from a laz.Codec.Decompress call) into Points.
func Unpack(data []byte, formatID uint8, ebItems []EbItem, scale, offset r3.Vector) (Points, error) {
	recLen, err := (Points{FormatID: formatID, EbItems: ebItems}).RecordLength()
	if err != nil {
		return Points{}, err
	}
	if recLen == 0 || len(data)%recLen != 0 {
		return Points{}, errors.Errorf("lasio: point data length %d is not a multiple of record length %d", len(data), recLen)
	}
	n := len(data) / recLen
	ebSize, err := EbVlr{Items: ebItems}.NumBytes()
	if err != nil {
		return Points{}, err
	}

	out := Points{FormatID: formatID, EbItems: ebItems, Records: make([]PointRecord, n)}
	for i := 0; i < n; i++ {
		r := bytes.NewReader(data[i*recLen : (i+1)*recLen])
		rec, err := unpackOne(r, formatID, scale, offset)
		if err != nil {
			return Points{}, err
		}
		if ebSize > 0 {
			rec.ExtraBytes = make([]byte, ebSize)
			r.Read(rec.ExtraBytes)
		}
		out.Records[i] = rec
	}
	return out, nil
}

func unpackOne(r *bytes.Reader, formatID uint8, scale, offset r3.Vector) (PointRecord, error) {
	var rec PointRecord
	var x, y, z int32
	binary.Read(r, binary.LittleEndian, &x)
	binary.Read(r, binary.LittleEndian, &y)
	binary.Read(r, binary.LittleEndian, &z)
	rec.X = float64(x)*scale.X + offset.X
	rec.Y = float64(y)*scale.Y + offset.Y
	rec.Z = float64(z)*scale.Z + offset.Z

	binary.Read(r, binary.LittleEndian, &rec.Intensity)

	returns, _ := r.ReadByte()
	rec.ReturnNumber = returns & 0x0F
	rec.NumberOfReturns = (returns >> 4) & 0x0F

	flags, _ := r.ReadByte()
	rec.ClassificationFlags = flags & 0x0F
	rec.ScannerChannel = (flags >> 4) & 0x03
	rec.ScanDirectionFlag = flags&(1<<6) != 0
	rec.EdgeOfFlightLine = flags&(1<<7) != 0

	rec.Classification, _ = r.ReadByte()
	rec.UserData, _ = r.ReadByte()
	binary.Read(r, binary.LittleEndian, &rec.ScanAngle)
	binary.Read(r, binary.LittleEndian, &rec.PointSourceID)
	binary.Read(r, binary.LittleEndian, &rec.GpsTime)

	if formatID == 7 || formatID == 8 {
		binary.Read(r, binary.LittleEndian, &rec.Red)
		binary.Read(r, binary.LittleEndian, &rec.Green)
		binary.Read(r, binary.LittleEndian, &rec.Blue)
	}
	if formatID == 8 {
		binary.Read(r, binary.LittleEndian, &rec.NIR)
	}
	return rec, nil
}

// GetWithin returns the subset of records whose position lies within the
// closed-interval box [min, max]. Supplements spec.md's node-level box
// queries with the point-level filter original_source's example-writer.cpp
// bounds-trim example performs before a whole-node AddNode.
func (p Points) GetWithin(min, max r3.Vector) Points {
	out := Points{FormatID: p.FormatID, EbItems: p.EbItems}
	for _, rec := range p.Records {
		if rec.X >= min.X && rec.X <= max.X &&
			rec.Y >= min.Y && rec.Y <= max.Y &&
			rec.Z >= min.Z && rec.Z <= max.Z {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// Within reports whether every record lies within the closed box.
func (p Points) Within(min, max r3.Vector) bool {
	for _, rec := range p.Records {
		if rec.X < min.X || rec.X > max.X ||
			rec.Y < min.Y || rec.Y > max.Y ||
			rec.Z < min.Z || rec.Z > max.Z {
			return false
		}
	}
	return true
}

package copc

import (
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/copc-go/copc/lasio"
)

// ErrUnsupportedFormat re-exports lasio's format guard for callers that
// only import copc.
var ErrUnsupportedFormat = lasio.ErrUnsupportedFormat

// Config is the immutable, read-only view of a COPC file's configuration:
// the LAS header, the COPC-info descriptor, the extents array, WKT, and
// the extra-bytes VLR. Reader hands these out by value (spec.md §9's
// "shared ownership" design note, rendered as a Go value-type copy rather
// than shared pointers): mutating a Config a reader returned never
// affects the reader's own state.
type Config struct {
	Header  lasio.Header
	Info    Info
	Extents Extents
	Wkt     string
	EbVlr   lasio.EbVlr
}

// ConfigWriter is the mutable configuration a writer.Writer owns while
// open: the same fields as Config, but exposed for in-place edits until
// the writer is closed (spec.md §4.6, original_source's
// CopcConfig/CopcConfigWriter split).
type ConfigWriter struct {
	Header  lasio.Header
	Info    Info
	Extents Extents
	Wkt     string
	EbVlr   lasio.EbVlr
}

// NewConfigWriter constructs a ConfigWriter for a fresh writer, validating
// pointFormatID ∈ {6,7,8} and defaulting scale to lasio.DefaultScale,
// offset to the origin, WKT to empty, and the extra-bytes VLR to empty
// (spec.md §4.6). A random GUID is always stamped into the header,
// matching the real LAS convention of per-file GUIDs that original_source
// leaves to the host application to supply; callers may overwrite it.
func NewConfigWriter(pointFormatID uint8, scale, offset r3.Vector, wkt string, ebVlr lasio.EbVlr) (*ConfigWriter, error) {
	if pointFormatID < 6 || pointFormatID > 8 {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %d", pointFormatID)
	}
	recordLength, err := pointRecordLength(pointFormatID, ebVlr)
	if err != nil {
		return nil, err
	}

	header := lasio.Header{
		VersionMajor:      1,
		VersionMinor:      4,
		PointFormatID:     pointFormatID,
		PointRecordLength: uint16(recordLength),
		Scale:             scale,
		Offset:            offset,
	}
	if header.Scale == (r3.Vector{}) {
		header.Scale = lasio.DefaultScale
	}
	id := uuid.New()
	copy(header.GUID[:], id[:])

	extents, err := NewExtents(pointFormatID, len(ebVlr.Items))
	if err != nil {
		return nil, err
	}

	return &ConfigWriter{
		Header:  header,
		Info:    Info{Spacing: 0},
		Extents: *extents,
		Wkt:     wkt,
		EbVlr:   ebVlr,
	}, nil
}

// pointRecordLength returns the per-point byte length for formatID plus
// ebVlr's declared fields (spec.md §4.3, scenario 4: format=7, one EB
// field with options=4 yields point_record_length==40).
func pointRecordLength(formatID uint8, ebVlr lasio.EbVlr) (int, error) {
	base, err := lasio.PointBaseByteSize(formatID)
	if err != nil {
		return 0, err
	}
	ebBytes, err := ebVlr.NumBytes()
	if err != nil {
		return 0, err
	}
	return base + ebBytes, nil
}

// Config returns an immutable snapshot of the writer's current
// configuration, copying every field (spec.md §9's value-type rendering
// of shared ownership).
func (w ConfigWriter) Config() Config {
	cfg := Config{
		Header:  w.Header,
		Info:    w.Info,
		Extents: w.Extents,
		Wkt:     w.Wkt,
		EbVlr:   w.EbVlr,
	}
	cfg.Extents.Items = append([]Extent(nil), w.Extents.Items...)
	cfg.EbVlr.Items = append([]lasio.EbItem(nil), w.EbVlr.Items...)
	return cfg
}

// NewConfigWriterFromConfig seeds a ConfigWriter from a previously read
// Config, as spec.md scenario 6 requires ("copy config, override scale and
// offset; min/max/spacing/WKT/EB items preserved from source"). Point
// count, VLR offsets, and EVLR counts are reset to zero: those describe
// the old stream's layout, not the new one the writer will produce.
func NewConfigWriterFromConfig(cfg Config) *ConfigWriter {
	header := cfg.Header
	header.PointCount = 0
	header.PointDataOffset = 0
	header.NumVLRs = 0
	header.EVLROffset = 0
	header.NumEVLRs = 0
	header.PointsByReturn = [15]uint64{}

	info := cfg.Info
	info.RootHierOffset = 0
	info.RootHierSize = 0

	return &ConfigWriter{
		Header:  header,
		Info:    info,
		Extents: cfg.Extents,
		Wkt:     cfg.Wkt,
		EbVlr:   cfg.EbVlr,
	}
}

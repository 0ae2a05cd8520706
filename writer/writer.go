// Package writer implements the COPC writer: in-memory hierarchy
// construction, chunk emission, and the forward-referenced-offset
// back-patching Close performs to finalize the container (spec.md §4.5).
package writer

import (
	"io"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/copc-go/copc/copc"
	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/laz"
	"github.com/copc-go/copc/lasio"
	"github.com/copc-go/copc/voxelkey"
)

// ErrUsage is the category sentinel for spec.md §7's "usage" error kind
// (calls made against a writer/reader after it has been closed). Declared
// here since Writer.Close is the only condition of this kind so far.
var ErrUsage = errors.New("writer: invalid usage")

// ErrClosed is returned by any mutating call made after Close.
var ErrClosed = errors.Wrap(ErrUsage, "writer: writer is closed")

// ErrOffsetExceeded is BaseWriter's "hard check" (spec.md §4.5): the
// pre-point-data section (header + COPC-info VLR + extra-bytes VLR + LAZ
// VLR) grew past the offset reserved for it when the writer was opened.
// Wraps laz.ErrInvariantViolated: this can only happen from a mismatch
// between the reserved offset computed at New and the layout later
// written, never from bad caller input.
var ErrOffsetExceeded = errors.Wrap(laz.ErrInvariantViolated, "writer: header and VLRs exceed the reserved point-data offset")

// ErrWrongFormat is returned when points handed to AddNode don't match
// the writer's configured point format (spec.md §7: config-invalid).
var ErrWrongFormat = errors.Wrap(lasio.ErrConfigInvalid, "writer: point record format does not match writer configuration")

// Writer builds a COPC file: point chunks are appended to the stream as
// nodes are added, and the hierarchy/header are finalized on Close.
type Writer struct {
	stream io.WriteSeeker
	config copc.ConfigWriter
	codec  laz.Codec
	logger golog.Logger

	lazVlr           lasio.LazVlr
	pointDataOffset  int64
	lazPayloadOffset int64

	pages    map[voxelkey.Key]*hierarchy.Page
	nodeKeys map[voxelkey.Key]struct{}
	chunks   []laz.ChunkEntry

	open bool
}

// New wraps stream as a COPC writer, reserving and writing the header,
// COPC-info VLR, extra-bytes VLR, and LAZ VLR up front (spec.md §4.5's
// "reserve space up front" design note). The root hierarchy page is
// created automatically.
func New(stream io.WriteSeeker, cfg copc.ConfigWriter) (*Writer, error) {
	ebSize, err := cfg.EbVlr.NumBytes()
	if err != nil {
		return nil, err
	}
	lazVlr, err := lasio.NewLazVlr(cfg.Header.PointFormatID, ebSize)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		stream:   stream,
		config:   cfg,
		codec:    laz.DefaultCodec{},
		logger:   golog.NewLogger("copc.writer"),
		lazVlr:   lazVlr,
		pages:    map[voxelkey.Key]*hierarchy.Page{voxelkey.Root: hierarchy.NewPage(voxelkey.Root)},
		nodeKeys: make(map[voxelkey.Key]struct{}),
	}
	w.pages[voxelkey.Root].Loaded = true

	if err := w.writePreamble(); err != nil {
		return nil, err
	}
	w.open = true
	return w, nil
}

// GetRootPage returns the root hierarchy page, auto-created at
// construction (original_source example-writer.cpp: "the root page is
// automatically created and added for us").
func (w *Writer) GetRootPage() *hierarchy.Page {
	return w.pages[voxelkey.Root]
}

// ConfigWriter returns the writer's live, mutable configuration.
func (w *Writer) ConfigWriter() *copc.ConfigWriter {
	return &w.config
}

func (w *Writer) tell() (int64, error) {
	return w.stream.Seek(0, io.SeekCurrent)
}

func (w *Writer) seek(offset int64) error {
	_, err := w.stream.Seek(offset, io.SeekStart)
	return err
}

// preambleOffset computes the point-data offset implied by the writer's
// current header/COPC-info/EB-VLR/LAZ-VLR configuration, independent of
// what was reserved when the writer was opened.
func (w *Writer) preambleOffset() (int64, []byte, []byte, []byte, error) {
	copcInfoPayload, err := w.copcInfoVlr().MarshalBinary()
	if err != nil {
		return 0, nil, nil, nil, err
	}

	var ebPayload []byte
	if len(w.config.EbVlr.Items) > 0 {
		ebPayload, err = w.config.EbVlr.MarshalBinary()
		if err != nil {
			return 0, nil, nil, nil, err
		}
	}
	lazPayload, err := w.lazVlr.MarshalBinary()
	if err != nil {
		return 0, nil, nil, nil, err
	}

	// The COPC-info VLR must land at the fixed offset spec.md §4 invariant
	// 1 requires (byte 429 = HeaderSize + one VLR header): it is always
	// the first VLR, immediately after the header.
	offset := int64(lasio.HeaderSize) + lasio.VlrHeaderSize + int64(len(copcInfoPayload))
	if len(ebPayload) > 0 {
		offset += lasio.VlrHeaderSize + int64(len(ebPayload))
	}
	offset += lasio.VlrHeaderSize + int64(len(lazPayload))
	return offset, copcInfoPayload, ebPayload, lazPayload, nil
}

// copcInfoVlr renders the writer's current copc.Info as its wire form.
func (w *Writer) copcInfoVlr() lasio.CopcInfoVlr {
	info := w.config.Info
	return lasio.CopcInfoVlr{
		CenterX: info.CenterX, CenterY: info.CenterY, CenterZ: info.CenterZ,
		HalfSize: info.HalfSize, Spacing: info.Spacing,
		RootHierOffset: info.RootHierOffset, RootHierSize: info.RootHierSize,
		GpsTimeMin: info.GpsTimeMin, GpsTimeMax: info.GpsTimeMax,
	}
}

// writePreamble (re)writes the header, COPC-info VLR, extra-bytes VLR, and
// LAZ VLR at the start of the stream. Called once at New to reserve the
// pre-point section, and again at Close once every offset/count is final.
func (w *Writer) writePreamble() error {
	offset, copcInfoPayload, ebPayload, lazPayload, err := w.preambleOffset()
	if err != nil {
		return err
	}
	if w.open && offset > w.pointDataOffset {
		return errors.Wrapf(ErrOffsetExceeded, "need %d bytes, reserved %d", offset, w.pointDataOffset)
	}

	numVLRs := uint32(2) // COPC-info and LAZ VLRs are always present
	if len(ebPayload) > 0 {
		numVLRs++
	}

	header := w.config.Header
	header.PointDataOffset = uint32(offset)
	header.NumVLRs = numVLRs

	headerBytes, err := header.MarshalBinary()
	if err != nil {
		return err
	}
	if err := w.seek(0); err != nil {
		return err
	}
	if _, err := w.stream.Write(headerBytes); err != nil {
		return errors.Wrap(err, "writer: writing header")
	}

	copcInfoHeader := lasio.MarshalVlrHeader(lasio.VlrHeader{UserID: lasio.UserIDCopc, RecordID: lasio.RecordIDCopcInfo}, uint16(len(copcInfoPayload)))
	if _, err := w.stream.Write(copcInfoHeader); err != nil {
		return errors.Wrap(err, "writer: writing COPC-info VLR header")
	}
	if _, err := w.stream.Write(copcInfoPayload); err != nil {
		return errors.Wrap(err, "writer: writing COPC-info VLR payload")
	}

	if len(ebPayload) > 0 {
		ebHeader := lasio.MarshalVlrHeader(lasio.VlrHeader{UserID: lasio.UserIDLASFSpec, RecordID: lasio.RecordIDExtraBytes}, uint16(len(ebPayload)))
		if _, err := w.stream.Write(ebHeader); err != nil {
			return errors.Wrap(err, "writer: writing extra-bytes VLR header")
		}
		if _, err := w.stream.Write(ebPayload); err != nil {
			return errors.Wrap(err, "writer: writing extra-bytes VLR payload")
		}
	}

	lazHeader := lasio.MarshalVlrHeader(lasio.VlrHeader{UserID: lasio.UserIDLaszipEncoded, RecordID: lasio.RecordIDLazConfig}, uint16(len(lazPayload)))
	if _, err := w.stream.Write(lazHeader); err != nil {
		return errors.Wrap(err, "writer: writing LAZ VLR header")
	}
	lazPayloadOffset, err := w.tell()
	if err != nil {
		return err
	}
	if _, err := w.stream.Write(lazPayload); err != nil {
		return errors.Wrap(err, "writer: writing LAZ VLR payload")
	}

	w.config.Header = header
	w.pointDataOffset = offset
	w.lazPayloadOffset = lazPayloadOffset
	return nil
}

// Close flushes the chunk table, serializes the hierarchy bottom-up, and
// rewrites the header/VLRs with their final values (spec.md §4.5's
// five-step close protocol). Close is idempotent.
func (w *Writer) Close() error {
	if !w.open {
		return nil
	}

	if err := w.writeChunkTable(); err != nil {
		return err
	}

	// The hierarchy is addressed directly through CopcInfo's
	// root_hier_offset/size, not through the VLR/EVLR chain, so it is
	// written before evlr_offset is marked: evlr_offset must point at the
	// first genuine EVLR header, not at raw page bytes.
	if err := w.writePages(); err != nil {
		return err
	}

	evlrOffset, err := w.tell()
	if err != nil {
		return err
	}
	w.config.Header.EVLROffset = uint64(evlrOffset)

	evlrCount := uint32(0)

	if err := w.writeCopcExtentsEvlr(); err != nil {
		return err
	}
	evlrCount++

	wroteWkt, err := w.writeWktEvlr()
	if err != nil {
		return err
	}
	if wroteWkt {
		evlrCount++
	}

	w.config.Header.NumEVLRs = evlrCount

	if err := w.writePreamble(); err != nil {
		return err
	}

	w.logger.Debugw("wrote copc file",
		"chunks", len(w.chunks), "root_hier_size", w.config.Info.RootHierSize)

	w.open = false
	return nil
}

// Package reader implements the COPC reader: VLR discovery on open, and
// on-demand paged hierarchy traversal for point and metadata queries
// (spec.md §4.4).
package reader

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

// Reader parses a COPC stream's LAS header and VLRs on construction, then
// walks the paged hierarchy lazily as callers query it.
type Reader struct {
	stream io.ReadSeeker
	config copc.Config
	codec  laz.Codec
	logger golog.Logger

	vlrs  map[vlrKey]vlrRecord
	pages map[voxelkey.Key]*hierarchy.Page
}

type vlrKey struct {
	userID   string
	recordID uint16
}

type vlrRecord struct {
	dataOffset int64
	dataLength uint64
}

// New parses stream as a COPC file: the LAS header, every VLR/EVLR header
// (spec.md §4.4 steps 1-2), and the COPC-info/extents/WKT/extra-bytes VLRs
// (steps 3-6). The root hierarchy page is not read until first queried
// (step 7).
func New(stream io.ReadSeeker) (*Reader, error) {
	r := &Reader{
		stream: stream,
		codec:  laz.DefaultCodec{},
		logger: golog.NewLogger("copc.reader"),
		pages:  make(map[voxelkey.Key]*hierarchy.Page),
	}

	header, err := r.readHeader()
	if err != nil {
		return nil, errors.Wrap(err, "reader: parsing LAS header")
	}

	vlrs, err := r.readVlrHeaders(header)
	if err != nil {
		return nil, errors.Wrap(err, "reader: walking VLR headers")
	}
	r.vlrs = vlrs

	info, err := r.readCopcInfoVlr()
	if err != nil {
		return nil, errors.Wrap(err, "reader: reading COPC-info VLR")
	}

	ebVlr, err := r.readExtraBytesVlr()
	if err != nil {
		return nil, errors.Wrap(err, "reader: reading extra-bytes VLR")
	}

	extents, err := r.readCopcExtentsVlr(header.PointFormatID, len(ebVlr.Items))
	if err != nil {
		return nil, errors.Wrap(err, "reader: reading COPC-extents VLR")
	}

	wkt, err := r.readWktVlr()
	if err != nil {
		return nil, errors.Wrap(err, "reader: reading WKT VLR")
	}

	r.config = copc.Config{
		Header:  header,
		Info:    info,
		Extents: extents,
		Wkt:     wkt,
		EbVlr:   ebVlr,
	}
	return r, nil
}

// CopcConfig returns a snapshot of the file's parsed configuration.
func (r *Reader) CopcConfig() copc.Config {
	cfg := r.config
	cfg.Extents.Items = append([]copc.Extent(nil), r.config.Extents.Items...)
	cfg.EbVlr.Items = append([]lasio.EbItem(nil), r.config.EbVlr.Items...)
	return cfg
}

func (r *Reader) readHeader() (lasio.Header, error) {
	buf := make([]byte, lasio.HeaderSize)
	if _, err := io.ReadFull(r.stream, buf); err != nil {
		return lasio.Header{}, err
	}
	var h lasio.Header
	if err := h.UnmarshalBinary(buf); err != nil {
		return lasio.Header{}, err
	}
	return h, nil
}

func (r *Reader) seek(offset int64) error {
	_, err := r.stream.Seek(offset, io.SeekStart)
	return err
}

func (r *Reader) readVlrHeaders(header lasio.Header) (map[vlrKey]vlrRecord, error) {
	out := make(map[vlrKey]vlrRecord)

	if err := r.seek(lasio.HeaderSize); err != nil {
		return nil, err
	}
	pos := int64(lasio.HeaderSize)
	for i := uint32(0); i < header.NumVLRs; i++ {
		buf := make([]byte, lasio.VlrHeaderSize)
		if _, err := io.ReadFull(r.stream, buf); err != nil {
			return nil, err
		}
		vh, length, err := lasio.UnmarshalVlrHeader(buf)
		if err != nil {
			return nil, err
		}
		dataOffset := pos + lasio.VlrHeaderSize
		out[vlrKey{vh.UserID, vh.RecordID}] = vlrRecord{dataOffset: dataOffset, dataLength: uint64(length)}
		pos = dataOffset + int64(length)
		if err := r.seek(pos); err != nil {
			return nil, err
		}
	}

	if header.NumEVLRs > 0 {
		pos = int64(header.EVLROffset)
		if err := r.seek(pos); err != nil {
			return nil, err
		}
		for i := uint32(0); i < header.NumEVLRs; i++ {
			buf := make([]byte, lasio.EvlrHeaderSize)
			if _, err := io.ReadFull(r.stream, buf); err != nil {
				return nil, err
			}
			vh, length, err := lasio.UnmarshalEvlrHeader(buf)
			if err != nil {
				return nil, err
			}
			dataOffset := pos + lasio.EvlrHeaderSize
			out[vlrKey{vh.UserID, vh.RecordID}] = vlrRecord{dataOffset: dataOffset, dataLength: length}
			pos = dataOffset + int64(length)
			if err := r.seek(pos); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

func (r *Reader) readPayload(rec vlrRecord) ([]byte, error) {
	if err := r.seek(rec.dataOffset); err != nil {
		return nil, err
	}
	buf := make([]byte, rec.dataLength)
	if _, err := io.ReadFull(r.stream, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) readCopcInfoVlr() (copc.Info, error) {
	if err := r.seek(lasio.CopcInfoOffset); err != nil {
		return copc.Info{}, err
	}
	buf := make([]byte, lasio.CopcInfoVlrSize)
	if _, err := io.ReadFull(r.stream, buf); err != nil {
		return copc.Info{}, err
	}
	var vlr lasio.CopcInfoVlr
	if err := vlr.UnmarshalBinary(buf); err != nil {
		return copc.Info{}, err
	}
	return copc.Info{
		CenterX: vlr.CenterX, CenterY: vlr.CenterY, CenterZ: vlr.CenterZ,
		HalfSize: vlr.HalfSize, Spacing: vlr.Spacing,
		RootHierOffset: vlr.RootHierOffset, RootHierSize: vlr.RootHierSize,
		GpsTimeMin: vlr.GpsTimeMin, GpsTimeMax: vlr.GpsTimeMax,
	}, nil
}

func (r *Reader) readExtraBytesVlr() (lasio.EbVlr, error) {
	rec, ok := r.vlrs[vlrKey{lasio.UserIDLASFSpec, lasio.RecordIDExtraBytes}]
	if !ok {
		return lasio.EbVlr{}, nil
	}
	buf, err := r.readPayload(rec)
	if err != nil {
		return lasio.EbVlr{}, err
	}
	var v lasio.EbVlr
	if err := v.UnmarshalBinary(buf); err != nil {
		return lasio.EbVlr{}, err
	}
	return v, nil
}

func (r *Reader) readCopcExtentsVlr(formatID uint8, numEB int) (copc.Extents, error) {
	rec, ok := r.vlrs[vlrKey{lasio.UserIDCopc, lasio.RecordIDCopcExtents}]
	if !ok {
		ext, err := copc.NewExtents(formatID, numEB)
		if err != nil {
			return copc.Extents{}, err
		}
		return *ext, nil
	}
	buf, err := r.readPayload(rec)
	if err != nil {
		return copc.Extents{}, err
	}
	var vlr lasio.CopcExtentsVlr
	if err := vlr.UnmarshalBinary(buf); err != nil {
		return copc.Extents{}, err
	}
	ext, err := copc.FromVlr(vlr, formatID, numEB)
	if err != nil {
		return copc.Extents{}, err
	}
	return *ext, nil
}

func (r *Reader) readWktVlr() (string, error) {
	rec, ok := r.vlrs[vlrKey{lasio.UserIDLASFProjection, lasio.RecordIDWkt}]
	if !ok {
		return "", nil
	}
	buf, err := r.readPayload(rec)
	if err != nil {
		return "", err
	}
	var v lasio.WktVlr
	if err := v.UnmarshalBinary(buf); err != nil {
		return "", err
	}
	return v.Wkt, nil
}

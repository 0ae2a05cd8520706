// Package laz defines the compression-codec seam spec.md §6 names as an
// external collaborator ("the LAZ entropy codec"), plus the chunk-table
// encoding the writer emits at the tail of the file. Re-implementing the
// real LAZ arithmetic coder is an explicit Non-goal (spec.md §1); Codec is
// an interface for exactly that reason, and DefaultCodec is a real,
// pack-grounded compressor wired in behind it so the seam is exercised
// end-to-end rather than left unimplemented (see DESIGN.md).
package laz

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Params describes the point layout a chunk of raw point bytes was packed
// with, mirroring the (point_format_id, extra_bytes_size) parameterization
// spec.md §6 requires of the codec.
type Params struct {
	PointFormatID  uint8
	ExtraBytesSize int
}

// Codec compresses and decompresses a chunk of raw point-record bytes.
type Codec interface {
	Compress(points []byte, params Params) ([]byte, error)
	Decompress(compressed []byte, params Params, pointCount int) ([]byte, error)
}

// DefaultCodec is a Codec backed by github.com/klauspost/compress/zstd. It
// is not a real LAZ entropy coder and makes no claim of interoperating
// with third-party .laz tools; it exists so this module's writer/reader
// round trip is exercised against a real streaming compressor from the
// retrieval pack rather than a no-op passthrough.
type DefaultCodec struct{}

var _ Codec = DefaultCodec{}

// Compress zstd-compresses points.
func (DefaultCodec) Compress(points []byte, _ Params) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "laz: creating zstd encoder")
	}
	if _, err := enc.Write(points); err != nil {
		enc.Close()
		return nil, errors.Wrap(err, "laz: compressing points")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "laz: closing zstd encoder")
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. pointCount is unused by this
// implementation (zstd streams are self-delimiting) but is part of the
// interface because a true LAZ decoder needs it to know how many records
// to emit from a variable-length compressed chunk.
func (DefaultCodec) Decompress(compressed []byte, _ Params, _ int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "laz: creating zstd decoder")
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrap(err, "laz: decompressing points")
	}
	return out, nil
}

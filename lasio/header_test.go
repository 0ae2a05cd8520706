package lasio_test

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/lasio"
)

func sampleHeader() *lasio.Header {
	h := &lasio.Header{
		FileSourceID:    200,
		VersionMajor:    1,
		VersionMinor:    4,
		PointFormatID:   8,
		Scale:           r3.Vector{X: 2, Y: 3, Z: 4},
		Offset:          r3.Vector{X: -0.02, Y: -0.03, Z: -40.8},
		Min:             r3.Vector{X: -10, Y: -10, Z: -5},
		Max:             r3.Vector{X: 10, Y: 10, Z: 5},
		PointDataOffset: 1500,
		PointCount:      42,
	}
	_ = h.SetSystemIdentifier("copc-go")
	return h
}

func TestHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	buf, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, lasio.HeaderSize)

	var got lasio.Header
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, *h, got)

	buf2, err := got.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, buf, buf2)
}

func TestHeaderRejectsTruncated(t *testing.T) {
	var h lasio.Header
	err := h.UnmarshalBinary(make([]byte, 10))
	require.ErrorIs(t, err, lasio.ErrTruncated)
}

func TestHeaderRejectsBadSignature(t *testing.T) {
	buf := make([]byte, lasio.HeaderSize)
	copy(buf, "NOPE")
	var h lasio.Header
	err := h.UnmarshalBinary(buf)
	require.ErrorIs(t, err, lasio.ErrBadSignature)
}

func TestSetSystemIdentifierRejectsOversize(t *testing.T) {
	var h lasio.Header
	err := h.SetSystemIdentifier("this system identifier string is definitely longer than 32 bytes")
	require.Error(t, err)
}

package lasio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/lasio"
)

func TestVlrHeaderRoundTrip(t *testing.T) {
	h := lasio.VlrHeader{UserID: lasio.UserIDCopc, RecordID: lasio.RecordIDCopcInfo, Description: "copc info"}
	buf := lasio.MarshalVlrHeader(h, 160)
	require.Len(t, buf, lasio.VlrHeaderSize)

	got, length, err := lasio.UnmarshalVlrHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.EqualValues(t, 160, length)
}

func TestEvlrHeaderRoundTrip(t *testing.T) {
	h := lasio.VlrHeader{UserID: lasio.UserIDLASFProjection, RecordID: lasio.RecordIDWkt, Description: "wkt"}
	buf := lasio.MarshalEvlrHeader(h, 4096)
	require.Len(t, buf, lasio.EvlrHeaderSize)

	got, length, err := lasio.UnmarshalEvlrHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.EqualValues(t, 4096, length)
}

func TestCopcInfoVlrRoundTrip(t *testing.T) {
	v := lasio.CopcInfoVlr{
		CenterX: 1, CenterY: 2, CenterZ: 3,
		HalfSize: 500, Spacing: 1.5,
		RootHierOffset: 1024, RootHierSize: 256,
		GpsTimeMin: 0, GpsTimeMax: 123.456,
	}
	buf, err := v.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, lasio.CopcInfoVlrSize)

	var got lasio.CopcInfoVlr
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, v, got)
}

func TestWktVlrRoundTrip(t *testing.T) {
	v := lasio.WktVlr{Wkt: `PROJCS["test"]`}
	buf, err := v.MarshalBinary()
	require.NoError(t, err)

	var got lasio.WktVlr
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, v.Wkt, got.Wkt)
}

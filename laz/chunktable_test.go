package laz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/laz"
)

func TestEncodeDecodeDeltasRoundTrip(t *testing.T) {
	table := laz.ChunkTable{Entries: []laz.ChunkEntry{
		{Offset: 1000, PointCount: 100},
		{Offset: 1500, PointCount: 120},
		{Offset: 2200, PointCount: 90},
	}}

	deltas := table.EncodeDeltas(800)
	require.Equal(t, []laz.ChunkEntry{
		{Offset: 200, PointCount: 100},
		{Offset: 500, PointCount: 120},
		{Offset: 700, PointCount: 90},
	}, deltas)

	abs := laz.DecodeDeltas(deltas, 800)
	require.Equal(t, table.Entries, abs)
}

func TestEncodeDecodeRoundTripThroughCodec(t *testing.T) {
	table := laz.ChunkTable{Entries: []laz.ChunkEntry{
		{Offset: 1000, PointCount: 100},
		{Offset: 1500, PointCount: 120},
	}}
	deltas := table.EncodeDeltas(500)

	codec := laz.DefaultCodec{}
	compressed, err := laz.Encode(codec, deltas)
	require.NoError(t, err)

	got, err := laz.Decode(codec, compressed)
	require.NoError(t, err)
	require.Equal(t, deltas, got)

	require.Equal(t, table.Entries, laz.DecodeDeltas(got, 500))
}

func TestEncodeEmptyTable(t *testing.T) {
	codec := laz.DefaultCodec{}
	compressed, err := laz.Encode(codec, nil)
	require.NoError(t, err)

	got, err := laz.Decode(codec, compressed)
	require.NoError(t, err)
	require.Empty(t, got)
}

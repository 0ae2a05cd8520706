package reader_test

import (
	"bytes"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/laz"
	"github.com/copc-go/copc/lasio"
	"github.com/copc-go/copc/reader"
	"github.com/copc-go/copc/voxelkey"
)

// buildMinimalStream hand-assembles a minimal but well-formed COPC byte
// stream: LAS header, a single COPC-info VLR, one compressed point chunk,
// and a one-entry root hierarchy page holding that chunk under
// voxelkey.Root. No chunk table or EVLRs: those are writer bookkeeping
// concerns the reader never needs to look up an already-known offset.
func buildMinimalStream(t *testing.T) *bytes.Reader {
	t.Helper()

	scale := r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}
	offset := r3.Vector{X: 0, Y: 0, Z: 0}
	min := r3.Vector{X: -10, Y: -10, Z: -10}
	max := r3.Vector{X: 10, Y: 10, Z: 10}

	points := lasio.Points{
		FormatID: 6,
		Records: []lasio.PointRecord{
			{X: 1, Y: 2, Z: 3, Intensity: 500, Classification: 2},
		},
	}
	rawPoints, err := points.Pack(scale, offset)
	require.NoError(t, err)

	codec := laz.DefaultCodec{}
	compressed, err := codec.Compress(rawPoints, laz.Params{PointFormatID: 6})
	require.NoError(t, err)

	const pointDataOffset = int64(lasio.HeaderSize + lasio.VlrHeaderSize + lasio.CopcInfoVlrSize)
	chunkOffset := pointDataOffset
	rootHierOffset := chunkOffset + int64(len(compressed))

	root := hierarchy.NewPage(voxelkey.Root)
	require.NoError(t, root.AddNode(voxelkey.Root, chunkOffset, int32(len(compressed)), int32(len(points.Records))))
	rootBytes := root.Marshal()

	header := lasio.Header{
		VersionMajor: 1, VersionMinor: 4,
		PointFormatID:     6,
		PointRecordLength: 30,
		Scale:             scale,
		Offset:            offset,
		Min:               min,
		Max:               max,
		PointDataOffset:   uint32(pointDataOffset),
		NumVLRs:           1,
		PointCount:        uint64(len(points.Records)),
	}
	headerBytes, err := header.MarshalBinary()
	require.NoError(t, err)

	copcInfoHeader := lasio.MarshalVlrHeader(lasio.VlrHeader{UserID: lasio.UserIDCopc, RecordID: lasio.RecordIDCopcInfo}, lasio.CopcInfoVlrSize)
	copcInfoPayload, err := lasio.CopcInfoVlr{
		HalfSize:       10,
		Spacing:        1,
		RootHierOffset: uint64(rootHierOffset),
		RootHierSize:   uint64(len(rootBytes)),
	}.MarshalBinary()
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(headerBytes)
	buf.Write(copcInfoHeader)
	buf.Write(copcInfoPayload)
	buf.Write(compressed)
	buf.Write(rootBytes)

	return bytes.NewReader(buf.Bytes())
}

func TestNewParsesHeaderAndCopcInfo(t *testing.T) {
	stream := buildMinimalStream(t)
	r, err := reader.New(stream)
	require.NoError(t, err)

	cfg := r.CopcConfig()
	require.EqualValues(t, 6, cfg.Header.PointFormatID)
	require.EqualValues(t, 1, cfg.Header.PointCount)
	require.Equal(t, 10.0, cfg.Info.HalfSize)
	require.Greater(t, cfg.Info.RootHierOffset, uint64(0))
}

func TestFindNodeAndGetPoints(t *testing.T) {
	stream := buildMinimalStream(t)
	r, err := reader.New(stream)
	require.NoError(t, err)

	nodes, err := r.GetAllNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, voxelkey.Root, nodes[0].Key)

	pts, err := r.GetPoints(nodes[0])
	require.NoError(t, err)
	require.Len(t, pts.Records, 1)
	require.InDelta(t, 1.0, pts.Records[0].X, 1e-9)
	require.InDelta(t, 2.0, pts.Records[0].Y, 1e-9)
	require.InDelta(t, 3.0, pts.Records[0].Z, 1e-9)
}

func TestFindNodeInvalidKey(t *testing.T) {
	stream := buildMinimalStream(t)
	r, err := reader.New(stream)
	require.NoError(t, err)

	nodes, err := r.GetAllChildren(voxelkey.Invalid)
	require.NoError(t, err)
	require.Nil(t, nodes)
}

func TestGetPageList(t *testing.T) {
	stream := buildMinimalStream(t)
	r, err := reader.New(stream)
	require.NoError(t, err)

	pages, err := r.GetPageList()
	require.NoError(t, err)
	require.Equal(t, []voxelkey.Key{voxelkey.Root}, pages)
}

func TestValidateSpatialBounds(t *testing.T) {
	stream := buildMinimalStream(t)
	r, err := reader.New(stream)
	require.NoError(t, err)

	ok, err := r.ValidateSpatialBounds(false)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGetNodesWithinBox(t *testing.T) {
	stream := buildMinimalStream(t)
	r, err := reader.New(stream)
	require.NoError(t, err)

	box := voxelkey.Box{Min: r3.Vector{X: -10, Y: -10, Z: -10}, Max: r3.Vector{X: 10, Y: 10, Z: 10}}
	nodes, err := r.GetNodesWithinBox(box, 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	tiny := voxelkey.Box{Min: r3.Vector{X: 100, Y: 100, Z: 100}, Max: r3.Vector{X: 101, Y: 101, Z: 101}}
	none, err := r.GetNodesWithinBox(tiny, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

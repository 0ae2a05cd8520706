package copc_test

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/copc"
	"github.com/copc-go/copc/lasio"
)

func TestNewConfigWriterDefaults(t *testing.T) {
	cw, err := copc.NewConfigWriter(6, r3.Vector{}, r3.Vector{}, "", lasio.EbVlr{})
	require.NoError(t, err)

	assert.Equal(t, lasio.DefaultScale, cw.Header.Scale)
	assert.Equal(t, r3.Vector{}, cw.Header.Offset)
	assert.EqualValues(t, 6, cw.Header.PointFormatID)
	assert.EqualValues(t, 30, cw.Header.PointRecordLength)
	assert.NotEqual(t, [16]byte{}, cw.Header.GUID)
}

func TestNewConfigWriterRejectsBadFormat(t *testing.T) {
	_, err := copc.NewConfigWriter(5, r3.Vector{}, r3.Vector{}, "", lasio.EbVlr{})
	require.ErrorIs(t, err, copc.ErrUnsupportedFormat)
}

func TestNewConfigWriterExtraBytesRecordLength(t *testing.T) {
	cw, err := copc.NewConfigWriter(7, r3.Vector{}, r3.Vector{}, "", lasio.EbVlr{
		Items: []lasio.EbItem{{DataType: lasio.EbDataTypeUndocumented, Options: 4}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 40, cw.Header.PointRecordLength)
}

func TestConfigWriterFromConfigPreservesBoundsAndResetsCounters(t *testing.T) {
	src := copc.Config{
		Header: lasio.Header{
			PointFormatID: 8,
			Scale:         r3.Vector{X: 0.01, Y: 0.01, Z: 0.01},
			Offset:        r3.Vector{X: 1, Y: 2, Z: 3},
			Min:           r3.Vector{X: -10, Y: -10, Z: -5},
			Max:           r3.Vector{X: 10, Y: 10, Z: 5},
			PointCount:    1000,
			NumVLRs:       3,
		},
		Info: copc.Info{Spacing: 1.5, RootHierOffset: 500, RootHierSize: 64},
		Wkt:  "GEOGCS[...]",
	}

	cw := copc.NewConfigWriterFromConfig(src)
	assert.Equal(t, src.Header.Min, cw.Header.Min)
	assert.Equal(t, src.Header.Max, cw.Header.Max)
	assert.Equal(t, src.Info.Spacing, cw.Info.Spacing)
	assert.Equal(t, src.Wkt, cw.Wkt)
	assert.EqualValues(t, 0, cw.Header.PointCount)
	assert.EqualValues(t, 0, cw.Info.RootHierOffset)
	assert.EqualValues(t, 0, cw.Info.RootHierSize)
}

func TestConfigRoundTripsThroughWriter(t *testing.T) {
	cw, err := copc.NewConfigWriter(6, r3.Vector{}, r3.Vector{}, "", lasio.EbVlr{})
	require.NoError(t, err)
	cfg := cw.Config()
	assert.Equal(t, cw.Header, cfg.Header)
	assert.Equal(t, cw.Wkt, cfg.Wkt)
}

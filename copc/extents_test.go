package copc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/copc"
	"github.com/copc-go/copc/lasio"
)

func TestNewExtentValidates(t *testing.T) {
	_, err := copc.NewExtent(5, 1, 0, 0)
	require.ErrorIs(t, err, copc.ErrInvalidExtent)

	_, err = copc.NewExtent(0, 1, 0, -1)
	require.ErrorIs(t, err, copc.ErrInvalidExtent)

	e, err := copc.NewExtent(0, 1, 0.5, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, e.Min)
	assert.Equal(t, 1.0, e.Max)
}

func TestNumberOfExtentsFormula(t *testing.T) {
	for _, tc := range []struct {
		format uint8
		want   int
	}{
		{6, 11},
		{7, 14},
		{8, 15},
	} {
		for e := 0; e <= 32; e++ {
			n, err := copc.NumberOfExtents(tc.format, e)
			require.NoError(t, err)
			assert.Equal(t, tc.want+e, n, "format %d, eb %d", tc.format, e)

			// Serialized VLR size property (spec.md §8): 3 (x,y,z) + array.len.
			ext, err := copc.NewExtents(tc.format, e)
			require.NoError(t, err)
			vlr := ext.ToVlr(copc.Extent{}, copc.Extent{}, copc.Extent{})
			assert.Len(t, vlr.Items, 3+n)
		}
	}

	_, err := copc.NumberOfExtents(9, 0)
	require.ErrorIs(t, err, copc.ErrUnsupportedFormat)
}

func TestExtentsToVlrAndFromVlrRoundTrip(t *testing.T) {
	ext, err := copc.NewExtents(8, 2)
	require.NoError(t, err)
	for i := range ext.Items {
		ext.Items[i] = copc.Extent{Min: float64(i), Max: float64(i) + 10}
	}

	x, _ := copc.NewExtent(-1, 1, 0, 0)
	y, _ := copc.NewExtent(-2, 2, 0, 0)
	z, _ := copc.NewExtent(-3, 3, 0, 0)
	vlr := ext.ToVlr(x, y, z)

	got, err := copc.FromVlr(vlr, 8, 2)
	require.NoError(t, err)
	require.Equal(t, ext.Items, got.Items)
}

func TestExtendedStatsHookDisabledByDefault(t *testing.T) {
	ext, err := copc.NewExtents(6, 0)
	require.NoError(t, err)
	assert.False(t, ext.HasExtendedStats())

	extended := ext.ToExtendedVlr()
	require.Len(t, extended.Items, len(ext.Items)+3)

	err = ext.SetExtendedStats(extended)
	require.NoError(t, err)
	assert.True(t, ext.HasExtendedStats())
}

func TestExtentsAccessorsAndString(t *testing.T) {
	ext, err := copc.NewExtents(8, 1)
	require.NoError(t, err)
	ext.Items[0], _ = copc.NewExtent(0, 65535, 100, 1)

	assert.Equal(t, ext.Items[0], ext.Intensity())
	require.Len(t, ext.ExtraBytes(), 1)
	assert.Contains(t, ext.String(), "Intensity")
	assert.Contains(t, ext.String(), "NIR")
	assert.Contains(t, ext.String(), "Extra Bytes")
}

func TestExtentsFromVlrRejectsWrongSize(t *testing.T) {
	_, err := copc.FromVlr(lasio.CopcExtentsVlr{Items: make([]lasio.CopcExtentEntry, 3)}, 8, 0)
	require.Error(t, err)
}

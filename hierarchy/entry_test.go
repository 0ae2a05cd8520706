package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/voxelkey"
)

func TestEntryRoundTrip(t *testing.T) {
	e := hierarchy.Entry{Key: voxelkey.Key{D: 2, X: 1, Y: 2, Z: 3}, Offset: 987654321, ByteSize: 4096, PointCount: 500}
	buf := e.Marshal()
	require.Len(t, buf, hierarchy.EntrySize)

	got, err := hierarchy.UnmarshalEntry(buf)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestEntryKind(t *testing.T) {
	node := hierarchy.Entry{Offset: 10, ByteSize: 5, PointCount: 3}
	require.Equal(t, hierarchy.KindNode, node.Kind())
	require.True(t, node.IsNode())

	page := hierarchy.NewPageEntry(voxelkey.Key{D: 1, X: 0, Y: 0, Z: 0}, 20, 32)
	require.Equal(t, hierarchy.KindPage, page.Kind())
	require.True(t, page.IsPage())

	empty := hierarchy.NewEmptyEntry(voxelkey.Key{D: 1, X: 1, Y: 0, Z: 0})
	require.Equal(t, hierarchy.KindEmpty, empty.Kind())
	require.True(t, empty.IsEmpty())
}

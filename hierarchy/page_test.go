package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/voxelkey"
)

func TestPageAddNodeValidatesDescendant(t *testing.T) {
	page := hierarchy.NewPage(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 1})

	require.NoError(t, page.AddNode(voxelkey.Key{D: 2, X: 2, Y: 3, Z: 2}, 100, 10, 5))

	err := page.AddNode(voxelkey.Key{D: 2, X: 0, Y: 0, Z: 0}, 100, 10, 5)
	require.ErrorIs(t, err, hierarchy.ErrNotDescendant)

	err = page.AddNode(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 1}, 100, 10, 5)
	require.ErrorIs(t, err, hierarchy.ErrNotDescendant)
}

func TestRootPageAllowsRootNode(t *testing.T) {
	page := hierarchy.NewPage(voxelkey.Root)
	require.NoError(t, page.AddNode(voxelkey.Root, 375, 100, 10))
}

func TestPageAddNodeRejectsDuplicate(t *testing.T) {
	page := hierarchy.NewPage(voxelkey.Root)
	key := voxelkey.Key{D: 1, X: 0, Y: 0, Z: 0}
	require.NoError(t, page.AddNode(key, 100, 10, 5))
	err := page.AddNode(key, 200, 10, 5)
	require.ErrorIs(t, err, hierarchy.ErrAlreadyReferenced)
}

func TestAddSubPageValidation(t *testing.T) {
	root := hierarchy.NewPage(voxelkey.Root)

	sub, err := root.AddSubPage(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	require.True(t, sub.Loaded)

	_, err = sub.AddSubPage(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 0})
	require.ErrorIs(t, err, hierarchy.ErrNotDescendant)

	_, err = sub.AddSubPage(voxelkey.Key{D: 2, X: 4, Y: 5, Z: 0})
	require.ErrorIs(t, err, hierarchy.ErrNotDescendant)

	_, err = root.AddSubPage(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 1})
	require.ErrorIs(t, err, hierarchy.ErrAlreadyReferenced)
}

func TestPatchAndMarshalRoundTrip(t *testing.T) {
	root := hierarchy.NewPage(voxelkey.Root)
	_, err := root.AddSubPage(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 1})
	require.NoError(t, err)

	ok := root.PatchPageEntry(voxelkey.Key{D: 1, X: 1, Y: 1, Z: 1}, 4096, 64)
	require.True(t, ok)

	buf := root.Marshal()
	require.Len(t, buf, hierarchy.EntrySize)

	var reloaded hierarchy.Page
	require.NoError(t, reloaded.Unmarshal(buf))
	require.True(t, reloaded.Loaded)
	require.Len(t, reloaded.Entries, 1)
	require.EqualValues(t, 4096, reloaded.Entries[0].Offset)
	require.EqualValues(t, 64, reloaded.Entries[0].ByteSize)
}

func TestUnmarshalRejectsTruncated(t *testing.T) {
	var p hierarchy.Page
	err := p.Unmarshal(make([]byte, 10))
	require.Error(t, err)
}

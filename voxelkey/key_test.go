package voxelkey_test

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/voxelkey"
)

func TestParentChildrenRoundTrip(t *testing.T) {
	keys := []voxelkey.Key{
		{1, 0, 0, 0},
		{1, 1, 1, 1},
		{2, 3, 2, 1},
		{5, 17, 3, 9},
	}
	for _, k := range keys {
		children := k.Parent().Children()
		found := false
		for _, c := range children {
			if c == k {
				found = true
			}
		}
		assert.Truef(t, found, "parent().children() of %+v did not contain %+v", k, k)
	}
}

func TestRootParentIsInvalid(t *testing.T) {
	assert.Equal(t, voxelkey.Invalid, voxelkey.Root.Parent())
}

func TestInvalidGuards(t *testing.T) {
	assert.Equal(t, voxelkey.Invalid, voxelkey.Invalid.Parent())
	for _, c := range voxelkey.Invalid.Children() {
		assert.Equal(t, voxelkey.Invalid, c)
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		k     voxelkey.Key
		valid bool
	}{
		{voxelkey.Root, true},
		{voxelkey.Invalid, false},
		{voxelkey.Key{1, 1, 1, 1}, true},
		{voxelkey.Key{1, 2, 0, 0}, false},
		{voxelkey.Key{1, -1, 0, 0}, false},
		{voxelkey.Key{31, 0, 0, 0}, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.valid, c.k.IsValid(), "key %+v", c.k)
	}
}

func TestNewRejectsDeepKeys(t *testing.T) {
	_, err := voxelkey.New(31, 0, 0, 0)
	require.ErrorIs(t, err, voxelkey.ErrDepthTooDeep)

	k, err := voxelkey.New(3, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, voxelkey.Key{3, 1, 1, 1}, k)
}

func TestBoundsWithinHeader(t *testing.T) {
	min := r3.Vector{X: -10, Y: -10, Z: -10}
	max := r3.Vector{X: 10, Y: 10, Z: 10}

	for d := int32(0); d < 6; d++ {
		for _, k := range allKeysAtDepth(d) {
			b := k.Bounds(min, max)
			assert.GreaterOrEqualf(t, b.Min.X, min.X, "key %+v", k)
			assert.LessOrEqualf(t, b.Max.X, max.X, "key %+v", k)
			assert.GreaterOrEqualf(t, b.Min.Y, min.Y, "key %+v", k)
			assert.LessOrEqualf(t, b.Max.Y, max.Y, "key %+v", k)
			assert.GreaterOrEqualf(t, b.Min.Z, min.Z, "key %+v", k)
			assert.LessOrEqualf(t, b.Max.Z, max.Z, "key %+v", k)
		}
	}
}

func allKeysAtDepth(d int32) []voxelkey.Key {
	n := int32(1) << uint(d)
	var out []voxelkey.Key
	for x := int32(0); x < n; x++ {
		for y := int32(0); y < n; y++ {
			for z := int32(0); z < n; z++ {
				out = append(out, voxelkey.Key{d, x, y, z})
			}
		}
	}
	return out
}

func TestWithinImpliesIntersects(t *testing.T) {
	min := r3.Vector{X: 0, Y: 0, Z: 0}
	max := r3.Vector{X: 8, Y: 8, Z: 8}
	box := voxelkey.Box{Min: r3.Vector{X: 1, Y: 1, Z: 1}, Max: r3.Vector{X: 5, Y: 5, Z: 5}}

	for _, k := range allKeysAtDepth(3) {
		if k.Within(min, max, box) {
			assert.Truef(t, k.Intersects(min, max, box), "key %+v within but not intersecting", k)
		}
	}
}

func TestPointInsideNodeIntersects(t *testing.T) {
	min := r3.Vector{X: 0, Y: 0, Z: 0}
	max := r3.Vector{X: 8, Y: 8, Z: 8}
	k := voxelkey.Key{1, 1, 1, 1}
	b := k.Bounds(min, max)
	mid := r3.Vector{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2, Z: (b.Min.Z + b.Max.Z) / 2}
	box := voxelkey.Box{Min: mid, Max: mid}
	assert.True(t, k.Intersects(min, max, box))
	assert.True(t, k.Contains(min, max, mid))
}

func TestResolutionAndDepth(t *testing.T) {
	min := r3.Vector{X: 0, Y: 0, Z: 0}
	max := r3.Vector{X: 100, Y: 100, Z: 100}

	d := voxelkey.DepthAtResolution(10, min, max)
	assert.GreaterOrEqual(t, voxelkey.ResolutionAtDepth(d, min, max), 10.0)
	assert.Less(t, voxelkey.ResolutionAtDepth(d+1, min, max), 10.0)
}

func TestAncestry(t *testing.T) {
	parent := voxelkey.Key{1, 1, 1, 1}
	child := voxelkey.Key{2, 2, 3, 2}
	assert.True(t, parent.IsAncestorOf(child))
	assert.True(t, child.IsChildOf(parent))
	assert.False(t, child.IsAncestorOf(parent))
	assert.True(t, parent.IsAncestorOf(parent))
}

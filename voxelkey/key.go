// Package voxelkey implements the octree coordinate algebra used to address
// COPC hierarchy entries: a voxel key is a (depth, x, y, z) tuple identifying
// a cubic cell of an implicit octree, plus the geometric predicates needed to
// map a key to its world-space bounding box.
package voxelkey

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MaxDepth is the deepest octree level implementations are required to
// support. Keys deeper than this are rejected rather than risking overflow
// of 1<<d.
const MaxDepth = 30

// Key is a voxel's octree address: depth d, with (x, y, z) indexing the
// voxel at that depth. 0 <= x,y,z < 2^d for a valid, non-root key.
type Key struct {
	D, X, Y, Z int32
}

// Root is the sentinel key for the root of the octree.
var Root = Key{0, 0, 0, 0}

// Invalid is the sentinel key used to signal "no such node".
var Invalid = Key{-1, -1, -1, -1}

// ErrKeyInvalid is the category sentinel for spec.md §7's "key-invalid"
// error kind (out-of-range voxel coordinates, duplicate insertion,
// non-descendant sub-page). Per-condition errors across the module wrap
// it so callers can test errors.Is(err, ErrKeyInvalid) without matching
// each condition individually.
var ErrKeyInvalid = errors.New("voxelkey: invalid key")

// ErrDepthTooDeep is returned when a key's depth exceeds MaxDepth.
var ErrDepthTooDeep = errors.Wrap(ErrKeyInvalid, "voxelkey: depth exceeds MaxDepth")

// New constructs a Key and rejects depths beyond MaxDepth up front, per the
// depth-31-overflow guard: 1<<31 does not fit in an int32.
func New(d, x, y, z int32) (Key, error) {
	if d > MaxDepth {
		return Invalid, errors.Wrapf(ErrDepthTooDeep, "depth %d exceeds max %d", d, MaxDepth)
	}
	return Key{d, x, y, z}, nil
}

// IsValid reports whether k is the root, or has non-negative coordinates
// strictly within 2^d on every axis.
func (k Key) IsValid() bool {
	if k == Root {
		return true
	}
	if k.D < 0 || k.D > MaxDepth {
		return false
	}
	if k.X < 0 || k.Y < 0 || k.Z < 0 {
		return false
	}
	span := int32(1) << uint(k.D)
	return k.X < span && k.Y < span && k.Z < span
}

// Parent returns the key one depth shallower, or Invalid if k is Invalid or
// is already the root.
func (k Key) Parent() Key {
	if k == Invalid || k.D <= 0 {
		return Invalid
	}
	return Key{k.D - 1, k.X >> 1, k.Y >> 1, k.Z >> 1}
}

// Children returns the eight keys one depth deeper that subdivide k. Calling
// Children on Invalid returns eight Invalid keys.
func (k Key) Children() [8]Key {
	var out [8]Key
	if k == Invalid {
		for i := range out {
			out[i] = Invalid
		}
		return out
	}
	i := 0
	for dx := int32(0); dx < 2; dx++ {
		for dy := int32(0); dy < 2; dy++ {
			for dz := int32(0); dz < 2; dz++ {
				out[i] = Key{k.D + 1, 2*k.X + dx, 2*k.Y + dy, 2*k.Z + dz}
				i++
			}
		}
	}
	return out
}

// IsAncestorOf reports whether k is a strict or equal ancestor of other:
// other's coordinates, right-shifted by the depth difference, equal k's.
func (k Key) IsAncestorOf(other Key) bool {
	if k == Invalid || other == Invalid {
		return false
	}
	if k == other {
		return true
	}
	if k.D >= other.D {
		return false
	}
	shift := uint(other.D - k.D)
	return other.X>>shift == k.X && other.Y>>shift == k.Y && other.Z>>shift == k.Z
}

// IsChildOf reports whether other is a strict or equal ancestor of k.
func (k Key) IsChildOf(other Key) bool {
	return other.IsAncestorOf(k)
}

// Box is a closed-interval, axis-aligned bounding box in world space.
type Box struct {
	Min, Max r3.Vector
}

// Bounds returns the world-space cube occupied by k, given the LAS header's
// overall (min, max) bounding cube. The cube side is the largest extent of
// (max-min); the voxel at depth d occupies a 1/2^d slice of that cube along
// each axis.
func (k Key) Bounds(min, max r3.Vector) Box {
	span := cubeSpan(min, max)
	if k == Root {
		return Box{Min: min, Max: r3.Vector{X: min.X + span, Y: min.Y + span, Z: min.Z + span}}
	}
	n := float64(int32(1) << uint(k.D))
	step := span / n
	return Box{
		Min: r3.Vector{
			X: min.X + step*float64(k.X),
			Y: min.Y + step*float64(k.Y),
			Z: min.Z + step*float64(k.Z),
		},
		Max: r3.Vector{
			X: min.X + step*float64(k.X+1),
			Y: min.Y + step*float64(k.Y+1),
			Z: min.Z + step*float64(k.Z+1),
		},
	}
}

func cubeSpan(min, max r3.Vector) float64 {
	dx := max.X - min.X
	dy := max.Y - min.Y
	dz := max.Z - min.Z
	span := dx
	if dy > span {
		span = dy
	}
	if dz > span {
		span = dz
	}
	return span
}

// Within reports whether k's bounds lie entirely within box (closed
// intervals on both ends).
func (k Key) Within(min, max r3.Vector, box Box) bool {
	b := k.Bounds(min, max)
	return b.Min.X >= box.Min.X && b.Max.X <= box.Max.X &&
		b.Min.Y >= box.Min.Y && b.Max.Y <= box.Max.Y &&
		b.Min.Z >= box.Min.Z && b.Max.Z <= box.Max.Z
}

// Intersects reports whether k's bounds overlap box at all. Within implies
// Intersects.
func (k Key) Intersects(min, max r3.Vector, box Box) bool {
	b := k.Bounds(min, max)
	return b.Min.X <= box.Max.X && b.Max.X >= box.Min.X &&
		b.Min.Y <= box.Max.Y && b.Max.Y >= box.Min.Y &&
		b.Min.Z <= box.Max.Z && b.Max.Z >= box.Min.Z
}

// ResolutionAtDepth returns the world-space sample spacing of a voxel at
// depth d, given the LAS header's bounding cube: span / 2^d.
func ResolutionAtDepth(d int32, min, max r3.Vector) float64 {
	span := cubeSpan(min, max)
	return span / float64(int32(1)<<uint(d))
}

// DepthAtResolution returns the largest depth d such that the resolution at
// d is still >= the requested resolution: d* = max{d : span/2^d >= r}. If r
// is non-positive, MaxDepth is returned (no resolution pruning).
func DepthAtResolution(resolution float64, min, max r3.Vector) int32 {
	if resolution <= 0 {
		return MaxDepth
	}
	span := cubeSpan(min, max)
	d := int32(0)
	for d < MaxDepth {
		next := span / float64(int32(1)<<uint(d+1))
		if next < resolution {
			break
		}
		d++
	}
	return d
}

// Contains reports whether the point p lies within k's closed bounding box.
func (k Key) Contains(min, max r3.Vector, p r3.Vector) bool {
	b := k.Bounds(min, max)
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Package copc ties the lasio header/VLR codecs and the hierarchy package
// together into the COPC-specific descriptor types spec.md §4.3 and §4.6
// name: Info (the COPC-info VLR's in-memory form), Extents (per-dimension
// statistics), and the Config/ConfigWriter split that reader and writer
// share.
package copc

// Info mirrors the COPC-info VLR payload (spec.md §4.3, lasio.CopcInfoVlr)
// in its decoded, domain-shaped form: a cube center/half-size describing
// the octree's bounding volume, the root-level sample spacing, the
// back-patched root hierarchy page location, and the observed GPS time
// range. It is named Info rather than CopcInfo to avoid stuttering with
// the package name.
type Info struct {
	CenterX, CenterY, CenterZ float64
	HalfSize                  float64
	Spacing                   float64
	RootHierOffset            uint64
	RootHierSize              uint64
	GpsTimeMin, GpsTimeMax    float64
}

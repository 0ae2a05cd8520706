package reader

import (
	"io"

	"github.com/pkg/errors"

	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/laz"
	"github.com/copc-go/copc/lasio"
	"github.com/copc-go/copc/voxelkey"
)

// GetPointDataCompressed reads a node's raw compressed chunk bytes,
// without decompressing.
func (r *Reader) GetPointDataCompressed(node hierarchy.Entry) ([]byte, error) {
	if !node.IsNode() {
		return nil, errors.Errorf("reader: entry %+v is not a node", node.Key)
	}
	if err := r.seek(node.Offset); err != nil {
		return nil, err
	}
	buf := make([]byte, node.ByteSize)
	if _, err := io.ReadFull(r.stream, buf); err != nil {
		return nil, errors.Wrapf(err, "reader: reading node %+v", node.Key)
	}
	return buf, nil
}

// GetPointData decompresses a node's chunk into raw LAS point-record
// bytes.
func (r *Reader) GetPointData(node hierarchy.Entry) ([]byte, error) {
	compressed, err := r.GetPointDataCompressed(node)
	if err != nil {
		return nil, err
	}
	params := laz.Params{
		PointFormatID:  r.config.Header.PointFormatID,
		ExtraBytesSize: mustEbBytes(r.config.EbVlr),
	}
	return r.codec.Decompress(compressed, params, int(node.PointCount))
}

// GetPoints decompresses and unpacks a node's points into PointRecords.
func (r *Reader) GetPoints(node hierarchy.Entry) (lasio.Points, error) {
	raw, err := r.GetPointData(node)
	if err != nil {
		return lasio.Points{}, err
	}
	return lasio.Unpack(raw, r.config.Header.PointFormatID, r.config.EbVlr.Items, r.config.Header.Scale, r.config.Header.Offset)
}

func mustEbBytes(v lasio.EbVlr) int {
	n, err := v.NumBytes()
	if err != nil {
		return 0
	}
	return n
}

// GetDepthAtResolution returns the deepest octree depth whose voxel
// resolution is still at least resolution (spec.md §4.4).
func (r *Reader) GetDepthAtResolution(resolution float64) int32 {
	return voxelkey.DepthAtResolution(resolution, r.config.Header.Min, r.config.Header.Max)
}

// GetNodesAtResolution returns the nodes at GetDepthAtResolution's depth
// for resolution: nodes exactly at that depth, plus any shallower
// node with no deeper node beneath it (a branch the writer never
// subdivided further).
func (r *Reader) GetNodesAtResolution(resolution float64) ([]hierarchy.Entry, error) {
	all, err := r.GetAllNodes()
	if err != nil {
		return nil, err
	}
	targetDepth := r.GetDepthAtResolution(resolution)

	byKey := make(map[voxelkey.Key]struct{}, len(all))
	for _, e := range all {
		byKey[e.Key] = struct{}{}
	}

	var out []hierarchy.Entry
	for _, e := range all {
		if e.Key.D > targetDepth {
			continue
		}
		if e.Key.D == targetDepth || !hasDescendant(byKey, e.Key) {
			out = append(out, e)
		}
	}
	return out, nil
}

func hasDescendant(keys map[voxelkey.Key]struct{}, key voxelkey.Key) bool {
	for k := range keys {
		if k != key && key.IsAncestorOf(k) {
			return true
		}
	}
	return false
}

// GetNodesWithinResolution returns every node at a depth at least as
// coarse as resolution (depth <= the target depth), with no leaf pruning.
func (r *Reader) GetNodesWithinResolution(resolution float64) ([]hierarchy.Entry, error) {
	all, err := r.GetAllNodes()
	if err != nil {
		return nil, err
	}
	targetDepth := r.GetDepthAtResolution(resolution)
	var out []hierarchy.Entry
	for _, e := range all {
		if e.Key.D <= targetDepth {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Reader) nodesForResolution(resolution float64) ([]hierarchy.Entry, error) {
	if resolution <= 0 {
		return r.GetAllNodes()
	}
	return r.GetNodesWithinResolution(resolution)
}

// GetNodesWithinBox returns every node (optionally depth-limited by
// resolution; 0 means unlimited) whose voxel lies entirely within box.
func (r *Reader) GetNodesWithinBox(box voxelkey.Box, resolution float64) ([]hierarchy.Entry, error) {
	nodes, err := r.nodesForResolution(resolution)
	if err != nil {
		return nil, err
	}
	var out []hierarchy.Entry
	for _, e := range nodes {
		if e.Key.Within(r.config.Header.Min, r.config.Header.Max, box) {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetNodesIntersectBox returns every node (optionally depth-limited) whose
// voxel overlaps box at all.
func (r *Reader) GetNodesIntersectBox(box voxelkey.Box, resolution float64) ([]hierarchy.Entry, error) {
	nodes, err := r.nodesForResolution(resolution)
	if err != nil {
		return nil, err
	}
	var out []hierarchy.Entry
	for _, e := range nodes {
		if e.Key.Intersects(r.config.Header.Min, r.config.Header.Max, box) {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetPointsWithinBox decompresses every node intersecting box and trims
// the result to points inside it, boundary included (a supplemented feature layered
// on GetNodesIntersectBox: a node may only partially overlap box).
func (r *Reader) GetPointsWithinBox(box voxelkey.Box, resolution float64) (lasio.Points, error) {
	nodes, err := r.GetNodesIntersectBox(box, resolution)
	if err != nil {
		return lasio.Points{}, err
	}
	out := lasio.Points{FormatID: r.config.Header.PointFormatID, EbItems: r.config.EbVlr.Items}
	for _, node := range nodes {
		pts, err := r.GetPoints(node)
		if err != nil {
			return lasio.Points{}, err
		}
		out.Records = append(out.Records, pts.GetWithin(box.Min, box.Max).Records...)
	}
	return out, nil
}

// ValidateSpatialBounds checks that every node's compressed points lie
// within that node's own voxel bounds. When verbose is true, each
// violation is logged at Warn level rather than aborting the scan.
func (r *Reader) ValidateSpatialBounds(verbose bool) (bool, error) {
	nodes, err := r.GetAllNodes()
	if err != nil {
		return false, err
	}
	valid := true
	for _, node := range nodes {
		pts, err := r.GetPoints(node)
		if err != nil {
			return false, err
		}
		for _, p := range pts.Records {
			if !node.Key.Contains(r.config.Header.Min, r.config.Header.Max, p.Position()) {
				valid = false
				if verbose {
					r.logger.Warnw("point outside node bounds",
						"node", node.Key, "point", p.Position())
				}
			}
		}
	}
	return valid, nil
}

package writer

import (
	"github.com/pkg/errors"

	"github.com/copc-go/copc/copc"
	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/laz"
	"github.com/copc-go/copc/lasio"
	"github.com/copc-go/copc/voxelkey"
)

func zeroExtent() copc.Extent { return copc.Extent{} }

// AddSubPage validates subKey is a strict descendant of parentPage's key
// and not already referenced there, adds a placeholder page-pointer entry
// to parentPage (back-patched at Close), and returns the new, empty child
// page (spec.md §4.5's add_sub_page).
func (w *Writer) AddSubPage(parentPage *hierarchy.Page, subKey voxelkey.Key) (*hierarchy.Page, error) {
	if !w.open {
		return nil, ErrClosed
	}
	child, err := parentPage.AddSubPage(subKey)
	if err != nil {
		return nil, err
	}
	w.pages[subKey] = child
	return child, nil
}

// AddNode packs and compresses points, then records an Entry for key in
// page (spec.md §4.5's add_node).
func (w *Writer) AddNode(page *hierarchy.Page, key voxelkey.Key, points lasio.Points) error {
	if !w.open {
		return ErrClosed
	}
	if points.FormatID != w.config.Header.PointFormatID {
		return errors.Wrapf(ErrWrongFormat, "points format %d, writer format %d", points.FormatID, w.config.Header.PointFormatID)
	}
	raw, err := points.Pack(w.config.Header.Scale, w.config.Header.Offset)
	if err != nil {
		return err
	}
	ebSize, err := lasio.EbVlr{Items: w.config.EbVlr.Items}.NumBytes()
	if err != nil {
		return err
	}
	compressed, err := w.codec.Compress(raw, laz.Params{PointFormatID: w.config.Header.PointFormatID, ExtraBytesSize: ebSize})
	if err != nil {
		return errors.Wrap(err, "writer: compressing node")
	}
	if err := w.AddNodeCompressed(page, key, compressed, int32(len(points.Records))); err != nil {
		return err
	}
	w.recordReturns(points.Records)
	return nil
}

// recordReturns updates the header's points-by-return histogram. Only
// AddNode's uncompressed path can do this: AddNodeCompressed never sees
// individual records.
func (w *Writer) recordReturns(records []lasio.PointRecord) {
	for _, r := range records {
		if r.ReturnNumber >= 1 && int(r.ReturnNumber) <= len(w.config.Header.PointsByReturn) {
			w.config.Header.PointsByReturn[r.ReturnNumber-1]++
		}
	}
}

// AddNodeCompressed records already-compressed chunk bytes under key,
// validating key is a descendant of page and not already present under
// any page in the file (cross-page uniqueness is a writer-level
// invariant: hierarchy.Page only knows about its own entries).
func (w *Writer) AddNodeCompressed(page *hierarchy.Page, key voxelkey.Key, compressed []byte, pointCount int32) error {
	if !w.open {
		return ErrClosed
	}
	if _, exists := w.nodeKeys[key]; exists {
		return errors.Wrapf(hierarchy.ErrAlreadyReferenced, "key %+v", key)
	}

	offset, err := w.tell()
	if err != nil {
		return err
	}
	if err := page.AddNode(key, offset, int32(len(compressed)), pointCount); err != nil {
		return err
	}
	if _, err := w.stream.Write(compressed); err != nil {
		return errors.Wrapf(err, "writer: writing node %+v", key)
	}

	w.nodeKeys[key] = struct{}{}
	w.chunks = append(w.chunks, laz.ChunkEntry{Offset: offset, PointCount: pointCount})
	w.config.Header.PointCount += uint64(pointCount)
	return nil
}

// writeChunkTable implements spec.md §4.5 steps 1-3: delta-encode the
// recorded chunk offsets, compress the table, append it at the stream
// tail, and stage the chunk-table's own offset for the LAZ VLR rewrite
// writePreamble performs later in Close.
func (w *Writer) writeChunkTable() error {
	table := laz.ChunkTable{Entries: w.chunks}
	deltas := table.EncodeDeltas(w.pointDataOffset)
	encoded, err := laz.Encode(w.codec, deltas)
	if err != nil {
		return err
	}

	tableOffset, err := w.tell()
	if err != nil {
		return err
	}
	if _, err := w.stream.Write(encoded); err != nil {
		return errors.Wrap(err, "writer: writing chunk table")
	}

	w.lazVlr.ChunkTableOffset = tableOffset
	return nil
}

// writePages serializes every hierarchy page bottom-up: each page's
// sub-page entries are patched with their child's final (offset, size)
// once the child has been written, so a page is only written after every
// page it references has been (spec.md §4.5 step 4). The root is written
// last and its offset/size recorded into CopcInfo.
func (w *Writer) writePages() error {
	var write func(key voxelkey.Key) (int64, int32, error)
	write = func(key voxelkey.Key) (int64, int32, error) {
		page := w.pages[key]
		for _, e := range page.Entries {
			if e.Kind() != hierarchy.KindPage {
				continue
			}
			childOffset, childSize, err := write(e.Key)
			if err != nil {
				return 0, 0, err
			}
			page.PatchPageEntry(e.Key, childOffset, childSize)
		}

		offset, err := w.tell()
		if err != nil {
			return 0, 0, err
		}
		buf := page.Marshal()
		if len(buf) > 0 {
			if _, err := w.stream.Write(buf); err != nil {
				return 0, 0, errors.Wrapf(err, "writer: writing page %+v", key)
			}
		}
		return offset, int32(len(buf)), nil
	}

	rootOffset, rootSize, err := write(voxelkey.Root)
	if err != nil {
		return err
	}
	w.config.Info.RootHierOffset = uint64(rootOffset)
	w.config.Info.RootHierSize = uint64(rootSize)
	return nil
}

// writeCopcExtentsEvlr writes the COPC-extents VLR as an EVLR at the
// current tail (always present, per spec.md §6's external-interfaces
// layout). Positional x/y/z entries are zero-valued: this module does
// not track a running min/max/mean/variance across added points (an
// Open Question left to callers, who may populate w.config.Extents
// directly before Close).
func (w *Writer) writeCopcExtentsEvlr() error {
	vlr := w.config.Extents.ToVlr(
		zeroExtent(), zeroExtent(), zeroExtent(),
	)
	payload, err := vlr.MarshalBinary()
	if err != nil {
		return err
	}
	header := lasio.MarshalEvlrHeader(lasio.VlrHeader{UserID: lasio.UserIDCopc, RecordID: lasio.RecordIDCopcExtents}, uint64(len(payload)))
	if _, err := w.stream.Write(header); err != nil {
		return errors.Wrap(err, "writer: writing COPC-extents EVLR header")
	}
	if _, err := w.stream.Write(payload); err != nil {
		return errors.Wrap(err, "writer: writing COPC-extents EVLR payload")
	}
	return nil
}

// writeWktEvlr writes the WKT EVLR if non-empty, reporting whether it
// wrote one.
func (w *Writer) writeWktEvlr() (bool, error) {
	if w.config.Wkt == "" {
		return false, nil
	}
	vlr := lasio.WktVlr{Wkt: w.config.Wkt}
	payload, err := vlr.MarshalBinary()
	if err != nil {
		return false, err
	}
	header := lasio.MarshalEvlrHeader(lasio.VlrHeader{UserID: lasio.UserIDLASFProjection, RecordID: lasio.RecordIDWkt}, uint64(len(payload)))
	if _, err := w.stream.Write(header); err != nil {
		return false, errors.Wrap(err, "writer: writing WKT EVLR header")
	}
	if _, err := w.stream.Write(payload); err != nil {
		return false, errors.Wrap(err, "writer: writing WKT EVLR payload")
	}
	return true, nil
}

package reader

import (
	"io"

	"github.com/pkg/errors"

	"github.com/copc-go/copc/hierarchy"
	"github.com/copc-go/copc/voxelkey"
)

// loadRootPage returns the root hierarchy page, reading and caching it on
// first call (spec.md §4.4's "root page is not loaded yet" step 7, lazily
// satisfied here).
func (r *Reader) loadRootPage() (*hierarchy.Page, error) {
	if p, ok := r.pages[voxelkey.Root]; ok {
		return p, nil
	}
	page, err := r.loadPageAt(voxelkey.Root, int64(r.config.Info.RootHierOffset), int32(r.config.Info.RootHierSize))
	if err != nil {
		return nil, err
	}
	r.pages[voxelkey.Root] = page
	return page, nil
}

// loadSubPage resolves a page-pointer entry to its Page, reading and
// caching it on first reference.
func (r *Reader) loadSubPage(entry hierarchy.Entry) (*hierarchy.Page, error) {
	if p, ok := r.pages[entry.Key]; ok {
		return p, nil
	}
	page, err := r.loadPageAt(entry.Key, entry.Offset, entry.ByteSize)
	if err != nil {
		return nil, err
	}
	r.pages[entry.Key] = page
	return page, nil
}

func (r *Reader) loadPageAt(key voxelkey.Key, offset int64, byteSize int32) (*hierarchy.Page, error) {
	page := hierarchy.NewPage(key)
	if byteSize == 0 {
		page.Loaded = true
		return page, nil
	}
	if err := r.seek(offset); err != nil {
		return nil, err
	}
	buf := make([]byte, byteSize)
	if _, err := io.ReadFull(r.stream, buf); err != nil {
		return nil, errors.Wrapf(err, "reader: reading page %+v at offset %d", key, offset)
	}
	if err := page.Unmarshal(buf); err != nil {
		return nil, err
	}
	return page, nil
}

// findNode walks from the root page to key, descending through
// page-pointer entries as needed (spec.md §4.4's traversal contract). A
// key with no entry, or the sentinel Invalid key, returns an empty/invalid
// Entry rather than an error.
func (r *Reader) findNode(key voxelkey.Key) (hierarchy.Entry, error) {
	if !key.IsValid() {
		return hierarchy.Entry{}, nil
	}
	root, err := r.loadRootPage()
	if err != nil {
		return hierarchy.Entry{}, err
	}
	return r.walkToNode(root, key)
}

func (r *Reader) walkToNode(page *hierarchy.Page, key voxelkey.Key) (hierarchy.Entry, error) {
	for _, e := range page.Entries {
		if e.Key == key {
			return e, nil
		}
		if e.IsPage() && e.Key.IsAncestorOf(key) {
			child, err := r.loadSubPage(e)
			if err != nil {
				return hierarchy.Entry{}, err
			}
			return r.walkToNode(child, key)
		}
	}
	return hierarchy.Entry{}, nil
}

// findPage walks from the root page to the page whose own key is exactly
// key, returning nil (no error) if no such page exists.
func (r *Reader) findPage(key voxelkey.Key) (*hierarchy.Page, error) {
	root, err := r.loadRootPage()
	if err != nil {
		return nil, err
	}
	if key == voxelkey.Root {
		return root, nil
	}
	return r.walkToPage(root, key)
}

func (r *Reader) walkToPage(page *hierarchy.Page, key voxelkey.Key) (*hierarchy.Page, error) {
	for _, e := range page.Entries {
		if !e.IsPage() {
			continue
		}
		if e.Key == key {
			return r.loadSubPage(e)
		}
		if e.Key.IsAncestorOf(key) {
			child, err := r.loadSubPage(e)
			if err != nil {
				return nil, err
			}
			return r.walkToPage(child, key)
		}
	}
	return nil, nil
}

// GetAllChildren returns key's node (if key identifies a node directly) or
// every node entry reachable from the page rooted at key (spec.md §4.4's
// GetAllChildrenOfPage). An unknown key yields an empty, nil-error result.
func (r *Reader) GetAllChildren(key voxelkey.Key) ([]hierarchy.Entry, error) {
	page, err := r.findPage(key)
	if err != nil {
		return nil, err
	}
	if page != nil {
		return r.collectNodes(page)
	}
	entry, err := r.findNode(key)
	if err != nil {
		return nil, err
	}
	if entry.IsNode() {
		return []hierarchy.Entry{entry}, nil
	}
	return nil, nil
}

func (r *Reader) collectNodes(page *hierarchy.Page) ([]hierarchy.Entry, error) {
	var out []hierarchy.Entry
	for _, e := range page.Entries {
		switch {
		case e.IsNode():
			out = append(out, e)
		case e.IsPage():
			child, err := r.loadSubPage(e)
			if err != nil {
				return nil, err
			}
			sub, err := r.collectNodes(child)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// GetAllNodes returns every node entry in the hierarchy.
func (r *Reader) GetAllNodes() ([]hierarchy.Entry, error) {
	return r.GetAllChildren(voxelkey.Root)
}

// GetPageList returns the key of every page in the hierarchy, including
// the root, discovered by a full traversal.
func (r *Reader) GetPageList() ([]voxelkey.Key, error) {
	root, err := r.loadRootPage()
	if err != nil {
		return nil, err
	}
	keys := []voxelkey.Key{voxelkey.Root}
	if err := r.collectPageKeys(root, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *Reader) collectPageKeys(page *hierarchy.Page, keys *[]voxelkey.Key) error {
	for _, e := range page.Entries {
		if !e.IsPage() {
			continue
		}
		*keys = append(*keys, e.Key)
		child, err := r.loadSubPage(e)
		if err != nil {
			return err
		}
		if err := r.collectPageKeys(child, keys); err != nil {
			return err
		}
	}
	return nil
}

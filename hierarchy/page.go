package hierarchy

import (
	"github.com/pkg/errors"

	"github.com/copc-go/copc/lasio"
	"github.com/copc-go/copc/voxelkey"
)

// ErrNotDescendant is returned when a node/sub-page key does not lie under
// the containing page's key (spec.md invariant 5, §7 key-invalid). It
// wraps voxelkey.ErrKeyInvalid so callers can test for the category
// without matching this condition specifically.
var ErrNotDescendant = errors.Wrap(voxelkey.ErrKeyInvalid, "hierarchy: key is not a descendant of the containing page")

// ErrAlreadyReferenced is returned when a sub-page key is already present
// in the parent page (spec.md §4.2, §7 key-invalid: "duplicate insertion").
var ErrAlreadyReferenced = errors.Wrap(voxelkey.ErrKeyInvalid, "hierarchy: key already has an entry in this page")

// Page is a contiguous array of hierarchy entries identified by a voxel
// key (spec.md §3). The root page has Key == voxelkey.Root.
type Page struct {
	Key     voxelkey.Key
	Entries []Entry
	Loaded  bool
}

// NewPage returns an empty page for key.
func NewPage(key voxelkey.Key) *Page {
	return &Page{Key: key}
}

// ByteSize returns the page's serialized byte length: 32 bytes per entry.
func (p *Page) ByteSize() int32 {
	return int32(len(p.Entries)) * EntrySize
}

// validateWithin reports whether key may legally appear as an entry of a
// page rooted at pageKey: key must be pageKey itself (only permitted when
// pageKey is the root) or a strict descendant of pageKey.
func validateWithin(pageKey, key voxelkey.Key) error {
	if key == pageKey {
		if pageKey == voxelkey.Root {
			return nil
		}
		return errors.Wrapf(ErrNotDescendant, "key %+v equals non-root page key %+v", key, pageKey)
	}
	if !pageKey.IsAncestorOf(key) {
		return errors.Wrapf(ErrNotDescendant, "key %+v is not under page key %+v", key, pageKey)
	}
	return nil
}

// Find returns the entry for key within this page, if present.
func (p *Page) Find(key voxelkey.Key) (Entry, bool) {
	for _, e := range p.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// AddNode appends a Node entry for key, validating that key belongs under
// this page and is not already present in it. Cross-page uniqueness
// (spec.md's "not already present under this or any other page") is a
// writer-level invariant enforced by the writer package, which owns the
// full set of pages.
func (p *Page) AddNode(key voxelkey.Key, offset int64, byteSize int32, pointCount int32) error {
	if err := validateWithin(p.Key, key); err != nil {
		return err
	}
	if _, exists := p.Find(key); exists {
		return errors.Wrapf(ErrAlreadyReferenced, "key %+v", key)
	}
	p.Entries = append(p.Entries, Entry{Key: key, Offset: offset, ByteSize: byteSize, PointCount: pointCount})
	return nil
}

// AddSubPage validates subKey is a strict descendant of this page's key
// and not already referenced, appends a placeholder page-pointer entry
// (offset/size to be back-patched later), and returns the new empty child
// page.
func (p *Page) AddSubPage(subKey voxelkey.Key) (*Page, error) {
	if subKey == p.Key || !p.Key.IsAncestorOf(subKey) {
		return nil, errors.Wrapf(ErrNotDescendant, "sub-page key %+v is not a strict descendant of %+v", subKey, p.Key)
	}
	if _, exists := p.Find(subKey); exists {
		return nil, errors.Wrapf(ErrAlreadyReferenced, "key %+v", subKey)
	}
	p.Entries = append(p.Entries, NewPageEntry(subKey, 0, 0))
	child := NewPage(subKey)
	child.Loaded = true
	return child, nil
}

// PatchPageEntry rewrites the offset/size of the page-pointer entry for
// subKey, used once the child page's final position is known (spec.md
// §4.5 step 4's back-patching).
func (p *Page) PatchPageEntry(subKey voxelkey.Key, offset int64, byteSize int32) bool {
	for i := range p.Entries {
		if p.Entries[i].Key == subKey && p.Entries[i].Kind() == KindPage {
			p.Entries[i].Offset = offset
			p.Entries[i].ByteSize = byteSize
			return true
		}
	}
	return false
}

// Marshal serializes the page as a contiguous run of 32-byte entries.
func (p *Page) Marshal() []byte {
	buf := make([]byte, 0, len(p.Entries)*EntrySize)
	for _, e := range p.Entries {
		buf = append(buf, e.Marshal()...)
	}
	return buf
}

// Unmarshal parses a page payload (a contiguous run of 32-byte entries)
// into p.Entries, marking the page loaded. Truncated payloads (not a
// multiple of EntrySize) are format-invalid per spec.md §7.
func (p *Page) Unmarshal(data []byte) error {
	if len(data)%EntrySize != 0 {
		return errors.Wrapf(lasio.ErrFormatInvalid, "hierarchy: page payload size %d is not a multiple of %d", len(data), EntrySize)
	}
	n := len(data) / EntrySize
	p.Entries = make([]Entry, n)
	for i := 0; i < n; i++ {
		e, err := UnmarshalEntry(data[i*EntrySize : (i+1)*EntrySize])
		if err != nil {
			return err
		}
		p.Entries[i] = e
	}
	p.Loaded = true
	return nil
}

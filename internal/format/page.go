package format

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// BTPage is the decoded metadata of one B-tree index page. Entries remain a
// raw slice; the caller slices records out of it with EntrySize strides so
// traversal stays allocation-free.
type BTPage struct {
	Entries   []byte
	Count     int
	MaxCount  int
	EntrySize int
	Level     int  // levels to leaf; 0 means this page holds leaf entries
	Ptype     byte // PtypeNBT or PtypeBBT
}

// ParseBTPage decodes an index page for the given variant. The page buffer
// must be exactly Header.PageSize bytes.
func ParseBTPage(h Header, page []byte) (BTPage, error) {
	if len(page) != h.PageSize() {
		return BTPage{}, fmt.Errorf("btpage: %w", ErrTruncated)
	}
	var p BTPage
	switch {
	case h.Is4K():
		meta := page[Page4KMetaOffset:]
		p.Count = int(buf.U16LE(meta))
		p.MaxCount = int(buf.U16LE(meta[2:]))
		p.EntrySize = int(meta[4])
		p.Level = int(meta[5])
		p.Ptype = page[Page4KTrailerOffset]
		p.Entries = page[:Page4KMetaOffset]
	case h.IsANSI():
		meta := page[ANSIPageMetaOffset:]
		p.Count = int(meta[0])
		p.MaxCount = int(meta[1])
		p.EntrySize = int(meta[2])
		p.Level = int(meta[3])
		p.Ptype = page[ANSIPageTrailerOffset]
		p.Entries = page[:ANSIPageMetaOffset]
	default:
		meta := page[UnicodePageMetaOffset:]
		p.Count = int(meta[0])
		p.MaxCount = int(meta[1])
		p.EntrySize = int(meta[2])
		p.Level = int(meta[3])
		p.Ptype = page[UnicodePageTrailerOffset]
		p.Entries = page[:UnicodePageMetaOffset]
	}
	if p.Ptype != PtypeNBT && p.Ptype != PtypeBBT {
		return BTPage{}, fmt.Errorf("btpage: type marker 0x%02X: %w", p.Ptype, ErrBadPage)
	}
	if p.EntrySize <= 0 || p.Count < 0 || p.Count*p.EntrySize > len(p.Entries) {
		return BTPage{}, fmt.Errorf("btpage: %d entries of %d bytes: %w", p.Count, p.EntrySize, ErrBadPage)
	}
	return p, nil
}

// Entry returns the i-th raw record of the page.
func (p BTPage) Entry(i int) []byte {
	return p.Entries[i*p.EntrySize : (i+1)*p.EntrySize]
}

// NBTEntry is a leaf record of the node B-tree.
type NBTEntry struct {
	NID      uint32
	DataBID  uint64
	SubBID   uint64 // 0 when the node has no sub-node tree
	ParentNID uint32
}

// BBTEntry is a leaf record of the block B-tree.
type BBTEntry struct {
	BID        uint64
	FileOffset uint64
	Size       int
	RefCount   int
}

// BranchEntry is an intermediate record of either tree.
type BranchEntry struct {
	Key   uint64
	Child uint64 // file offset of the child page
}

// DecodeNBTEntry decodes one node B-tree leaf record. The Unicode layout
// stores the NID as a 64-bit field with only the low half significant.
func DecodeNBTEntry(h Header, rec []byte) (NBTEntry, error) {
	if h.IsANSI() {
		if len(rec) < ANSINBTEntrySize {
			return NBTEntry{}, fmt.Errorf("nbt entry: %w", ErrTruncated)
		}
		return NBTEntry{
			NID:       buf.U32LE(rec),
			DataBID:   uint64(buf.U32LE(rec[4:])),
			SubBID:    uint64(buf.U32LE(rec[8:])),
			ParentNID: buf.U32LE(rec[12:]),
		}, nil
	}
	if len(rec) < UnicodeNBTEntrySize {
		return NBTEntry{}, fmt.Errorf("nbt entry: %w", ErrTruncated)
	}
	return NBTEntry{
		NID:       uint32(buf.U64LE(rec)),
		DataBID:   buf.U64LE(rec[8:]),
		SubBID:    buf.U64LE(rec[16:]),
		ParentNID: buf.U32LE(rec[24:]),
	}, nil
}

// DecodeBBTEntry decodes one block B-tree leaf record.
func DecodeBBTEntry(h Header, rec []byte) (BBTEntry, error) {
	if h.IsANSI() {
		if len(rec) < ANSIBBTEntrySize {
			return BBTEntry{}, fmt.Errorf("bbt entry: %w", ErrTruncated)
		}
		return BBTEntry{
			BID:        uint64(buf.U32LE(rec)),
			FileOffset: uint64(buf.U32LE(rec[4:])),
			Size:       int(buf.U16LE(rec[8:])),
			RefCount:   int(buf.U16LE(rec[10:])),
		}, nil
	}
	if len(rec) < UnicodeBBTEntrySize {
		return BBTEntry{}, fmt.Errorf("bbt entry: %w", ErrTruncated)
	}
	return BBTEntry{
		BID:        buf.U64LE(rec),
		FileOffset: buf.U64LE(rec[8:]),
		Size:       int(buf.U16LE(rec[16:])),
		RefCount:   int(buf.U16LE(rec[18:])),
	}, nil
}

// DecodeBranchEntry decodes one intermediate record. The key is the lowest
// NID or BID reachable through the child page.
func DecodeBranchEntry(h Header, rec []byte) (BranchEntry, error) {
	if h.IsANSI() {
		if len(rec) < ANSIBranchEntrySize {
			return BranchEntry{}, fmt.Errorf("branch entry: %w", ErrTruncated)
		}
		return BranchEntry{
			Key:   uint64(buf.U32LE(rec)),
			Child: uint64(buf.U32LE(rec[ANSIBranchChildOffset:])),
		}, nil
	}
	if len(rec) < UnicodeBranchEntrySize {
		return BranchEntry{}, fmt.Errorf("branch entry: %w", ErrTruncated)
	}
	return BranchEntry{
		Key:   buf.U64LE(rec),
		Child: buf.U64LE(rec[UnicodeBranchChildOffset:]),
	}, nil
}

package testutil

import (
	"encoding/binary"
	"sort"

	"github.com/joshuapare/pstkit/internal/format"
)

// HID builds a heap id for a page number and 1-based allocation index.
func HID(page, index int) uint32 {
	return uint32(page)<<format.HIDPageShift | uint32(index)<<format.HIDIndexShift
}

// HeapPage assembles heap page 0: the heap header, the allocations, and the
// trailing page map. Allocation i (0-based) becomes HID index i+1.
func HeapPage(clientSig byte, userRoot uint32, allocs [][]byte) []byte {
	size := format.HNHeaderSize
	for _, a := range allocs {
		size += len(a)
	}
	page := make([]byte, size+format.HNPageMapTableOffset+(len(allocs)+1)*2)

	binary.LittleEndian.PutUint16(page[format.HNPageMapOffset:], uint16(size))
	page[format.HNSignatureOffset] = format.HNSignature
	page[format.HNClientSigOffset] = clientSig
	binary.LittleEndian.PutUint32(page[format.HNUserRootOffset:], userRoot)

	off := format.HNHeaderSize
	pm := page[size:]
	binary.LittleEndian.PutUint16(pm[format.HNPageMapAllocOffset:], uint16(len(allocs)))
	table := pm[format.HNPageMapTableOffset:]
	binary.LittleEndian.PutUint16(table, uint16(off))
	for i, a := range allocs {
		copy(page[off:], a)
		off += len(a)
		binary.LittleEndian.PutUint16(table[(i+1)*2:], uint16(off))
	}
	return page
}

// BTHHeaderAlloc builds a BTree-on-heap header allocation.
func BTHHeaderAlloc(keySize, entSize, levels int, root uint32) []byte {
	b := make([]byte, format.BTHHeaderSize)
	b[format.BTHBtypeOffset] = format.BtypeBTH
	b[format.BTHKeySizeOffset] = byte(keySize)
	b[format.BTHEntSizeOffset] = byte(entSize)
	b[format.BTHIdxLevelsOffset] = byte(levels)
	binary.LittleEndian.PutUint32(b[format.BTHRootOffset:], root)
	return b
}

// PropSpec declares one property for PCPage. Exactly one of Inline, Value
// or Hnid is meaningful: fixed types up to four bytes use Inline; a non-nil
// Value is stored in its own heap allocation; otherwise Hnid is written
// verbatim (e.g., a sub-node NID for external storage).
type PropSpec struct {
	ID     uint16
	Type   uint16
	Inline uint32
	Value  []byte
	Hnid   uint32
}

// PCPage assembles a complete single-page property context: BTH header at
// HID index 1 (the user root), the record array at index 2, and one
// allocation per Value-carrying property from index 3 on.
func PCPage(props []PropSpec) []byte {
	sorted := append([]PropSpec(nil), props...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	allocs := [][]byte{nil, nil} // BTH header, record array
	recs := make([]byte, 0, len(sorted)*format.PCRecordSize)
	next := 3
	for _, p := range sorted {
		rec := make([]byte, format.PCRecordSize)
		binary.LittleEndian.PutUint16(rec, p.ID)
		binary.LittleEndian.PutUint16(rec[format.PCRecordTypeOffset:], p.Type)
		hnid := p.Hnid
		switch {
		case p.Value != nil:
			allocs = append(allocs, p.Value)
			hnid = HID(0, next)
			next++
		case format.FixedWidth(p.Type) >= 0 && format.FixedWidth(p.Type) <= 4:
			hnid = p.Inline
		}
		binary.LittleEndian.PutUint32(rec[format.PCRecordHnidOffset:], hnid)
		recs = append(recs, rec...)
	}
	allocs[0] = BTHHeaderAlloc(2, 6, 0, HID(0, 2))
	allocs[1] = recs
	return HeapPage(format.ClientSigPC, HID(0, 1), allocs)
}

// TCSpec declares a table context for TCPage.
type TCSpec struct {
	Columns []format.TCColumn
	Rgib    [4]uint16
	RowIDs  []uint32 // row-index keys, in insertion order
	Rows    []byte   // row matrix; stored in the heap when RowsHnid is 0
	RowsHnid uint32  // external row matrix NID, when nonzero
	Extra   [][]byte // additional allocations (variable cell values), from index 5
}

// TCPage assembles a complete single-page table context. Allocation plan:
// index 1 TCINFO (user root), 2 row-index BTH header, 3 row-index records,
// 4 row matrix (when heap-resident), then Extra allocations.
func TCPage(spec TCSpec) []byte {
	info := make([]byte, format.TCHeaderSize+len(spec.Columns)*format.TCColDescSize)
	info[format.TCBtypeOffset] = format.ClientSigTC
	info[format.TCColCountOffset] = byte(len(spec.Columns))
	for i, v := range spec.Rgib {
		binary.LittleEndian.PutUint16(info[format.TCRgibOffset+2*i:], v)
	}
	binary.LittleEndian.PutUint32(info[format.TCRowIndexOffset:], HID(0, 2))
	rowsHnid := spec.RowsHnid
	if rowsHnid == 0 && spec.Rows != nil {
		rowsHnid = HID(0, 4)
	}
	binary.LittleEndian.PutUint32(info[format.TCRowsOffset:], rowsHnid)
	for i, c := range spec.Columns {
		rec := info[format.TCHeaderSize+i*format.TCColDescSize:]
		binary.LittleEndian.PutUint32(rec[format.TCColTagOffset:], uint32(c.PropID)<<16|uint32(c.Type))
		binary.LittleEndian.PutUint16(rec[format.TCColIbOffset:], uint16(c.Ib))
		rec[format.TCColCbOffset] = byte(c.Cb)
		rec[format.TCColIBitOffset] = byte(c.IBit)
	}

	idxRecs := make([]byte, 0, len(spec.RowIDs)*8)
	for i, id := range spec.RowIDs {
		rec := make([]byte, 8)
		binary.LittleEndian.PutUint32(rec, id)
		binary.LittleEndian.PutUint32(rec[4:], uint32(i))
		idxRecs = append(idxRecs, rec...)
	}

	rows := spec.Rows
	if rows == nil {
		rows = []byte{}
	}
	allocs := [][]byte{
		info,
		BTHHeaderAlloc(4, 4, 0, HID(0, 3)),
		idxRecs,
		rows,
	}
	allocs = append(allocs, spec.Extra...)
	return HeapPage(format.ClientSigTC, HID(0, 1), allocs)
}

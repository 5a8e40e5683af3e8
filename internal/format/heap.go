package format

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// HeapHeader is the decoded page-0 header of a heap-on-node.
type HeapHeader struct {
	ClientSig byte
	UserRoot  uint32 // HID of the client root allocation
}

// ParseHeapHeader validates the heap signature on page 0 and returns the
// client signature and user root.
func ParseHeapHeader(page []byte) (HeapHeader, error) {
	if len(page) < HNHeaderSize {
		return HeapHeader{}, fmt.Errorf("heap header: %w", ErrTruncated)
	}
	if page[HNSignatureOffset] != HNSignature {
		return HeapHeader{}, fmt.Errorf("heap header: signature 0x%02X: %w", page[HNSignatureOffset], ErrBadHeap)
	}
	return HeapHeader{
		ClientSig: page[HNClientSigOffset],
		UserRoot:  buf.U32LE(page[HNUserRootOffset:]),
	}, nil
}

// HIDIndex extracts the 1-based allocation index of a heap identifier.
func HIDIndex(hid uint32) int {
	return int(hid>>HIDIndexShift) & HIDIndexMask
}

// HIDPage extracts the heap page (block) number of a heap identifier.
func HIDPage(hid uint32) int {
	return int(hid >> HIDPageShift)
}

// IsHID reports whether an HNID addresses the heap rather than the sub-node
// map: a heap id has NID-type bits of zero ([MS-PST] §2.3.3.2).
func IsHID(hnid uint32) bool {
	return hnid&NIDTypeMask == NIDTypeHID
}

// HeapAlloc resolves allocation index (1-based) within a heap page, using
// the page map referenced by the leading 16-bit offset.
func HeapAlloc(page []byte, index int) ([]byte, error) {
	ibHnpm := int(buf.U16LE(page))
	pm, ok := buf.Slice(page, ibHnpm, HNPageMapTableOffset)
	if !ok {
		return nil, fmt.Errorf("heap page map at %d: %w", ibHnpm, ErrTruncated)
	}
	cAlloc := int(buf.U16LE(pm[HNPageMapAllocOffset:]))
	if index < 1 || index > cAlloc {
		return nil, fmt.Errorf("heap alloc %d of %d: %w", index, cAlloc, ErrNotFound)
	}
	table, ok := buf.Slice(page, ibHnpm+HNPageMapTableOffset, (cAlloc+1)*2)
	if !ok {
		return nil, fmt.Errorf("heap page map table: %w", ErrTruncated)
	}
	start := int(buf.U16LE(table[(index-1)*2:]))
	end := int(buf.U16LE(table[index*2:]))
	if end < start {
		return nil, fmt.Errorf("heap alloc %d inverted bounds: %w", index, ErrBadHeap)
	}
	alloc, ok := buf.Slice(page, start, end-start)
	if !ok {
		return nil, fmt.Errorf("heap alloc %d out of page: %w", index, ErrBadHeap)
	}
	return alloc, nil
}

// BTHHeader is the decoded header of a BTree-on-heap.
type BTHHeader struct {
	KeySize   int
	EntSize   int
	IdxLevels int
	Root      uint32 // HID of the root record block; 0 when the tree is empty
}

// ParseBTHHeader decodes a BTree-on-heap header allocation.
func ParseBTHHeader(b []byte) (BTHHeader, error) {
	if len(b) < BTHHeaderSize {
		return BTHHeader{}, fmt.Errorf("bth header: %w", ErrTruncated)
	}
	if b[BTHBtypeOffset] != BtypeBTH {
		return BTHHeader{}, fmt.Errorf("bth header: btype 0x%02X: %w", b[BTHBtypeOffset], ErrBadHeap)
	}
	h := BTHHeader{
		KeySize:   int(b[BTHKeySizeOffset]),
		EntSize:   int(b[BTHEntSizeOffset]),
		IdxLevels: int(b[BTHIdxLevelsOffset]),
		Root:      buf.U32LE(b[BTHRootOffset:]),
	}
	switch h.KeySize {
	case 2, 4, 8, 16:
	default:
		return BTHHeader{}, fmt.Errorf("bth header: key size %d: %w", h.KeySize, ErrBadHeap)
	}
	return h, nil
}

package reader

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Heap is a heap-on-node: the node's logical stream divided into pages (one
// per data leaf), with page 0 carrying the heap header. Pages are decoded
// once at open; heap ids resolve to subslices of them.
type Heap struct {
	hdr   format.HeapHeader
	pages [][]byte
}

// OpenHeap reads a node stream's blocks and validates the heap header.
func OpenHeap(s *Stream) (*Heap, error) {
	if s.BlockCount() == 0 {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  "empty node stream is not a heap",
			Err:  types.ErrCorrupt,
		}
	}
	pages := make([][]byte, s.BlockCount())
	for i := range pages {
		page, err := s.Block(i)
		if err != nil {
			return nil, err
		}
		pages[i] = page
	}
	hdr, err := format.ParseHeapHeader(pages[0])
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	return &Heap{hdr: hdr, pages: pages}, nil
}

// ClientSig returns the heap client signature (0xBC for a property context,
// 0x7C for a table context).
func (h *Heap) ClientSig() byte { return h.hdr.ClientSig }

// UserRoot returns the HID of the client root allocation.
func (h *Heap) UserRoot() uint32 { return h.hdr.UserRoot }

// Slice resolves a heap id to its allocation bytes. The zero HID resolves
// to an empty slice.
func (h *Heap) Slice(hid uint32) ([]byte, error) {
	if hid == 0 {
		return nil, nil
	}
	if !format.IsHID(hid) {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("hnid 0x%X is not a heap id", hid),
			Err:  types.ErrCorrupt,
		}
	}
	page := format.HIDPage(hid)
	if page >= len(h.pages) {
		return nil, notFound("heap page %d of %d", page, len(h.pages))
	}
	alloc, err := format.HeapAlloc(h.pages[page], format.HIDIndex(hid))
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	return alloc, nil
}

// WalkBTH iterates the records of a BTree-on-heap rooted at the given
// header, in key order. fn receives each raw leaf record (key then data).
func (h *Heap) WalkBTH(hdr format.BTHHeader, fn func(rec []byte) error) error {
	if hdr.Root == 0 {
		return nil
	}
	return h.walkBTHLevel(hdr, hdr.Root, hdr.IdxLevels, fn)
}

func (h *Heap) walkBTHLevel(hdr format.BTHHeader, hid uint32, level int, fn func(rec []byte) error) error {
	alloc, err := h.Slice(hid)
	if err != nil {
		return err
	}
	recSize := hdr.KeySize + hdr.EntSize
	if level > 0 {
		// Index records pair a key with the HID of the next level.
		recSize = hdr.KeySize + 4
	}
	if recSize == 0 || len(alloc)%recSize != 0 {
		return &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("bth level %d: %d bytes not a multiple of %d", level, len(alloc), recSize),
			Err:  types.ErrCorrupt,
		}
	}
	for off := 0; off < len(alloc); off += recSize {
		rec := alloc[off : off+recSize]
		if level > 0 {
			next := uint32(rec[hdr.KeySize]) |
				uint32(rec[hdr.KeySize+1])<<8 |
				uint32(rec[hdr.KeySize+2])<<16 |
				uint32(rec[hdr.KeySize+3])<<24
			if err := h.walkBTHLevel(hdr, next, level-1, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// BTHAt parses the BTree-on-heap header stored in the allocation hid.
func (h *Heap) BTHAt(hid uint32) (format.BTHHeader, error) {
	alloc, err := h.Slice(hid)
	if err != nil {
		return format.BTHHeader{}, err
	}
	hdr, err := format.ParseBTHHeader(alloc)
	if err != nil {
		return format.BTHHeader{}, wrapFormatErr(err)
	}
	return hdr, nil
}

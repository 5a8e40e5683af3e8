// Package testutil assembles tiny synthetic PST images in memory so the
// reader and object layers can be exercised without checked-in binaries.
// Everything here is test support; builders panic on misuse rather than
// returning errors.
package testutil

import (
	"encoding/binary"
	"sort"

	"github.com/joshuapare/pstkit/internal/format"
)

// Image accumulates blocks and nodes, then lays out a complete single-file
// PST: header, 64-byte-aligned blocks, and NBT/BBT trees of leaf pages with
// at most one branch page above them.
type Image struct {
	variant byte
	crypt   byte

	data    []byte
	blocks  []blockRef
	nodes   []nodeRef
	nextBID uint64
}

type blockRef struct {
	bid  uint64
	off  uint64
	size int
}

type nodeRef struct {
	nid     uint32
	dataBID uint64
	subBID  uint64
	parent  uint32
}

// NewImage starts an image for the given variant and encryption mode.
func NewImage(variant, crypt byte) *Image {
	return &Image{
		variant: variant,
		crypt:   crypt,
		data:    make([]byte, format.HeaderReadSize),
		nextBID: 1,
	}
}

// header derives the layout-selection view of the image's header without
// running crypt validation, so invalid-mode fixtures can still be built.
func (im *Image) header() format.Header {
	v := im.variant
	if v == format.VariantANSIAlt {
		v = format.VariantANSI
	}
	return format.Header{Variant: v, Crypt: im.crypt}
}

func (im *Image) align(n int) {
	for len(im.data)%n != 0 {
		im.data = append(im.data, 0)
	}
}

// AddDataBlock stores payload as an external data leaf, applying the
// permutation cipher when the image is encrypted. Returns the new BID.
func (im *Image) AddDataBlock(payload []byte) uint64 {
	stored := append([]byte(nil), payload...)
	if im.crypt == format.CryptPermute {
		format.PermuteEncode(stored)
	}
	return im.addBlock(stored, false)
}

// AddInternalBlock stores payload as an internal (block-tree) block, which
// is never ciphered. Returns the new BID with the internal bit set.
func (im *Image) AddInternalBlock(payload []byte) uint64 {
	return im.addBlock(append([]byte(nil), payload...), true)
}

func (im *Image) addBlock(stored []byte, internal bool) uint64 {
	bid := im.nextBID << 2
	im.nextBID++
	if internal {
		bid |= format.BIDInternalBit
	}
	im.align(format.BlockAlignment)
	off := uint64(len(im.data))
	im.data = append(im.data, stored...)
	im.blocks = append(im.blocks, blockRef{bid: bid, off: off, size: len(stored)})
	return bid
}

// AddNode registers an NBT entry.
func (im *Image) AddNode(nid uint32, dataBID, subBID uint64, parent uint32) {
	im.nodes = append(im.nodes, nodeRef{nid: nid, dataBID: dataBID, subBID: subBID, parent: parent})
}

// AddXBlock builds an XBLOCK over the given data-leaf BIDs, returning its
// (internal) BID. Total is taken from the registered leaf sizes unless
// overrideTotal is non-zero.
func (im *Image) AddXBlock(children []uint64, overrideTotal uint32) uint64 {
	return im.addTreeBlock(1, children, overrideTotal)
}

// AddXXBlock builds an XXBLOCK over the given XBLOCK BIDs.
func (im *Image) AddXXBlock(children []uint64, overrideTotal uint32) uint64 {
	return im.addTreeBlock(2, children, overrideTotal)
}

func (im *Image) addTreeBlock(level int, children []uint64, overrideTotal uint32) uint64 {
	h := im.header()
	w := h.IDWidth()
	b := make([]byte, format.BlockArrayOffset+len(children)*w)
	b[format.BlockBtypeOffset] = format.BtypeData
	b[format.BlockLevelOffset] = byte(level)
	binary.LittleEndian.PutUint16(b[format.BlockEntCountOffset:], uint16(len(children)))
	total := overrideTotal
	if total == 0 {
		total = im.sumLeaves(children, level)
	}
	binary.LittleEndian.PutUint32(b[format.BlockTotalOffset:], total)
	for i, c := range children {
		im.putID(b[format.BlockArrayOffset+i*w:], c, w)
	}
	return im.addBlock(b, true)
}

func (im *Image) sumLeaves(children []uint64, level int) uint32 {
	var total uint32
	for _, c := range children {
		for _, br := range im.blocks {
			if br.bid == c {
				if level == 2 {
					// Children are XBLOCKs; their own totals are authoritative.
					total += binary.LittleEndian.Uint32(im.data[br.off+format.BlockTotalOffset:])
				} else {
					total += uint32(br.size)
				}
			}
		}
	}
	return total
}

// AddSubnodeBlock builds an SLBLOCK for the given entries, returning its BID.
func (im *Image) AddSubnodeBlock(entries []format.SubnodeEntry) uint64 {
	h := im.header()
	w := h.IDWidth()
	entSize := 3 * w
	b := make([]byte, format.BlockArrayOffset+len(entries)*entSize)
	b[format.BlockBtypeOffset] = format.BtypeSubnode
	b[format.BlockLevelOffset] = 0
	binary.LittleEndian.PutUint16(b[format.BlockEntCountOffset:], uint16(len(entries)))
	for i, e := range entries {
		off := format.BlockArrayOffset + i*entSize
		im.putID(b[off:], uint64(e.LocalNID), w)
		im.putID(b[off+w:], e.DataBID, w)
		im.putID(b[off+2*w:], e.SubBID, w)
	}
	return im.addBlock(b, true)
}

func (im *Image) putID(b []byte, v uint64, w int) {
	if w == 4 {
		binary.LittleEndian.PutUint32(b, uint32(v))
	} else {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// Bytes lays out the B-trees and header and returns the finished image.
func (im *Image) Bytes() []byte {
	h := im.header()

	sort.Slice(im.blocks, func(i, j int) bool { return im.blocks[i].bid < im.blocks[j].bid })
	sort.Slice(im.nodes, func(i, j int) bool { return im.nodes[i].nid < im.nodes[j].nid })

	bbtRoot := im.writeTree(h, format.PtypeBBT)
	nbtRoot := im.writeTree(h, format.PtypeNBT)
	return im.finishHeader(nbtRoot, bbtRoot)
}

// writeTree emits leaf pages for one tree and, when more than one leaf is
// needed, a single branch page above them. Returns the root page offset.
func (im *Image) writeTree(h format.Header, ptype byte) uint64 {
	var entries [][]byte
	var keys []uint64
	if ptype == format.PtypeBBT {
		for _, br := range im.blocks {
			entries = append(entries, im.bbtEntry(h, br))
			keys = append(keys, format.BIDKey(br.bid))
		}
	} else {
		for _, n := range im.nodes {
			entries = append(entries, im.nbtEntry(h, n))
			keys = append(keys, uint64(n.nid))
		}
	}
	entrySize := len(im.bbtEntry(h, blockRef{}))
	if ptype == format.PtypeNBT {
		entrySize = len(im.nbtEntry(h, nodeRef{}))
	}

	perPage := im.pageCapacity(h) / entrySize
	var pageOffs []uint64
	var pageKeys []uint64
	for start := 0; start < len(entries) || start == 0; start += perPage {
		end := start + perPage
		if end > len(entries) {
			end = len(entries)
		}
		off := im.writePage(h, ptype, 0, entrySize, entries[start:end])
		pageOffs = append(pageOffs, off)
		if end > start {
			pageKeys = append(pageKeys, keys[start])
		} else {
			pageKeys = append(pageKeys, 0)
		}
		if end >= len(entries) {
			break
		}
	}
	if len(pageOffs) == 1 {
		return pageOffs[0]
	}
	branchSize := format.UnicodeBranchEntrySize
	childAt := format.UnicodeBranchChildOffset
	if h.IsANSI() {
		branchSize = format.ANSIBranchEntrySize
		childAt = format.ANSIBranchChildOffset
	}
	var branch [][]byte
	w := h.IDWidth()
	for i, off := range pageOffs {
		rec := make([]byte, branchSize)
		im.putID(rec, pageKeys[i], w)
		im.putID(rec[childAt:], off, w)
		branch = append(branch, rec)
	}
	return im.writePage(h, ptype, 1, branchSize, branch)
}

func (im *Image) pageCapacity(h format.Header) int {
	switch {
	case h.Is4K():
		return format.Page4KMetaOffset
	case h.IsANSI():
		return format.ANSIPageMetaOffset
	default:
		return format.UnicodePageMetaOffset
	}
}

func (im *Image) writePage(h format.Header, ptype byte, level, entrySize int, entries [][]byte) uint64 {
	im.align(h.PageSize())
	off := uint64(len(im.data))
	page := make([]byte, h.PageSize())
	at := 0
	for _, e := range entries {
		copy(page[at:], e)
		at += entrySize
	}
	switch {
	case h.Is4K():
		binary.LittleEndian.PutUint16(page[format.Page4KMetaOffset:], uint16(len(entries)))
		binary.LittleEndian.PutUint16(page[format.Page4KMetaOffset+2:], uint16(len(entries)))
		page[format.Page4KMetaOffset+4] = byte(entrySize)
		page[format.Page4KMetaOffset+5] = byte(level)
		page[format.Page4KTrailerOffset] = ptype
	case h.IsANSI():
		page[format.ANSIPageMetaOffset] = byte(len(entries))
		page[format.ANSIPageMetaOffset+1] = byte(len(entries))
		page[format.ANSIPageMetaOffset+2] = byte(entrySize)
		page[format.ANSIPageMetaOffset+3] = byte(level)
		page[format.ANSIPageTrailerOffset] = ptype
	default:
		page[format.UnicodePageMetaOffset] = byte(len(entries))
		page[format.UnicodePageMetaOffset+1] = byte(len(entries))
		page[format.UnicodePageMetaOffset+2] = byte(entrySize)
		page[format.UnicodePageMetaOffset+3] = byte(level)
		page[format.UnicodePageTrailerOffset] = ptype
	}
	im.data = append(im.data, page...)
	return off
}

func (im *Image) bbtEntry(h format.Header, br blockRef) []byte {
	if h.IsANSI() {
		rec := make([]byte, format.ANSIBBTEntrySize)
		binary.LittleEndian.PutUint32(rec, uint32(br.bid))
		binary.LittleEndian.PutUint32(rec[4:], uint32(br.off))
		binary.LittleEndian.PutUint16(rec[8:], uint16(br.size))
		binary.LittleEndian.PutUint16(rec[10:], 1)
		return rec
	}
	rec := make([]byte, format.UnicodeBBTEntrySize)
	binary.LittleEndian.PutUint64(rec, br.bid)
	binary.LittleEndian.PutUint64(rec[8:], br.off)
	binary.LittleEndian.PutUint16(rec[16:], uint16(br.size))
	binary.LittleEndian.PutUint16(rec[18:], 1)
	return rec
}

func (im *Image) nbtEntry(h format.Header, n nodeRef) []byte {
	if h.IsANSI() {
		rec := make([]byte, format.ANSINBTEntrySize)
		binary.LittleEndian.PutUint32(rec, n.nid)
		binary.LittleEndian.PutUint32(rec[4:], uint32(n.dataBID))
		binary.LittleEndian.PutUint32(rec[8:], uint32(n.subBID))
		binary.LittleEndian.PutUint32(rec[12:], n.parent)
		return rec
	}
	rec := make([]byte, format.UnicodeNBTEntrySize)
	binary.LittleEndian.PutUint64(rec, uint64(n.nid))
	binary.LittleEndian.PutUint64(rec[8:], n.dataBID)
	binary.LittleEndian.PutUint64(rec[16:], n.subBID)
	binary.LittleEndian.PutUint32(rec[24:], n.parent)
	return rec
}

func (im *Image) finishHeader(nbtRoot, bbtRoot uint64) []byte {
	out := append([]byte(nil), im.data...)
	copy(out, format.HeaderSignature)
	out[format.HeaderVersionOffset] = im.variant
	switch im.variant {
	case format.VariantANSI, format.VariantANSIAlt:
		binary.LittleEndian.PutUint32(out[format.HeaderANSINBTRootOffset:], uint32(nbtRoot))
		binary.LittleEndian.PutUint32(out[format.HeaderANSIBBTRootOffset:], uint32(bbtRoot))
		out[format.HeaderANSICryptOffset] = im.crypt
	default:
		binary.LittleEndian.PutUint64(out[format.HeaderUnicodeNBTRootOffset:], nbtRoot)
		binary.LittleEndian.PutUint64(out[format.HeaderUnicodeBBTRootOffset:], bbtRoot)
		out[format.HeaderUnicodeCryptOffset] = im.crypt
	}
	return out
}

package format

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// BlockTree is the decoded header of an internal block: an XBLOCK or XXBLOCK
// of a node's data tree, or an SLBLOCK/SIBLOCK of a sub-node tree. ChildBIDs
// holds the raw identifier array for data trees; sub-node blocks are decoded
// separately because their entries carry more than a BID.
type BlockTree struct {
	Btype    byte
	Level    int
	Total    uint32 // lcbTotal, logical byte count of the whole data tree
	ChildBIDs []uint64
}

// ParseDataTree decodes an XBLOCK (level 1) or XXBLOCK (level 2) payload.
func ParseDataTree(h Header, b []byte) (BlockTree, error) {
	if len(b) < BlockArrayOffset {
		return BlockTree{}, fmt.Errorf("xblock: %w", ErrTruncated)
	}
	t := BlockTree{
		Btype: b[BlockBtypeOffset],
		Level: int(b[BlockLevelOffset]),
		Total: buf.U32LE(b[BlockTotalOffset:]),
	}
	if t.Btype != BtypeData {
		return BlockTree{}, fmt.Errorf("xblock: btype 0x%02X: %w", t.Btype, ErrBadBlock)
	}
	if t.Level != 1 && t.Level != 2 {
		return BlockTree{}, fmt.Errorf("xblock: level %d: %w", t.Level, ErrBadBlock)
	}
	count := int(buf.U16LE(b[BlockEntCountOffset:]))
	w := h.IDWidth()
	arr, ok := buf.Slice(b, BlockArrayOffset, count*w)
	if !ok {
		return BlockTree{}, fmt.Errorf("xblock: %d children: %w", count, ErrTruncated)
	}
	t.ChildBIDs = make([]uint64, count)
	for i := range t.ChildBIDs {
		t.ChildBIDs[i] = buf.UnLE(arr[i*w:], w)
	}
	return t, nil
}

// SubnodeEntry is one record of a sub-node descriptor block. Leaf (SLBLOCK)
// entries carry a data BID and an optional nested sub-node BID; intermediate
// (SIBLOCK) entries carry the BID of a child SLBLOCK in DataBID.
type SubnodeEntry struct {
	LocalNID uint32
	DataBID  uint64
	SubBID   uint64
}

// ParseSubnodeBlock decodes an SLBLOCK (level 0) or SIBLOCK (level 1)
// payload, returning its level and entries.
func ParseSubnodeBlock(h Header, b []byte) (int, []SubnodeEntry, error) {
	if len(b) < BlockArrayOffset {
		return 0, nil, fmt.Errorf("subnode block: %w", ErrTruncated)
	}
	if b[BlockBtypeOffset] != BtypeSubnode {
		return 0, nil, fmt.Errorf("subnode block: btype 0x%02X: %w", b[BlockBtypeOffset], ErrBadBlock)
	}
	level := int(b[BlockLevelOffset])
	if level != 0 && level != 1 {
		return 0, nil, fmt.Errorf("subnode block: level %d: %w", level, ErrBadBlock)
	}
	count := int(buf.U16LE(b[BlockEntCountOffset:]))
	w := h.IDWidth()

	// SLENTRY: nid, bidData, bidSub. SIENTRY: nid, bid. The NID field is
	// widened to the identifier width on disk; only the low half counts.
	entSize := 2 * w
	if level == 0 {
		entSize = 3 * w
	}
	arr, ok := buf.Slice(b, BlockArrayOffset, count*entSize)
	if !ok {
		return 0, nil, fmt.Errorf("subnode block: %d entries: %w", count, ErrTruncated)
	}
	out := make([]SubnodeEntry, count)
	for i := range out {
		rec := arr[i*entSize:]
		out[i].LocalNID = uint32(buf.UnLE(rec, w))
		out[i].DataBID = buf.UnLE(rec[w:], w)
		if level == 0 {
			out[i].SubBID = buf.UnLE(rec[2*w:], w)
		}
	}
	return level, out, nil
}

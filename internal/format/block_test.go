package format

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeDataTree(t *testing.T, h Header, level int, total uint32, children []uint64) []byte {
	t.Helper()
	w := h.IDWidth()
	b := make([]byte, BlockArrayOffset+len(children)*w)
	b[BlockBtypeOffset] = BtypeData
	b[BlockLevelOffset] = byte(level)
	binary.LittleEndian.PutUint16(b[BlockEntCountOffset:], uint16(len(children)))
	binary.LittleEndian.PutUint32(b[BlockTotalOffset:], total)
	for i, c := range children {
		if w == 4 {
			binary.LittleEndian.PutUint32(b[BlockArrayOffset+i*w:], uint32(c))
		} else {
			binary.LittleEndian.PutUint64(b[BlockArrayOffset+i*w:], c)
		}
	}
	return b
}

func TestParseDataTreeXBlock(t *testing.T) {
	h := unicodeHeader(t)
	tree, err := ParseDataTree(h, makeDataTree(t, h, 1, 16000, []uint64{0x10, 0x14}))
	require.NoError(t, err)
	require.Equal(t, 1, tree.Level)
	require.Equal(t, uint32(16000), tree.Total)
	require.Equal(t, []uint64{0x10, 0x14}, tree.ChildBIDs)
}

func TestParseDataTreeRejectsWrongBtype(t *testing.T) {
	h := unicodeHeader(t)
	b := makeDataTree(t, h, 1, 0, nil)
	b[BlockBtypeOffset] = BtypeSubnode
	_, err := ParseDataTree(h, b)
	require.ErrorIs(t, err, ErrBadBlock)
}

func TestParseDataTreeRejectsBadLevel(t *testing.T) {
	h := unicodeHeader(t)
	b := makeDataTree(t, h, 3, 0, nil)
	_, err := ParseDataTree(h, b)
	require.ErrorIs(t, err, ErrBadBlock)
}

func makeSubnodeBlock(t *testing.T, h Header, level int, entries []SubnodeEntry) []byte {
	t.Helper()
	w := h.IDWidth()
	entSize := 2 * w
	if level == 0 {
		entSize = 3 * w
	}
	b := make([]byte, BlockArrayOffset+len(entries)*entSize)
	b[BlockBtypeOffset] = BtypeSubnode
	b[BlockLevelOffset] = byte(level)
	binary.LittleEndian.PutUint16(b[BlockEntCountOffset:], uint16(len(entries)))
	put := func(off int, v uint64) {
		if w == 4 {
			binary.LittleEndian.PutUint32(b[off:], uint32(v))
		} else {
			binary.LittleEndian.PutUint64(b[off:], v)
		}
	}
	for i, e := range entries {
		off := BlockArrayOffset + i*entSize
		put(off, uint64(e.LocalNID))
		put(off+w, e.DataBID)
		if level == 0 {
			put(off+2*w, e.SubBID)
		}
	}
	return b
}

func TestParseSubnodeBlockLeaf(t *testing.T) {
	h := unicodeHeader(t)
	in := []SubnodeEntry{
		{LocalNID: NIDRecipientTable, DataBID: 0x20},
		{LocalNID: NIDAttachmentTable, DataBID: 0x24, SubBID: 0x30},
	}
	level, out, err := ParseSubnodeBlock(h, makeSubnodeBlock(t, h, 0, in))
	require.NoError(t, err)
	require.Equal(t, 0, level)
	require.Equal(t, in, out)
}

func TestParseSubnodeBlockIntermediate(t *testing.T) {
	h := ansiHeader(t)
	in := []SubnodeEntry{{LocalNID: 0x8025, DataBID: 0x40}}
	level, out, err := ParseSubnodeBlock(h, makeSubnodeBlock(t, h, 1, in))
	require.NoError(t, err)
	require.Equal(t, 1, level)
	require.Len(t, out, 1)
	require.Equal(t, uint64(0x40), out[0].DataBID)
	require.Zero(t, out[0].SubBID)
}

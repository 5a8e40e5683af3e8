package format

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// TCInfo is the decoded table-context header from the HN user root.
type TCInfo struct {
	Rgib     [4]int // ending offsets of the 4-byte, 2-byte, 1-byte and presence sections
	RowIndex uint32 // HID of the row-index BTH
	Rows     uint32 // HNID of the row matrix
	Columns  []TCColumn
}

// TCColumn describes one table column.
type TCColumn struct {
	Type   uint16
	PropID uint16
	Ib     int // byte offset of the cell within a row
	Cb     int // cell width
	IBit   int // presence bit index
}

// RowSize returns the width in bytes of one row record.
func (t TCInfo) RowSize() int { return t.Rgib[TCIbm] }

// ParseTCInfo decodes a table-context header and its column descriptors.
func ParseTCInfo(b []byte) (TCInfo, error) {
	if len(b) < TCHeaderSize {
		return TCInfo{}, fmt.Errorf("tcinfo: %w", ErrTruncated)
	}
	if b[TCBtypeOffset] != ClientSigTC {
		return TCInfo{}, fmt.Errorf("tcinfo: btype 0x%02X: %w", b[TCBtypeOffset], ErrBadHeap)
	}
	var t TCInfo
	for i := range t.Rgib {
		t.Rgib[i] = int(buf.U16LE(b[TCRgibOffset+2*i:]))
	}
	t.RowIndex = buf.U32LE(b[TCRowIndexOffset:])
	t.Rows = buf.U32LE(b[TCRowsOffset:])

	cCols := int(b[TCColCountOffset])
	cols, ok := buf.Slice(b, TCHeaderSize, cCols*TCColDescSize)
	if !ok {
		return TCInfo{}, fmt.Errorf("tcinfo: %d columns: %w", cCols, ErrTruncated)
	}
	t.Columns = make([]TCColumn, cCols)
	for i := range t.Columns {
		rec := cols[i*TCColDescSize:]
		tag := buf.U32LE(rec[TCColTagOffset:])
		t.Columns[i] = TCColumn{
			Type:   uint16(tag),
			PropID: uint16(tag >> 16),
			Ib:     int(buf.U16LE(rec[TCColIbOffset:])),
			Cb:     int(rec[TCColCbOffset]),
			IBit:   int(rec[TCColIBitOffset]),
		}
	}
	if t.RowSize() == 0 {
		return TCInfo{}, fmt.Errorf("tcinfo: zero row size: %w", ErrBadHeap)
	}
	return t, nil
}

// RowHasCell checks the presence bit of a column within one row record.
// Presence bits are stored most-significant first.
func RowHasCell(t TCInfo, row []byte, col TCColumn) bool {
	idx := t.Rgib[TCI1b] + col.IBit/8
	if idx >= len(row) {
		return false
	}
	return row[idx]&(1<<(7-col.IBit%8)) != 0
}

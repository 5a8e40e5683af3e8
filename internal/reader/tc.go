package reader

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// TableContext is a parsed rowset (the "TC table"): column descriptors, the
// row-index, and the row matrix. Rows are fixed-width records; variable
// cells hold HNIDs resolved against the heap or the sub-node map.
type TableContext struct {
	r    *Reader
	heap *Heap
	sub  *SubnodeMap
	info format.TCInfo

	// Exactly one of rowsHeap / rowBlocks is populated: the matrix either
	// lives in a single heap allocation or in an external node stream whose
	// blocks each hold a whole number of rows.
	rowsHeap     []byte
	rowBlocks    [][]byte
	rowsPerBlock int
	rowCount     int
}

// OpenTC opens the table context of a node.
func (r *Reader) OpenTC(e format.NBTEntry) (*TableContext, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	stream, err := r.NodeStream(types.BID(e.DataBID))
	if err != nil {
		return nil, err
	}
	sub, err := r.OpenSubnodeMap(types.BID(e.SubBID))
	if err != nil {
		return nil, err
	}
	return r.openTCOn(stream, sub, e.NID)
}

// OpenTCInSubnode opens a table context stored as a local descriptor of
// another node (recipient and attachment tables).
func (r *Reader) OpenTCInSubnode(sub *SubnodeMap, local uint32) (*TableContext, error) {
	stream, err := sub.NodeStream(local)
	if err != nil {
		return nil, err
	}
	nested, err := sub.SubMap(local)
	if err != nil {
		return nil, err
	}
	return r.openTCOn(stream, nested, local)
}

func (r *Reader) openTCOn(stream *Stream, sub *SubnodeMap, nid uint32) (*TableContext, error) {
	heap, err := OpenHeap(stream)
	if err != nil {
		return nil, err
	}
	if heap.ClientSig() != format.ClientSigTC {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("nid 0x%X: heap client 0x%02X is not a table context", nid, heap.ClientSig()),
			Err:  types.ErrCorrupt,
		}
	}
	root, err := heap.Slice(heap.UserRoot())
	if err != nil {
		return nil, err
	}
	info, err := format.ParseTCInfo(root)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	tc := &TableContext{r: r, heap: heap, sub: sub, info: info}
	if err := tc.loadRows(); err != nil {
		return nil, err
	}
	return tc, nil
}

func (tc *TableContext) loadRows() error {
	rowSize := tc.info.RowSize()
	hnid := tc.info.Rows
	switch {
	case hnid == 0:
		// Empty table.
	case format.IsHID(hnid):
		rows, err := tc.heap.Slice(hnid)
		if err != nil {
			return err
		}
		tc.rowsHeap = rows
		tc.rowCount = len(rows) / rowSize
	default:
		stream, err := tc.sub.NodeStream(hnid)
		if err != nil {
			return err
		}
		tc.rowBlocks = make([][]byte, stream.BlockCount())
		for i := range tc.rowBlocks {
			block, err := stream.Block(i)
			if err != nil {
				return err
			}
			tc.rowBlocks[i] = block
			tc.rowCount += len(block) / rowSize
		}
		// Rows never straddle blocks; every block but the last is packed
		// with the same number of rows.
		payload := format.UnicodeMaxBlockPayload
		if tc.r.head.IsANSI() {
			payload = format.ANSIMaxBlockPayload
		}
		tc.rowsPerBlock = payload / rowSize
	}
	return nil
}

// Columns returns the table's column descriptors.
func (tc *TableContext) Columns() []format.TCColumn { return tc.info.Columns }

// RowCount returns the number of rows in the matrix.
func (tc *TableContext) RowCount() int { return tc.rowCount }

// row returns the raw record of row n.
func (tc *TableContext) row(n int) ([]byte, error) {
	if n < 0 || n >= tc.rowCount {
		return nil, notFound("row %d of %d", n, tc.rowCount)
	}
	rowSize := tc.info.RowSize()
	if tc.rowsHeap != nil {
		return tc.rowsHeap[n*rowSize : (n+1)*rowSize], nil
	}
	i, within := n/tc.rowsPerBlock, n%tc.rowsPerBlock
	if i >= len(tc.rowBlocks) || (within+1)*rowSize > len(tc.rowBlocks[i]) {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("row %d beyond block %d", n, i),
			Err:  types.ErrCorrupt,
		}
	}
	return tc.rowBlocks[i][within*rowSize : (within+1)*rowSize], nil
}

// RowID returns the stable row identifier of row n (the leading 4-byte
// column of every table context).
func (tc *TableContext) RowID(n int) (uint32, error) {
	row, err := tc.row(n)
	if err != nil {
		return 0, err
	}
	if len(row) < 4 {
		return 0, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("row %d narrower than its id", n),
			Err:  types.ErrCorrupt,
		}
	}
	return binary.LittleEndian.Uint32(row), nil
}

// Get materializes the cell of row n under the given property id. Absent
// cells (no column, or presence bit clear) return ok=false with nil error.
func (tc *TableContext) Get(n int, id types.PropID) (types.Property, bool, error) {
	col, ok := tc.column(id)
	if !ok {
		return types.Property{}, false, nil
	}
	row, err := tc.row(n)
	if err != nil {
		return types.Property{}, false, err
	}
	if !format.RowHasCell(tc.info, row, col) {
		return types.Property{}, false, nil
	}
	p := types.Property{ID: types.PropID(col.PropID), Type: types.PropType(col.Type)}
	if col.Ib+col.Cb > len(row) {
		return types.Property{}, false, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("column 0x%04X overruns row", col.PropID),
			Err:  types.ErrCorrupt,
		}
	}
	cell := row[col.Ib : col.Ib+col.Cb]
	if w := format.FixedWidth(col.Type); w >= 0 && col.Cb >= w {
		p.Raw = append([]byte(nil), cell[:w]...)
		return p, true, nil
	}
	// Variable-length cell: a 4-byte HNID into the heap or sub-node map.
	if len(cell) < 4 {
		return types.Property{}, false, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("column 0x%04X cell too narrow for hnid", col.PropID),
			Err:  types.ErrCorrupt,
		}
	}
	raw, err := tc.resolveHNID(binary.LittleEndian.Uint32(cell))
	if err != nil {
		return types.Property{}, false, err
	}
	p.Raw = raw
	return p, true, nil
}

// GetString decodes a string cell.
func (tc *TableContext) GetString(n int, id types.PropID) (string, bool, error) {
	p, ok, err := tc.Get(n, id)
	if err != nil || !ok {
		return "", ok, err
	}
	switch p.Type {
	case types.PtString:
		return decodeUTF16LE(p.Raw), true, nil
	case types.PtString8:
		s, err := decodeString8(p.Raw, DefaultCodepage)
		return s, true, err
	default:
		return "", false, &types.Error{
			Kind: types.ErrKindType,
			Msg:  fmt.Sprintf("column 0x%04X is %v, not a string", uint16(id), p.Type),
			Err:  types.ErrTypeMismatch,
		}
	}
}

func (tc *TableContext) column(id types.PropID) (format.TCColumn, bool) {
	for _, c := range tc.info.Columns {
		if types.PropID(c.PropID) == id {
			return c, true
		}
	}
	return format.TCColumn{}, false
}

func (tc *TableContext) resolveHNID(hnid uint32) ([]byte, error) {
	if hnid == 0 {
		return nil, nil
	}
	if format.IsHID(hnid) {
		b, err := tc.heap.Slice(hnid)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	}
	return tc.sub.NodeBytes(hnid)
}

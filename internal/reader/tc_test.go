package reader

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/testutil"
	"github.com/joshuapare/pstkit/pkg/types"
)

// contentsColumns is the minimal column set of a folder contents table:
// the row id, a fixed-width size and a variable display name.
func contentsColumns() []format.TCColumn {
	return []format.TCColumn{
		{Type: format.PtypInteger32, PropID: uint16(types.PropRowID), Ib: 0, Cb: 4, IBit: 0},
		{Type: format.PtypInteger32, PropID: uint16(types.PropMessageSize), Ib: 4, Cb: 4, IBit: 1},
		{Type: format.PtypString, PropID: uint16(types.PropDisplayName), Ib: 8, Cb: 4, IBit: 2},
	}
}

// tcRow builds one 13-byte row: id, size, name HNID, presence byte.
func tcRow(id uint32, size uint32, nameHnid uint32, present byte) []byte {
	row := make([]byte, 13)
	binary.LittleEndian.PutUint32(row, id)
	binary.LittleEndian.PutUint32(row[4:], size)
	binary.LittleEndian.PutUint32(row[8:], nameHnid)
	row[12] = present
	return row
}

func buildContentsTC(t *testing.T, crypt byte) (*Reader, format.NBTEntry) {
	t.Helper()

	im := testutil.NewImage(format.VariantUnicode, crypt)
	rows := append(tcRow(0x200004, 1111, testutil.HID(0, 5), 0b1110_0000),
		tcRow(0x200024, 2222, 0, 0b1100_0000)...)
	page := testutil.TCPage(testutil.TCSpec{
		Columns: contentsColumns(),
		Rgib:    [4]uint16{8, 8, 12, 13},
		RowIDs:  []uint32{0x200004, 0x200024},
		Rows:    rows,
		Extra:   [][]byte{utf16Bytes("Contacts")},
	})
	bid := im.AddDataBlock(page)
	im.AddNode(0x12E, bid, 0, 0x122)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	e, err := r.FindNode(0x12E)
	require.NoError(t, err)
	return r, e
}

func TestTableContextRows(t *testing.T) {
	r, e := buildContentsTC(t, format.CryptNone)
	tc, err := r.OpenTC(e)
	require.NoError(t, err)

	require.Equal(t, 2, tc.RowCount())
	require.Len(t, tc.Columns(), 3)

	id, err := tc.RowID(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0x200004), id)
	id, err = tc.RowID(1)
	require.NoError(t, err)
	require.Equal(t, uint32(0x200024), id)

	_, err = tc.RowID(2)
	var te *types.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, types.ErrKindNotFound, te.Kind)
}

func TestTableContextCells(t *testing.T) {
	r, e := buildContentsTC(t, format.CryptNone)
	tc, err := r.OpenTC(e)
	require.NoError(t, err)

	size, ok, err := tc.Get(0, types.PropMessageSize)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1111), size.Int32())

	name, ok, err := tc.GetString(0, types.PropDisplayName)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Contacts", name)

	// Row 1 has the name presence bit clear.
	_, ok, err = tc.Get(1, types.PropDisplayName)
	require.NoError(t, err)
	require.False(t, ok)

	// Unknown column is absent, not an error.
	_, ok, err = tc.Get(0, types.PropSubject)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTableContextEncrypted(t *testing.T) {
	r, e := buildContentsTC(t, format.CryptPermute)
	tc, err := r.OpenTC(e)
	require.NoError(t, err)
	require.Equal(t, 2, tc.RowCount())
	name, ok, err := tc.GetString(0, types.PropDisplayName)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Contacts", name)
}

func TestTableContextExternalRows(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)

	rows := append(tcRow(1, 10, 0, 0b1100_0000), tcRow(2, 20, 0, 0b1100_0000)...)
	rowsBID := im.AddDataBlock(rows)
	subBID := im.AddSubnodeBlock([]format.SubnodeEntry{
		{LocalNID: 0x3F, DataBID: rowsBID},
	})
	page := testutil.TCPage(testutil.TCSpec{
		Columns:  contentsColumns(),
		Rgib:     [4]uint16{8, 8, 12, 13},
		RowIDs:   []uint32{1, 2},
		RowsHnid: 0x3F,
	})
	bid := im.AddDataBlock(page)
	im.AddNode(0x12E, bid, subBID, 0x122)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()
	e, err := r.FindNode(0x12E)
	require.NoError(t, err)

	tc, err := r.OpenTC(e)
	require.NoError(t, err)
	require.Equal(t, 2, tc.RowCount())
	size, ok, err := tc.Get(1, types.PropMessageSize)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(20), size.Int32())
}

func TestTableContextEmpty(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	page := testutil.TCPage(testutil.TCSpec{
		Columns: contentsColumns(),
		Rgib:    [4]uint16{8, 8, 12, 13},
	})
	bid := im.AddDataBlock(page)
	im.AddNode(0x12E, bid, 0, 0x122)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()
	e, err := r.FindNode(0x12E)
	require.NoError(t, err)

	tc, err := r.OpenTC(e)
	require.NoError(t, err)
	require.Zero(t, tc.RowCount())
}

package reader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/testutil"
	"github.com/joshuapare/pstkit/pkg/types"
)

func TestOpenBytesRejectsGarbage(t *testing.T) {
	_, err := OpenBytes(make([]byte, 2048), types.OpenOptions{})
	require.Error(t, err)
	var te *types.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, types.ErrKindFormat, te.Kind)
}

func TestOpenBytesRejectsCyclicEncryption(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptCyclic)
	_, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	var te *types.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, types.ErrKindCrypt, te.Kind)
}

func TestFindNodeAndBlock(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	bid := im.AddDataBlock([]byte("payload"))
	im.AddNode(0x122, bid, 0, 0x21)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	e, err := r.FindNode(0x122)
	require.NoError(t, err)
	require.Equal(t, uint32(0x122), e.NID)
	require.Equal(t, bid, e.DataBID)
	require.Equal(t, uint32(0x21), e.ParentNID)

	be, err := r.FindBlock(types.BID(bid))
	require.NoError(t, err)
	require.Equal(t, 7, be.Size)
	require.Positive(t, be.Size, "every nbt-referenced block must have a sized region")

	_, err = r.FindNode(0x999)
	var te *types.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, types.ErrKindNotFound, te.Kind)
}

func TestFindNodeAcrossBranchPages(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	// More nodes than a single Unicode leaf page holds (488/32 = 15).
	for i := uint32(1); i <= 40; i++ {
		bid := im.AddDataBlock([]byte{byte(i)})
		im.AddNode(i<<format.NIDTypeShift|format.NIDTypeNormalMessage, bid, 0, 0x122)
	}
	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	for i := uint32(1); i <= 40; i++ {
		nid := types.NID(i<<format.NIDTypeShift | format.NIDTypeNormalMessage)
		e, err := r.FindNode(nid)
		require.NoError(t, err, "nid 0x%X", uint32(nid))
		require.Equal(t, uint32(nid), e.NID)
	}
}

func TestNodeStreamSingleBlockEncrypted(t *testing.T) {
	payload := []byte("Subject: compressible encryption test")
	im := testutil.NewImage(format.VariantUnicode, format.CryptPermute)
	bid := im.AddDataBlock(payload)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s, err := r.NodeStream(types.BID(bid))
	require.NoError(t, err)
	require.Equal(t, len(payload), s.Length())

	got, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestNodeStreamXBlock(t *testing.T) {
	p1 := []byte("first leaf ")
	p2 := []byte("second leaf")
	im := testutil.NewImage(format.VariantUnicode, format.CryptPermute)
	b1 := im.AddDataBlock(p1)
	b2 := im.AddDataBlock(p2)
	x := im.AddXBlock([]uint64{b1, b2}, 0)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s, err := r.NodeStream(types.BID(x))
	require.NoError(t, err)
	require.Equal(t, len(p1)+len(p2), s.Length())
	require.Equal(t, 2, s.BlockCount())

	got, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, append(append([]byte(nil), p1...), p2...), got)

	// Partial read across the leaf seam.
	buf := make([]byte, 10)
	n, err := s.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, []byte("leaf secon"), buf)
}

func TestNodeStreamXXBlock(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	b1 := im.AddDataBlock([]byte("aaaa"))
	b2 := im.AddDataBlock([]byte("bbbb"))
	b3 := im.AddDataBlock([]byte("cc"))
	x1 := im.AddXBlock([]uint64{b1, b2}, 0)
	x2 := im.AddXBlock([]uint64{b3}, 0)
	xx := im.AddXXBlock([]uint64{x1, x2}, 0)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s, err := r.NodeStream(types.BID(xx))
	require.NoError(t, err)
	require.Equal(t, 10, s.Length())
	got, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte("aaaabbbbcc"), got)
}

func TestNodeStreamTotalMismatch(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	b1 := im.AddDataBlock([]byte("aaaa"))
	x := im.AddXBlock([]uint64{b1}, 999)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.NodeStream(types.BID(x))
	var te *types.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, types.ErrKindCorrupt, te.Kind)

	// Tolerant mode accepts the declared-size mismatch.
	rt, err := OpenBytes(im.Bytes(), types.OpenOptions{Tolerant: true})
	require.NoError(t, err)
	defer rt.Close()
	s, err := rt.NodeStream(types.BID(x))
	require.NoError(t, err)
	require.Equal(t, 4, s.Length())
}

func TestParentIndexSkipsAnomalies(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	root := im.AddDataBlock([]byte{1})
	child := im.AddDataBlock([]byte{2})
	loop := im.AddDataBlock([]byte{3})
	im.AddNode(0x122, root, 0, 0x122) // self-parent: must be skipped
	im.AddNode(0x8022, child, 0, 0x122)
	im.AddNode(0x8022, child, 0, 0x122) // duplicate: must be skipped
	im.AddNode(0x8042, loop, 0, 0x122)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{CollectDiagnostics: true})
	require.NoError(t, err)
	defer r.Close()

	idx, err := r.ParentIndex()
	require.NoError(t, err)
	require.Equal(t, []types.NID{0x8022, 0x8042}, idx[0x122])
	require.NotContains(t, idx, types.NID(0x8022))

	// Memoized: second call returns the same map.
	again, err := r.ParentIndex()
	require.NoError(t, err)
	require.Equal(t, idx, again)

	require.Len(t, r.Diagnostics(), 2)
}

func TestANSIVariantRoundTrip(t *testing.T) {
	payload := []byte("ansi layout")
	im := testutil.NewImage(format.VariantANSI, format.CryptPermute)
	bid := im.AddDataBlock(payload)
	im.AddNode(0x21, bid, 0, 0)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, byte(format.VariantANSI), r.Info().Variant)
	require.True(t, r.Info().Encrypted)

	s, err := r.NodeStream(types.BID(bid))
	require.NoError(t, err)
	got, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVariant15BehavesLike14(t *testing.T) {
	im := testutil.NewImage(format.VariantANSIAlt, format.CryptNone)
	bid := im.AddDataBlock([]byte("x"))
	im.AddNode(0x21, bid, 0, 0)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, byte(format.VariantANSI), r.Info().Variant)
}

func TestCloseReleasesAndGuards(t *testing.T) {
	im := testutil.NewImage(format.VariantUnicode, format.CryptNone)
	bid := im.AddDataBlock([]byte("x"))
	im.AddNode(0x21, bid, 0, 0)

	r, err := OpenBytes(im.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "double close is a no-op")

	_, err = r.FindNode(0x21)
	var te *types.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, types.ErrKindState, te.Kind)
}

package format

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeHeader builds a synthetic header slab we control entirely.
func makeHeader(t *testing.T, variant byte, mutate func([]byte)) []byte {
	t.Helper()

	b := make([]byte, HeaderReadSize)
	copy(b, HeaderSignature)
	b[HeaderVersionOffset] = variant

	switch variant {
	case VariantANSI, VariantANSIAlt:
		binary.LittleEndian.PutUint32(b[HeaderANSINBTRootOffset:], 0x4400)
		binary.LittleEndian.PutUint32(b[HeaderANSIBBTRootOffset:], 0x4600)
		b[HeaderANSICryptOffset] = CryptNone
	default:
		binary.LittleEndian.PutUint64(b[HeaderUnicodeNBTRootOffset:], 0x4400)
		binary.LittleEndian.PutUint64(b[HeaderUnicodeBBTRootOffset:], 0x4600)
		b[HeaderUnicodeCryptOffset] = CryptNone
	}
	if mutate != nil {
		mutate(b)
	}
	return b
}

func TestParseHeaderUnicode(t *testing.T) {
	h, err := ParseHeader(makeHeader(t, VariantUnicode, nil))
	require.NoError(t, err)
	require.Equal(t, byte(VariantUnicode), h.Variant)
	require.Equal(t, uint64(0x4400), h.NBTRoot)
	require.Equal(t, uint64(0x4600), h.BBTRoot)
	require.False(t, h.IsANSI())
	require.Equal(t, PageSize, h.PageSize())
	require.Equal(t, 8, h.IDWidth())
}

func TestParseHeaderANSINormalizesVariant15(t *testing.T) {
	h14, err := ParseHeader(makeHeader(t, VariantANSI, nil))
	require.NoError(t, err)
	h15, err := ParseHeader(makeHeader(t, VariantANSIAlt, nil))
	require.NoError(t, err)
	require.Equal(t, h14, h15, "variant 15 must behave exactly like 14")
	require.True(t, h15.IsANSI())
	require.Equal(t, 4, h15.IDWidth())
}

func TestParseHeader4K(t *testing.T) {
	h, err := ParseHeader(makeHeader(t, VariantUnicode4K, nil))
	require.NoError(t, err)
	require.True(t, h.Is4K())
	require.Equal(t, PageSize4K, h.PageSize())
}

func TestParseHeaderBadMagic(t *testing.T) {
	b := makeHeader(t, VariantUnicode, func(b []byte) { b[0] = 'X' })
	_, err := ParseHeader(b)
	require.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestParseHeaderUnknownVariant(t *testing.T) {
	_, err := ParseHeader(makeHeader(t, 99, nil))
	require.ErrorIs(t, err, ErrUnsupportedVariant)
}

func TestParseHeaderRejectsCyclicCrypt(t *testing.T) {
	b := makeHeader(t, VariantUnicode, func(b []byte) {
		b[HeaderUnicodeCryptOffset] = CryptCyclic
	})
	_, err := ParseHeader(b)
	require.ErrorIs(t, err, ErrEncrypted)
}

func TestParseHeaderTruncated(t *testing.T) {
	_, err := ParseHeader(make([]byte, 100))
	require.ErrorIs(t, err, ErrTruncated)
}

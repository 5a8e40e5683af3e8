package reader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeUTF16LE(t *testing.T) {
	require.Equal(t, "", decodeUTF16LE(nil))
	require.Equal(t, "Inbox", decodeUTF16LE([]byte{'I', 0, 'n', 0, 'b', 0, 'o', 0, 'x', 0}))
	// Trailing NUL terminators are stripped.
	require.Equal(t, "ok", decodeUTF16LE([]byte{'o', 0, 'k', 0, 0, 0}))
	// Non-ASCII BMP character: é (U+00E9).
	require.Equal(t, "é", decodeUTF16LE([]byte{0xE9, 0x00}))
	// Surrogate pair: U+1F600.
	require.Equal(t, "\U0001F600", decodeUTF16LE([]byte{0x3D, 0xD8, 0x00, 0xDE}))
}

func TestDecodeString8(t *testing.T) {
	s, err := decodeString8([]byte{'h', 0xE9, 'l', 'l', 'o', 0}, 1252)
	require.NoError(t, err)
	require.Equal(t, "héllo", s)

	// Unknown codepages fall back to Windows-1252.
	s, err = decodeString8([]byte{0xE9}, 99999)
	require.NoError(t, err)
	require.Equal(t, "é", s)

	// UTF-8 passthrough.
	s, err = decodeString8([]byte("plain"), 65001)
	require.NoError(t, err)
	require.Equal(t, "plain", s)

	// KOI8-R: 0xC1 is Cyrillic а.
	s, err = decodeString8([]byte{0xC1}, 20866)
	require.NoError(t, err)
	require.Equal(t, "а", s)
}

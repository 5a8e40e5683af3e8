package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// Header captures the subset of the file header required to reach the two
// B-trees. The diagram below highlights the offsets we care about.
//
//	Offset      Size  Description
//	------      ----  ----------------------------------------------------
//	 0x000       4    '!' 'B' 'D' 'N'
//	 0x00A       1    File format variant (14/15 ANSI, 23 Unicode, 36 4K)
//	 0x0BC/0x0E0 4/8  File offset of the NBT root page (ANSI/Unicode)
//	 0x0C4/0x0F0 4/8  File offset of the BBT root page (ANSI/Unicode)
//	 0x1CD/0x201 1    Encryption mode (ANSI/Unicode)
//
// All fields are little-endian.
type Header struct {
	Variant    byte
	Crypt      byte
	NBTRoot    uint64
	BBTRoot    uint64
}

// IsANSI reports whether the header selects the 32-bit ANSI layout.
func (h Header) IsANSI() bool { return h.Variant == VariantANSI }

// Is4K reports whether the header selects the 2013 4 KiB page layout.
func (h Header) Is4K() bool { return h.Variant == VariantUnicode4K }

// PageSize returns the index page size selected by the variant.
func (h Header) PageSize() int {
	if h.Is4K() {
		return PageSize4K
	}
	return PageSize
}

// IDWidth returns the on-disk width of block identifiers and file offsets.
func (h Header) IDWidth() int {
	if h.IsANSI() {
		return 4
	}
	return 8
}

// ParseHeader validates the magic and extracts the variant, encryption mode
// and B-tree root offsets. Variant 15 is an ANSI layout identical to 14 for
// our purposes and is normalized on the way in.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderReadSize {
		return Header{}, fmt.Errorf("pst header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:HeaderSignatureSize], HeaderSignature) {
		return Header{}, fmt.Errorf("pst header: %w", ErrSignatureMismatch)
	}
	h := Header{Variant: b[HeaderVersionOffset]}
	if h.Variant == VariantANSIAlt {
		h.Variant = VariantANSI
	}
	switch h.Variant {
	case VariantANSI:
		h.Crypt = b[HeaderANSICryptOffset]
		h.NBTRoot = uint64(buf.U32LE(b[HeaderANSINBTRootOffset:]))
		h.BBTRoot = uint64(buf.U32LE(b[HeaderANSIBBTRootOffset:]))
	case VariantUnicode, VariantUnicode4K:
		h.Crypt = b[HeaderUnicodeCryptOffset]
		h.NBTRoot = buf.U64LE(b[HeaderUnicodeNBTRootOffset:])
		h.BBTRoot = buf.U64LE(b[HeaderUnicodeBBTRootOffset:])
	default:
		return Header{}, fmt.Errorf("pst header: variant %d: %w", h.Variant, ErrUnsupportedVariant)
	}
	switch h.Crypt {
	case CryptNone, CryptPermute:
	case CryptCyclic:
		return Header{}, fmt.Errorf("pst header: %w", ErrEncrypted)
	default:
		return Header{}, fmt.Errorf("pst header: encryption mode %d: %w", h.Crypt, ErrEncrypted)
	}
	return h, nil
}

// Package format houses low-level decoders for the Microsoft PST/OST file
// format ([MS-PST]). The goal is to keep the parsing focused, allocation-free
// where possible, and independent from the public API so higher-level packages
// can orchestrate the data in a more ergonomic form.
package format

var (
	// HeaderSignature is the four-byte magic at the start of every PST/OST.
	// Layout:
	//   0x00  '!' 'B' 'D' 'N'
	HeaderSignature = []byte{'!', 'B', 'D', 'N'}
)

// File format variants, from the version byte at HeaderVersionOffset.
// 14 and 15 are the ANSI 32-bit layout (15 is normalized to 14 on open),
// 23 is the Unicode 64-bit layout, and 36 is the 2013 Unicode layout with
// 4 KiB index pages.
const (
	VariantANSI       = 14
	VariantANSIAlt    = 15
	VariantUnicode    = 23
	VariantUnicode4K  = 36
)

// Encryption modes, from the byte at the variant-dependent crypt offset.
// CryptPermute is the "compressible encryption" byte substitution; the
// permute+XOR cyclic mode (CryptCyclic) is recognized but rejected.
const (
	CryptNone    = 0
	CryptPermute = 1
	CryptCyclic  = 2
)

// Header field offsets. The header is read as a single HeaderReadSize slab;
// all multi-byte fields are little-endian.
const (
	HeaderReadSize = 514

	HeaderSignatureOffset = 0x000 // 4 bytes, "!BDN"
	HeaderSignatureSize   = 4
	HeaderVersionOffset   = 10 // 1 byte, file format variant

	// Root record offsets differ between the ANSI and Unicode layouts.
	HeaderANSINBTRootOffset = 188 // uint32, file offset of the NBT root page
	HeaderANSIBBTRootOffset = 196 // uint32, file offset of the BBT root page
	HeaderANSICryptOffset   = 461 // 1 byte, encryption mode

	HeaderUnicodeNBTRootOffset = 224 // uint64, file offset of the NBT root page
	HeaderUnicodeBBTRootOffset = 240 // uint64, file offset of the BBT root page
	HeaderUnicodeCryptOffset   = 513 // 1 byte, encryption mode
)

// B-tree index pages. ANSI pages are 512 bytes with the BTPAGE metadata at
// 496 and the page trailer at 500; Unicode pages are 512 bytes with metadata
// at 488 and the trailer at 496; the 2013 4K layout uses 4096-byte pages with
// metadata 24 bytes from the end and 16-bit entry counts.
const (
	PageSize   = 512
	PageSize4K = 4096

	ANSIPageMetaOffset    = 496
	UnicodePageMetaOffset = 488
	Page4KMetaOffset      = PageSize4K - 24

	ANSIPageTrailerOffset    = 500
	UnicodePageTrailerOffset = 496
	Page4KTrailerOffset      = Page4KMetaOffset + 8

	// Page trailer type markers.
	PtypeBBT = 0x80
	PtypeNBT = 0x81

	// Leaf and branch entry sizes by tree and variant.
	ANSINBTEntrySize    = 16
	UnicodeNBTEntrySize = 32
	ANSIBBTEntrySize    = 12
	UnicodeBBTEntrySize = 24
	ANSIBranchEntrySize    = 12
	UnicodeBranchEntrySize = 24

	// Child page offset position within a branch entry.
	ANSIBranchChildOffset    = 8
	UnicodeBranchChildOffset = 16
)

// Data blocks. Every block is stored 64-byte aligned with a trailer at the
// end of its padded region; the BBT entry's cb field counts payload bytes
// only. Blocks whose BID has the internal bit set carry block-tree metadata
// (XBLOCK/XXBLOCK or the sub-node SLBLOCK/SIBLOCK) and are never run through
// the permutation cipher.
const (
	BlockAlignment = 64

	ANSIBlockTrailerSize    = 12
	UnicodeBlockTrailerSize = 16

	// MaxBlockPayload is the largest payload a single data leaf can carry.
	ANSIMaxBlockPayload    = 8192 - ANSIBlockTrailerSize
	UnicodeMaxBlockPayload = 8192 - UnicodeBlockTrailerSize

	// BIDInternalBit distinguishes internal (block-tree) blocks from data
	// leaves. Bit 0 is reserved; both bits are stripped to obtain the key
	// stored in the BBT.
	BIDInternalBit = 0x2

	// Block tree header layout, common to XBLOCK, XXBLOCK, SLBLOCK and
	// SIBLOCK: btype, cLevel, cEnt, then a 4-byte total for data trees.
	BlockBtypeOffset    = 0
	BlockLevelOffset    = 1
	BlockEntCountOffset = 2
	BlockTotalOffset    = 4
	BlockArrayOffset    = 8

	BtypeData    = 0x01 // XBLOCK (level 1) / XXBLOCK (level 2)
	BtypeSubnode = 0x02 // SLBLOCK (level 0) / SIBLOCK (level 1)
)

// Node identifiers. The low 5 bits of a NID select the node type; the
// remaining 27 bits are the index. Table NIDs are derived from their owner
// by replacing the type bits.
const (
	NIDTypeMask  = 0x1F
	NIDTypeShift = 5

	NIDTypeHID                = 0x00
	NIDTypeInternal           = 0x01
	NIDTypeNormalFolder       = 0x02
	NIDTypeSearchFolder       = 0x03
	NIDTypeNormalMessage      = 0x04
	NIDTypeAttachment         = 0x05
	NIDTypeSearchUpdateQueue  = 0x06
	NIDTypeSearchCriteria     = 0x07
	NIDTypeAssocMessage       = 0x08
	NIDTypeContentsTableIndex = 0x0A
	NIDTypeReceiveFolderTable = 0x0B
	NIDTypeOutgoingQueueTable = 0x0C
	NIDTypeHierarchyTable     = 0x0D
	NIDTypeContentsTable      = 0x0E
	NIDTypeAssocContentsTable = 0x0F
	NIDTypeSearchContents     = 0x10
	NIDTypeAttachmentTable    = 0x11
	NIDTypeRecipientTable     = 0x12
	NIDTypeSearchTableIndex   = 0x13
	NIDTypeLTP                = 0x1F
)

// Well-known node identifiers.
const (
	NIDMessageStore = 33  // 0x21, the message store PC
	NIDNameIDMap    = 97  // 0x61, the named-property map PC
	NIDRootFolder   = 290 // 0x122, the root mailbox folder

	// Local NIDs inside a message's sub-node map.
	NIDAttachmentTable = 0x671
	NIDRecipientTable  = 0x692
)

// Heap-on-node. Page 0 of an HN carries the heap header; every page starts
// with the 16-bit offset of its page map.
const (
	HNPageMapOffset   = 0 // uint16, offset of the page map within the page
	HNSignatureOffset = 2 // byte, 0xEC on page 0
	HNClientSigOffset = 3 // byte, 0xBC for a PC, 0x7C for a TC
	HNUserRootOffset  = 4 // uint32 HID of the client root allocation
	HNFillLevelOffset = 8 // 4 bytes, fill level of the first 8 pages
	HNHeaderSize      = 12

	HNSignature = 0xEC

	// Page map: cAlloc, cFree, then cAlloc+1 16-bit allocation offsets.
	HNPageMapAllocOffset = 0
	HNPageMapFreeOffset  = 2
	HNPageMapTableOffset = 4

	// HID bit layout: 5 type bits (must be zero), 11 index bits, 16 page bits.
	HIDIndexShift = 5
	HIDIndexMask  = 0x7FF
	HIDPageShift  = 16
)

// Client signatures for heap-resident structures.
const (
	ClientSigPC  = 0xBC // property context
	ClientSigTC  = 0x7C // table context
	BtypeBTH     = 0xB5 // BTree-on-heap header
)

// BTree-on-heap header layout.
const (
	BTHBtypeOffset     = 0
	BTHKeySizeOffset   = 1
	BTHEntSizeOffset   = 2
	BTHIdxLevelsOffset = 3
	BTHRootOffset      = 4
	BTHHeaderSize      = 8
)

// Property context records are BTH leaves with a 2-byte key and 6-byte data:
// property id, property type, then the 4-byte value-or-HNID.
const (
	PCRecordSize       = 8
	PCRecordTypeOffset = 2
	PCRecordHnidOffset = 4
)

// Table context. The TCINFO lives at the HN user root, followed by cCols
// 8-byte column descriptors.
const (
	TCBtypeOffset    = 0
	TCColCountOffset = 1
	TCRgibOffset     = 2  // 4 uint16 group-ending offsets
	TCRowIndexOffset = 10 // uint32 HID of the row-index BTH
	TCRowsOffset     = 14 // uint32 HNID of the row matrix
	TCIndexOffset    = 18 // uint32, deprecated
	TCHeaderSize     = 22
	TCColDescSize    = 8

	// rgib group indices (ending offsets of each cell-width section).
	TCI4b = 0
	TCI2b = 1
	TCI1b = 2
	TCIbm = 3

	// Column descriptor layout: 32-bit tag (type in the low word), then
	// the row offset, cell width and presence bit index.
	TCColTagOffset  = 0
	TCColIbOffset   = 4
	TCColCbOffset   = 6
	TCColIBitOffset = 7
)

// Property value types.
const (
	PtypUnspecified = 0x0000
	PtypNull        = 0x0001
	PtypInteger16   = 0x0002
	PtypInteger32   = 0x0003
	PtypFloating32  = 0x0004
	PtypFloating64  = 0x0005
	PtypCurrency    = 0x0006
	PtypFloatingTime = 0x0007
	PtypErrorCode   = 0x000A
	PtypBoolean     = 0x000B
	PtypObject      = 0x000D
	PtypInteger64   = 0x0014
	PtypString8     = 0x001E
	PtypString      = 0x001F
	PtypTime        = 0x0040
	PtypGUID        = 0x0048
	PtypBinary      = 0x0102

	PtypMultiFlag = 0x1000
)

// FixedWidth returns the inline width in bytes of a fixed-size property
// type, or -1 when the type is variable-length.
func FixedWidth(ptype uint16) int {
	switch ptype {
	case PtypInteger16:
		return 2
	case PtypInteger32, PtypFloating32, PtypErrorCode:
		return 4
	case PtypBoolean:
		return 1
	case PtypFloating64, PtypCurrency, PtypFloatingTime, PtypInteger64, PtypTime:
		return 8
	case PtypGUID:
		return 16
	default:
		return -1
	}
}

// Named-property map. The map is the PC at NIDNameIDMap; its three blobs are
// addressed by these property ids.
const (
	NameIDPropGuids   = 0x0002
	NameIDPropEntries = 0x0003
	NameIDPropStrings = 0x0004

	NameIDEntrySize = 8

	// Reserved GUID references in an entry's wGuid field (after the
	// string/numeric flag bit is shifted out).
	NameIDGuidNone          = 0
	NameIDGuidPSMapi        = 1
	NameIDGuidPublicStrings = 2
	NameIDGuidStreamBase    = 3

	// Named property ids start at 0x8000.
	NamedPropertyBase = 0x8000
)

// GUIDSize is the on-disk size of a property-set GUID.
const GUIDSize = 16

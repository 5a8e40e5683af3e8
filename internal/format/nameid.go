package format

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// GUID is a property-set identifier in its 16-byte on-disk form
// (little-endian Data1/Data2/Data3, big-endian Data4).
type GUID [GUIDSize]byte

// DecodeGUID reads one on-disk GUID.
func DecodeGUID(b []byte) (GUID, error) {
	var g GUID
	if len(b) < GUIDSize {
		return g, fmt.Errorf("guid: %w", ErrTruncated)
	}
	copy(g[:], b)
	return g, nil
}

// MustGUID builds a GUID from canonical text form
// ("00020329-0000-0000-c000-000000000046"). It panics on malformed input
// and exists only for the well-known property-set table below.
func MustGUID(s string) GUID {
	var g GUID
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		panic("format: malformed guid literal " + s)
	}
	hex := func(i int) byte {
		c := func(b byte) byte {
			switch {
			case b >= '0' && b <= '9':
				return b - '0'
			case b >= 'a' && b <= 'f':
				return b - 'a' + 10
			case b >= 'A' && b <= 'F':
				return b - 'A' + 10
			}
			panic("format: malformed guid literal " + s)
		}
		return c(s[i])<<4 | c(s[i+1])
	}
	// Data1..Data3 are stored little-endian on disk.
	g[0], g[1], g[2], g[3] = hex(6), hex(4), hex(2), hex(0)
	g[4], g[5] = hex(11), hex(9)
	g[6], g[7] = hex(16), hex(14)
	g[8], g[9] = hex(19), hex(21)
	for i := 0; i < 6; i++ {
		g[10+i] = hex(24 + 2*i)
	}
	return g
}

// Well-known property sets. KnownGUIDs assigns each the reserved index its
// position implies; unknown sets resolve to -1 and fall back to the file's
// own GUID stream.
var (
	PSMapi                 = MustGUID("00020328-0000-0000-c000-000000000046")
	PSPublicStrings        = MustGUID("00020329-0000-0000-c000-000000000046")
	PSETIDCommon           = MustGUID("00062008-0000-0000-c000-000000000046")
	PSETIDAddress          = MustGUID("00062004-0000-0000-c000-000000000046")
	PSInternetHeaders      = MustGUID("00020386-0000-0000-c000-000000000046")
	PSETIDAppointment      = MustGUID("00062002-0000-0000-c000-000000000046")
	PSETIDMeeting          = MustGUID("6ed8da90-450b-101b-98da-00aa003f1305")
	PSETIDLog              = MustGUID("0006200a-0000-0000-c000-000000000046")
	PSETIDMessaging        = MustGUID("41f28f13-83f4-4114-a584-eedb5a6b0bff")
	PSETIDNote             = MustGUID("0006200e-0000-0000-c000-000000000046")
	PSETIDPostRss          = MustGUID("00062041-0000-0000-c000-000000000046")
	PSETIDTask             = MustGUID("00062003-0000-0000-c000-000000000046")
	PSETIDUnifiedMessaging = MustGUID("4442858e-a9e3-4e80-b900-317a210cc15b")
	PSETIDAirSync          = MustGUID("71035549-0739-4dcb-9163-00f0580dbbdf")
	PSETIDSharing          = MustGUID("00062040-0000-0000-c000-000000000046")
)

// KnownGUIDs lists the property sets with reserved indices, in index order.
var KnownGUIDs = []GUID{
	PSMapi,
	PSPublicStrings,
	PSETIDCommon,
	PSETIDAddress,
	PSInternetHeaders,
	PSETIDAppointment,
	PSETIDMeeting,
	PSETIDLog,
	PSETIDMessaging,
	PSETIDNote,
	PSETIDPostRss,
	PSETIDTask,
	PSETIDUnifiedMessaging,
	PSETIDAirSync,
	PSETIDSharing,
}

// KnownGUIDIndex returns the reserved index of a well-known property set,
// or -1.
func KnownGUIDIndex(g GUID) int {
	for i, k := range KnownGUIDs {
		if k == g {
			return i
		}
	}
	return -1
}

// NameIDEntry is one raw record of the named-property entry stream.
type NameIDEntry struct {
	ID       uint32 // numeric name, or byte offset into the string stream
	GuidRef  uint16 // bit 0: string-name flag; remaining bits select the GUID
	PropIdx  uint16 // resolved property id is NamedPropertyBase + PropIdx
}

// DecodeNameIDEntry decodes one 8-byte entry-stream record.
func DecodeNameIDEntry(b []byte) (NameIDEntry, error) {
	if len(b) < NameIDEntrySize {
		return NameIDEntry{}, fmt.Errorf("nameid entry: %w", ErrTruncated)
	}
	return NameIDEntry{
		ID:      buf.U32LE(b),
		GuidRef: buf.U16LE(b[4:]),
		PropIdx: buf.U16LE(b[6:]),
	}, nil
}

// IsStringName reports whether the entry names its property by a string in
// the string stream rather than by number.
func (e NameIDEntry) IsStringName() bool { return e.GuidRef&1 == 1 }

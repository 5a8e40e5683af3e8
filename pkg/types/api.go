package types

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/joshuapare/pstkit/internal/format"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat      ErrKind = iota // malformed header/signature (bad "!BDN")
	ErrKindCorrupt                    // structural corruption (bad sizes/offsets/markers)
	ErrKindUnsupported                // recognized variant or feature we don't support
	ErrKindCrypt                      // rejected encryption mode
	ErrKindNotFound                   // missing node, block, property or named property
	ErrKindType                       // requested decode doesn't match the property type
	ErrKindState                      // invalid operation for current state (e.g., closed)
	ErrKindIO                         // byte source failure
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by implementations.
var (
	// ErrNotPST indicates the file lacks a valid "!BDN" header.
	ErrNotPST = &Error{Kind: ErrKindFormat, Msg: "not a pst file (bad !BDN header)"}
	// ErrUnsupportedVariant indicates a header with an unknown format version.
	ErrUnsupportedVariant = &Error{Kind: ErrKindUnsupported, Msg: "unsupported pst format variant"}
	// ErrEncrypted indicates the file uses the high-encryption cyclic cipher.
	ErrEncrypted = &Error{Kind: ErrKindCrypt, Msg: "high encryption is not supported"}
	// ErrCorrupt indicates non-recoverable structural inconsistency.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt pst structure"}
	// ErrNotFound indicates a missing node, block or property.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrTypeMismatch indicates the requested decode doesn't match the property type.
	ErrTypeMismatch = &Error{Kind: ErrKindType, Msg: "property has different type"}
)

// -----------------------------------------------------------------------------
// Core Identifiers
// -----------------------------------------------------------------------------

// NID is a node identifier: 5 type bits over a 27-bit index. BID is a block
// identifier (32-bit in ANSI files, 64-bit in Unicode files). Both are small,
// copyable handles; traversals never carry larger structs around.
type (
	NID uint32
	BID uint64
)

// Well-known node identifiers.
const (
	NIDMessageStore NID = 33
	NIDNameIDMap    NID = 97
	NIDRootFolder   NID = 290
)

// PropID is a 16-bit property identifier; ids at 0x8000 and above are named
// properties resolved through the name-to-id map.
type PropID uint16

// Commonly used property ids.
const (
	PropMessageClass            PropID = 0x001A
	PropSubject                 PropID = 0x0037
	PropClientSubmitTime        PropID = 0x0039
	PropSentRepresentingName    PropID = 0x0042
	PropMessageDeliveryTime     PropID = 0x0E06
	PropTransportHeaders        PropID = 0x007D
	PropSenderName              PropID = 0x0C1A
	PropSenderEmailAddress      PropID = 0x0C1F
	PropRecipientType           PropID = 0x0C15
	PropDisplayName             PropID = 0x3001
	PropEmailAddress            PropID = 0x3003
	PropCreationTime            PropID = 0x3007
	PropLastModificationTime    PropID = 0x3008
	PropMessageSize             PropID = 0x0E08
	PropMessageFlags            PropID = 0x0E07
	PropBody                    PropID = 0x1000
	PropRtfCompressed           PropID = 0x1009
	PropBodyHTML                PropID = 0x1013
	PropInternetCodepage        PropID = 0x3FDE
	PropMessageCodepage         PropID = 0x3FFD
	PropContentCount            PropID = 0x3602
	PropContentUnreadCount      PropID = 0x3603
	PropSubfolders              PropID = 0x360A
	PropContainerClass          PropID = 0x3613
	PropAttachDataObject        PropID = 0x3701
	PropAttachFilename          PropID = 0x3704
	PropAttachMethod            PropID = 0x3705
	PropAttachLongFilename      PropID = 0x3707
	PropAttachMimeTag           PropID = 0x370E
	PropAttachSize              PropID = 0x0E20
	PropGivenName               PropID = 0x3A06
	PropBusinessTelephoneNumber PropID = 0x3A08
	PropHomeTelephoneNumber     PropID = 0x3A09
	PropSurname                 PropID = 0x3A11
	PropTitle                   PropID = 0x3A17
	PropCompanyName             PropID = 0x3A16
	PropMobileTelephoneNumber   PropID = 0x3A1C
	PropSmtpAddress             PropID = 0x39FE
	PropRecordKey               PropID = 0x0FF9
	PropRowID                   PropID = 0x67F2
	PropLtpRowVer               PropID = 0x67F3
)

// Numeric names of named properties, as passed to the name-to-id map
// together with their property set: PSETID_Address (work address, email),
// PSETID_Task (task), PSETID_Appointment (appointment) and PSETID_Log
// (journal).
const (
	NamedWorkAddressStreet     uint32 = 0x8045
	NamedWorkAddressCity       uint32 = 0x8046
	NamedWorkAddressState      uint32 = 0x8047
	NamedWorkAddressPostalCode uint32 = 0x8048
	NamedWorkAddressCountry    uint32 = 0x8049
	NamedEmail1EmailAddress    uint32 = 0x8083
	NamedTaskDueDate           uint32 = 0x8105
	NamedTaskComplete          uint32 = 0x811C
	NamedAppointmentLocation   uint32 = 0x8208
	NamedAppointmentStart      uint32 = 0x820D
	NamedAppointmentEnd        uint32 = 0x820E
	NamedLogType               uint32 = 0x8700
	NamedLogStart              uint32 = 0x8706
	NamedLogDuration           uint32 = 0x8707
)

// PropType enumerates on-disk property value types.
type PropType uint16

const (
	PtUnspecified PropType = 0x0000
	PtNull        PropType = 0x0001
	PtInteger16   PropType = 0x0002
	PtInteger32   PropType = 0x0003
	PtFloating32  PropType = 0x0004
	PtFloating64  PropType = 0x0005
	PtCurrency    PropType = 0x0006
	PtFloatingTime PropType = 0x0007
	PtErrorCode   PropType = 0x000A
	PtBoolean     PropType = 0x000B
	PtObject      PropType = 0x000D
	PtInteger64   PropType = 0x0014
	PtString8     PropType = 0x001E
	PtString      PropType = 0x001F
	PtTime        PropType = 0x0040
	PtGUID        PropType = 0x0048
	PtBinary      PropType = 0x0102
)

// String implements the Stringer interface for PropType.
func (t PropType) String() string {
	switch t {
	case PtUnspecified:
		return "PtypUnspecified"
	case PtNull:
		return "PtypNull"
	case PtInteger16:
		return "PtypInteger16"
	case PtInteger32:
		return "PtypInteger32"
	case PtFloating32:
		return "PtypFloating32"
	case PtFloating64:
		return "PtypFloating64"
	case PtCurrency:
		return "PtypCurrency"
	case PtFloatingTime:
		return "PtypFloatingTime"
	case PtErrorCode:
		return "PtypErrorCode"
	case PtBoolean:
		return "PtypBoolean"
	case PtObject:
		return "PtypObject"
	case PtInteger64:
		return "PtypInteger64"
	case PtString8:
		return "PtypString8"
	case PtString:
		return "PtypString"
	case PtTime:
		return "PtypTime"
	case PtGUID:
		return "PtypGuid"
	case PtBinary:
		return "PtypBinary"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_0x%04X", uint16(t))
	}
}

// -----------------------------------------------------------------------------
// Metadata
// -----------------------------------------------------------------------------

// FileInfo exposes file header metadata.
type FileInfo struct {
	Variant   byte // 14 (ANSI), 23 (Unicode) or 36 (Unicode, 4K pages)
	Encrypted bool // true when the compressible substitution is applied
	NBTRoot   uint64
	BBTRoot   uint64
}

// NodeInfo exposes cheap node-level information from the NBT entry.
type NodeInfo struct {
	NID    NID
	Parent NID
	HasSub bool // node carries a sub-node descriptor tree
}

// Diagnostic is a non-fatal anomaly observed during traversal, recorded when
// OpenOptions.CollectDiagnostics is set.
type Diagnostic struct {
	NID    NID
	BID    BID
	Offset uint64
	Msg    string
}

// -----------------------------------------------------------------------------
// Open Options & Read Options
// -----------------------------------------------------------------------------

// OpenOptions controls safety/performance tradeoffs for opening a file.
type OpenOptions struct {
	// ZeroCopy allows returned slices to alias the underlying mapped buffer
	// when safe. Callers must treat these as read-only and must not retain
	// them after Close.
	ZeroCopy bool

	// Tolerant enables best-effort traversal on mild inconsistencies where
	// recovery is possible (bounds are still enforced).
	Tolerant bool

	// MaxBlockSize guards against absurd logical stream sizes declared by
	// block trees. Zero selects a conservative default (64 MiB).
	MaxBlockSize int

	// CollectDiagnostics records non-fatal anomalies (unknown message
	// classes, skipped NBT entries) for later retrieval.
	CollectDiagnostics bool
}

// ReadOptions let callers request per-call behavior.
type ReadOptions struct {
	// CopyData forces a heap copy even if ZeroCopy is enabled globally.
	CopyData bool
}

// -----------------------------------------------------------------------------
// Property values
// -----------------------------------------------------------------------------

// Property is one decoded property-context entry. Raw holds the value bytes
// after heap/sub-node dereferencing; fixed-width scalars are materialized in
// Raw as well so accessors never branch on storage shape.
type Property struct {
	ID   PropID
	Type PropType
	Raw  []byte
}

// Time interprets the property as a FILETIME instant. The zero time is
// returned for non-time or absent values.
func (p Property) Time() time.Time {
	if p.Type != PtTime || len(p.Raw) < 8 {
		return time.Time{}
	}
	return format.FiletimeToTime(binary.LittleEndian.Uint64(p.Raw))
}

// Int32 interprets the property as a 32-bit integer (or smaller widths,
// zero-extended). Absent values yield 0.
func (p Property) Int32() int32 {
	switch len(p.Raw) {
	case 0:
		return 0
	case 1:
		return int32(p.Raw[0])
	case 2, 3:
		return int32(binary.LittleEndian.Uint16(p.Raw))
	default:
		return int32(binary.LittleEndian.Uint32(p.Raw))
	}
}

// Int64 interprets the property as a 64-bit integer.
func (p Property) Int64() int64 {
	if len(p.Raw) < 8 {
		return int64(p.Int32())
	}
	return int64(binary.LittleEndian.Uint64(p.Raw))
}

// Bool interprets the property as a boolean.
func (p Property) Bool() bool {
	return len(p.Raw) > 0 && p.Raw[0] != 0
}

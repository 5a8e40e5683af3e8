package reader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// NamedProperty is the resolved identity of one named property: its
// property set plus either a numeric name or a string name.
type NamedProperty struct {
	Guid    format.GUID
	Numeric uint32
	Name    string // empty for numeric names
}

// IsString reports whether the property is named by string.
func (n NamedProperty) IsString() bool { return n.Name != "" }

type numericKey struct {
	guid format.GUID
	id   uint32
}

// NameID is the bidirectional named-property map built from the PC at
// NIDNameIDMap. It is constructed once at open and immutable afterwards.
type NameID struct {
	byNumeric map[numericKey]types.PropID
	byName    map[string]types.PropID
	names     map[types.PropID]NamedProperty
}

// buildNameID constructs the map from the name-to-id node's three blobs:
// the GUID stream, the entry stream and the string stream. A file without
// the node (never produced by Outlook, common in synthetic fixtures) yields
// an empty map.
func buildNameID(r *Reader) (*NameID, error) {
	m := &NameID{
		byNumeric: make(map[numericKey]types.PropID),
		byName:    make(map[string]types.PropID),
		names:     make(map[types.PropID]NamedProperty),
	}
	e, err := r.FindNode(types.NIDNameIDMap)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) && te.Kind == types.ErrKindNotFound {
			r.recordDiag(types.Diagnostic{NID: types.NIDNameIDMap, Msg: "name-to-id map missing"})
			return m, nil
		}
		return nil, err
	}
	pc, err := r.OpenPC(e)
	if err != nil {
		return nil, err
	}
	guids, _, err := pc.Get(types.PropID(format.NameIDPropGuids))
	if err != nil {
		return nil, err
	}
	entries, _, err := pc.Get(types.PropID(format.NameIDPropEntries))
	if err != nil {
		return nil, err
	}
	strs, _, err := pc.Get(types.PropID(format.NameIDPropStrings))
	if err != nil {
		return nil, err
	}

	guidStream := make([]format.GUID, len(guids.Raw)/format.GUIDSize)
	for i := range guidStream {
		g, err := format.DecodeGUID(guids.Raw[i*format.GUIDSize:])
		if err != nil {
			return nil, wrapFormatErr(err)
		}
		guidStream[i] = g
	}

	for off := 0; off+format.NameIDEntrySize <= len(entries.Raw); off += format.NameIDEntrySize {
		ent, err := format.DecodeNameIDEntry(entries.Raw[off:])
		if err != nil {
			return nil, wrapFormatErr(err)
		}
		propID := types.PropID(format.NamedPropertyBase + uint32(ent.PropIdx))
		guidRef := ent.GuidRef >> 1
		var guid format.GUID
		switch {
		case guidRef == format.NameIDGuidPSMapi:
			guid = format.PSMapi
		case guidRef == format.NameIDGuidPublicStrings:
			guid = format.PSPublicStrings
		case guidRef >= format.NameIDGuidStreamBase:
			i := int(guidRef) - format.NameIDGuidStreamBase
			if i >= len(guidStream) {
				return nil, &types.Error{
					Kind: types.ErrKindCorrupt,
					Msg:  fmt.Sprintf("nameid entry at %d references guid %d of %d", off, i, len(guidStream)),
					Err:  types.ErrCorrupt,
				}
			}
			guid = guidStream[i]
		}
		if ent.IsStringName() {
			name, err := stringStreamName(strs.Raw, ent.ID)
			if err != nil {
				return nil, err
			}
			m.byName[name] = propID
			m.names[propID] = NamedProperty{Guid: guid, Name: name}
			continue
		}
		m.byNumeric[numericKey{guid, ent.ID}] = propID
		m.names[propID] = NamedProperty{Guid: guid, Numeric: ent.ID}
	}
	return m, nil
}

// stringStreamName reads the length-prefixed UTF-16LE name at a byte offset
// of the string stream.
func stringStreamName(stream []byte, off uint32) (string, error) {
	if uint64(off)+4 > uint64(len(stream)) {
		return "", &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("nameid string at %d beyond stream of %d", off, len(stream)),
			Err:  types.ErrCorrupt,
		}
	}
	n := binary.LittleEndian.Uint32(stream[off:])
	start := uint64(off) + 4
	if start+uint64(n) > uint64(len(stream)) {
		return "", &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("nameid string at %d runs %d bytes past stream", off, n),
			Err:  types.ErrCorrupt,
		}
	}
	return decodeUTF16LE(stream[start : start+uint64(n)]), nil
}

// PropertyIDByNumeric resolves a (property set, numeric name) pair.
func (m *NameID) PropertyIDByNumeric(guid format.GUID, id uint32) (types.PropID, bool) {
	p, ok := m.byNumeric[numericKey{guid, id}]
	return p, ok
}

// PropertyIDByName resolves a string-named property.
func (m *NameID) PropertyIDByName(name string) (types.PropID, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// NameByPropertyID returns the identity of a resolved named property.
func (m *NameID) NameByPropertyID(id types.PropID) (NamedProperty, bool) {
	n, ok := m.names[id]
	return n, ok
}

// Len returns the number of named properties in the map.
func (m *NameID) Len() int { return len(m.names) }

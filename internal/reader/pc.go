package reader

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// PropertyContext is a parsed property-to-value map (the "BC table"). It
// holds the heap and the owning node's sub-node map so external references
// resolve lazily on Get.
type PropertyContext struct {
	r    *Reader
	heap *Heap
	sub  *SubnodeMap
	recs map[types.PropID]format.PCRecord
}

// OpenPC opens the property context of a node.
func (r *Reader) OpenPC(e format.NBTEntry) (*PropertyContext, error) {
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
	return r.openPCOn(stream, sub, e.NID)
}

// OpenPCInSubnode opens a property context stored as a local descriptor of
// another node (attachment objects live this way inside messages).
func (r *Reader) OpenPCInSubnode(sub *SubnodeMap, local uint32) (*PropertyContext, error) {
	stream, err := sub.NodeStream(local)
	if err != nil {
		return nil, err
	}
	nested, err := sub.SubMap(local)
	if err != nil {
		return nil, err
	}
	return r.openPCOn(stream, nested, local)
}

func (r *Reader) openPCOn(stream *Stream, sub *SubnodeMap, nid uint32) (*PropertyContext, error) {
	heap, err := OpenHeap(stream)
	if err != nil {
		return nil, err
	}
	if heap.ClientSig() != format.ClientSigPC {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("nid 0x%X: heap client 0x%02X is not a property context", nid, heap.ClientSig()),
			Err:  types.ErrCorrupt,
		}
	}
	bth, err := heap.BTHAt(heap.UserRoot())
	if err != nil {
		return nil, err
	}
	if bth.KeySize != 2 || bth.EntSize != 6 {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("nid 0x%X: pc bth record shape %d+%d", nid, bth.KeySize, bth.EntSize),
			Err:  types.ErrCorrupt,
		}
	}
	pc := &PropertyContext{
		r:    r,
		heap: heap,
		sub:  sub,
		recs: make(map[types.PropID]format.PCRecord),
	}
	err = heap.WalkBTH(bth, func(rec []byte) error {
		p, err := format.DecodePCRecord(rec)
		if err != nil {
			return wrapFormatErr(err)
		}
		pc.recs[types.PropID(p.PropID)] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pc, nil
}

// Subnodes exposes the owning node's sub-node map.
func (pc *PropertyContext) Subnodes() *SubnodeMap { return pc.sub }

// Has reports whether the context carries a property.
func (pc *PropertyContext) Has(id types.PropID) bool {
	_, ok := pc.recs[id]
	return ok
}

// Get materializes one property value. Absent properties return ok=false
// with a nil error so callers can distinguish "missing" from "corrupt".
func (pc *PropertyContext) Get(id types.PropID) (types.Property, bool, error) {
	rec, ok := pc.recs[id]
	if !ok {
		return types.Property{}, false, nil
	}
	p, err := pc.materialize(rec)
	if err != nil {
		return types.Property{}, false, err
	}
	return p, true, nil
}

// All materializes every property in the context.
func (pc *PropertyContext) All() (map[types.PropID]types.Property, error) {
	out := make(map[types.PropID]types.Property, len(pc.recs))
	for id, rec := range pc.recs {
		p, err := pc.materialize(rec)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

// materialize dereferences a record's value. Fixed scalars up to four bytes
// live inline in the HNID field; larger fixed values sit in the heap; all
// variable-length values are HNIDs into the heap or the sub-node map.
func (pc *PropertyContext) materialize(rec format.PCRecord) (types.Property, error) {
	p := types.Property{ID: types.PropID(rec.PropID), Type: types.PropType(rec.Type)}
	w := format.FixedWidth(rec.Type)
	switch {
	case w >= 0 && w <= 4:
		var quad [4]byte
		binary.LittleEndian.PutUint32(quad[:], rec.Hnid)
		p.Raw = append([]byte(nil), quad[:w]...)
	case w > 4:
		b, err := pc.heap.Slice(rec.Hnid)
		if err != nil {
			return types.Property{}, err
		}
		if len(b) < w {
			return types.Property{}, &types.Error{
				Kind: types.ErrKindCorrupt,
				Msg:  fmt.Sprintf("property 0x%04X: %d bytes for %v", rec.PropID, len(b), p.Type),
				Err:  types.ErrCorrupt,
			}
		}
		p.Raw = append([]byte(nil), b[:w]...)
	default:
		b, err := pc.resolveHNID(rec.Hnid)
		if err != nil {
			return types.Property{}, err
		}
		p.Raw = b
	}
	return p, nil
}

// resolveHNID disambiguates a variable-length value reference: zero type
// bits address the heap, anything else the sub-node map ([MS-PST] §2.3.3.2).
func (pc *PropertyContext) resolveHNID(hnid uint32) ([]byte, error) {
	if hnid == 0 {
		return nil, nil
	}
	if format.IsHID(hnid) {
		b, err := pc.heap.Slice(hnid)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	}
	b, err := pc.sub.NodeBytes(hnid)
	if err != nil {
		return nil, &types.Error{
			Kind: types.ErrKindNotFound,
			Msg:  fmt.Sprintf("external reference 0x%X", hnid),
			Err:  err,
		}
	}
	return b, nil
}

// GetString decodes a string property. Unicode strings are UTF-16LE; 8-bit
// strings use the context's declared codepage.
func (pc *PropertyContext) GetString(id types.PropID) (string, bool, error) {
	p, ok, err := pc.Get(id)
	if err != nil || !ok {
		return "", ok, err
	}
	switch p.Type {
	case types.PtString:
		return decodeUTF16LE(p.Raw), true, nil
	case types.PtString8:
		s, err := decodeString8(p.Raw, pc.Codepage())
		return s, true, err
	default:
		return "", false, &types.Error{
			Kind: types.ErrKindType,
			Msg:  fmt.Sprintf("property 0x%04X is %v, not a string", uint16(id), p.Type),
			Err:  types.ErrTypeMismatch,
		}
	}
}

// DecodeString decodes an already-materialized property as text: Unicode
// strings as UTF-16LE, anything else through the context's codepage. Used
// for the HTML body, which is stored either way.
func (pc *PropertyContext) DecodeString(p types.Property) (string, error) {
	if p.Type == types.PtString {
		return decodeUTF16LE(p.Raw), nil
	}
	return decodeString8(p.Raw, pc.Codepage())
}

// Codepage returns the codepage governing the context's 8-bit strings: the
// message codepage when present, else the internet codepage, else 1252.
func (pc *PropertyContext) Codepage() int {
	for _, id := range []types.PropID{types.PropMessageCodepage, types.PropInternetCodepage} {
		if p, ok, err := pc.Get(id); err == nil && ok && len(p.Raw) >= 2 {
			if cp := int(p.Int32()); cp > 0 {
				return cp
			}
		}
	}
	return DefaultCodepage
}

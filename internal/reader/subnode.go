package reader

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// SubnodeMap is a node's second-level descriptor table: local NID to block
// identifiers. It satisfies external references in property and table
// contexts and locates embedded-message streams inside attachments.
type SubnodeMap struct {
	r       *Reader
	entries map[uint32]format.SubnodeEntry
}

// OpenSubnodeMap parses the sub-node tree referenced by an NBT entry's
// sub-node BID. A zero identifier yields an empty map.
func (r *Reader) OpenSubnodeMap(bid types.BID) (*SubnodeMap, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	m := &SubnodeMap{r: r, entries: make(map[uint32]format.SubnodeEntry)}
	if bid == 0 {
		return m, nil
	}
	if err := m.load(uint64(bid), 0); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SubnodeMap) load(bid uint64, depth int) error {
	if depth > 1 {
		return &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("bid 0x%X subnode tree deeper than siblock", bid),
			Err:  types.ErrCorrupt,
		}
	}
	be, err := m.r.FindBlock(types.BID(bid))
	if err != nil {
		return err
	}
	// Sub-node blocks are internal metadata and are never ciphered.
	raw, err := m.r.readAt(be.FileOffset, be.Size)
	if err != nil {
		return err
	}
	level, entries, err := format.ParseSubnodeBlock(m.r.head, raw)
	if err != nil {
		return wrapFormatErr(err)
	}
	for _, e := range entries {
		if level == 1 {
			// SIBLOCK entries point at child SLBLOCKs.
			if err := m.load(e.DataBID, depth+1); err != nil {
				return err
			}
			continue
		}
		m.entries[e.LocalNID] = e
	}
	return nil
}

// Len returns the number of local descriptors.
func (m *SubnodeMap) Len() int { return len(m.entries) }

// Lookup returns the descriptor of a local NID.
func (m *SubnodeMap) Lookup(local uint32) (format.SubnodeEntry, bool) {
	e, ok := m.entries[local]
	return e, ok
}

// NodeStream opens the data stream of a local descriptor.
func (m *SubnodeMap) NodeStream(local uint32) (*Stream, error) {
	e, ok := m.entries[local]
	if !ok {
		return nil, notFound("subnode 0x%X", local)
	}
	return m.r.NodeStream(types.BID(e.DataBID))
}

// NodeBytes materializes the data stream of a local descriptor.
func (m *SubnodeMap) NodeBytes(local uint32) ([]byte, error) {
	s, err := m.NodeStream(local)
	if err != nil {
		return nil, err
	}
	return s.Bytes()
}

// SubMap opens the nested sub-node map of a local descriptor, used for
// embedded messages stored inside attachments.
func (m *SubnodeMap) SubMap(local uint32) (*SubnodeMap, error) {
	e, ok := m.entries[local]
	if !ok {
		return nil, notFound("subnode 0x%X", local)
	}
	return m.r.OpenSubnodeMap(types.BID(e.SubBID))
}

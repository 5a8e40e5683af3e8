package format

// NIDType extracts the node type from the low bits of a node identifier.
func NIDType(nid uint32) uint32 {
	return nid & NIDTypeMask
}

// NIDIndex extracts the 27-bit instance index of a node identifier.
func NIDIndex(nid uint32) uint32 {
	return nid >> NIDTypeShift
}

// TableNID derives the NID of an attached table (hierarchy, contents,
// associated contents) from its owner by replacing the type bits.
func TableNID(owner uint32, tableType uint32) uint32 {
	return (owner &^ uint32(NIDTypeMask)) | tableType
}

// BIDIsInternal reports whether a block identifier refers to an internal
// block (XBLOCK/XXBLOCK array or sub-node block) rather than a data leaf.
func BIDIsInternal(bid uint64) bool {
	return bid&BIDInternalBit != 0
}

// BIDKey strips the reserved low bit, yielding the key under which the block
// is stored in the block B-tree. The internal bit is part of the key.
func BIDKey(bid uint64) uint64 {
	return bid &^ 0x1
}

package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrUnsupportedVariant indicates an unrecognized file format version.
	ErrUnsupportedVariant = errors.New("format: unsupported file format variant")
	// ErrEncrypted indicates the file uses the high-encryption cyclic cipher.
	ErrEncrypted = errors.New("format: high encryption not supported")
	// ErrNotFound indicates a requested node or block was missing.
	ErrNotFound = errors.New("format: not found")
	// ErrBadPage indicates an index page with a wrong type marker or counts.
	ErrBadPage = errors.New("format: bad index page")
	// ErrBadBlock indicates a block-tree structure with inconsistent metadata.
	ErrBadBlock = errors.New("format: bad block structure")
	// ErrBadHeap indicates a heap-on-node with an invalid signature or map.
	ErrBadHeap = errors.New("format: bad heap structure")
	// ErrSanityLimit indicates a parsed count or size exceeded sanity limits.
	// This prevents excessive allocations from malformed files.
	ErrSanityLimit = errors.New("format: value exceeds sanity limit")
)

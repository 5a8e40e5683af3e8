// Package reader provides the concrete PST/OST decoder. The exported entry
// points are used by the public wrapper (pkg/pst) to obtain typed mail
// objects without exposing the internal parsing machinery directly.
package reader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/mmfile"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Open maps the file at path and returns a Reader.
func Open(path string, opts types.OpenOptions) (*Reader, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, wrapIOErr(fmt.Errorf("open pst: %w", err))
	}
	r, err := newReader(data, unmap, opts)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	return r, nil
}

// OpenBytes creates a Reader backed by the provided buffer.
func OpenBytes(buf []byte, opts types.OpenOptions) (*Reader, error) {
	return newReader(buf, nil, opts)
}

// Reader is the open file instance: it owns the byte source, the parsed
// header, and the name-to-id map built at open. Everything else (streams,
// heaps, tables) is constructed lazily per request as free-standing values.
type Reader struct {
	buf    []byte
	unmap  func() error
	opts   types.OpenOptions
	head   format.Header
	closed bool

	nameID *NameID

	// parentIndex is the NBT-walk fallback used when a folder's hierarchy
	// table is broken. Built on first use, then memoized.
	parentIndex map[types.NID][]types.NID

	diags []types.Diagnostic
}

func newReader(buf []byte, unmap func() error, opts types.OpenOptions) (*Reader, error) {
	head, err := format.ParseHeader(buf)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	if opts.MaxBlockSize <= 0 {
		opts.MaxBlockSize = 64 << 20 // default 64 MiB safeguard
	}
	r := &Reader{
		buf:   buf,
		unmap: unmap,
		opts:  opts,
		head:  head,
	}
	nameID, err := buildNameID(r)
	if err != nil {
		return nil, err
	}
	r.nameID = nameID
	return r, nil
}

// Close releases resources (unmaps the buffer if necessary).
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.unmap != nil {
		return r.unmap()
	}
	return nil
}

func (r *Reader) ensureOpen() error {
	if r.closed {
		return &types.Error{Kind: types.ErrKindState, Msg: "reader is closed"}
	}
	return nil
}

// Header exposes the parsed file header to sibling packages.
func (r *Reader) Header() format.Header { return r.head }

// Info returns file header metadata.
func (r *Reader) Info() types.FileInfo {
	return types.FileInfo{
		Variant:   r.head.Variant,
		Encrypted: r.head.Crypt == format.CryptPermute,
		NBTRoot:   r.head.NBTRoot,
		BBTRoot:   r.head.BBTRoot,
	}
}

// NameID returns the name-to-id map built at open.
func (r *Reader) NameID() *NameID { return r.nameID }

// readAt returns the subslice [off:off+n] of the backing buffer.
func (r *Reader) readAt(off uint64, n int) ([]byte, error) {
	if off > uint64(len(r.buf)) {
		return nil, &types.Error{
			Kind: types.ErrKindIO,
			Msg:  fmt.Sprintf("offset 0x%X beyond file size %d", off, len(r.buf)),
			Err:  types.ErrCorrupt,
		}
	}
	end := off + uint64(n)
	if end > uint64(len(r.buf)) {
		return nil, &types.Error{
			Kind: types.ErrKindIO,
			Msg:  fmt.Sprintf("read [0x%X..0x%X) beyond file size %d", off, end, len(r.buf)),
			Err:  types.ErrCorrupt,
		}
	}
	return r.buf[off:end], nil
}

// maxBTreeDepth bounds descent so crafted files cannot loop the walker.
const maxBTreeDepth = 32

// btreeFind descends from the root page to the leaf holding key, per the
// variant's page layout. Branch descent picks the last entry whose key does
// not exceed the target.
func (r *Reader) btreeFind(root uint64, key uint64, ptype byte) ([]byte, error) {
	off := root
	for depth := 0; depth < maxBTreeDepth; depth++ {
		page, err := r.loadPage(off, ptype)
		if err != nil {
			return nil, err
		}
		if page.Level > 0 {
			child, ok := uint64(0), false
			for i := 0; i < page.Count; i++ {
				be, err := format.DecodeBranchEntry(r.head, page.Entry(i))
				if err != nil {
					return nil, wrapFormatErr(err)
				}
				if be.Key > key {
					break
				}
				child, ok = be.Child, true
			}
			if !ok {
				return nil, notFound("key 0x%X below tree minimum", key)
			}
			off = child
			continue
		}
		w := r.head.IDWidth()
		for i := 0; i < page.Count; i++ {
			rec := page.Entry(i)
			if leafKey(rec, w) == key {
				return rec, nil
			}
		}
		return nil, notFound("key 0x%X", key)
	}
	return nil, &types.Error{
		Kind: types.ErrKindCorrupt,
		Msg:  fmt.Sprintf("btree at 0x%X exceeds depth %d", root, maxBTreeDepth),
		Err:  types.ErrCorrupt,
	}
}

func leafKey(rec []byte, width int) uint64 {
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(rec[i])
	}
	return v
}

func (r *Reader) loadPage(off uint64, ptype byte) (format.BTPage, error) {
	raw, err := r.readAt(off, r.head.PageSize())
	if err != nil {
		return format.BTPage{}, err
	}
	page, err := format.ParseBTPage(r.head, raw)
	if err != nil {
		return format.BTPage{}, wrapFormatErr(err)
	}
	if page.Ptype != ptype {
		return format.BTPage{}, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("page at 0x%X has marker 0x%02X, want 0x%02X", off, page.Ptype, ptype),
			Err:  types.ErrCorrupt,
		}
	}
	return page, nil
}

// FindNode locates the NBT entry of a node.
func (r *Reader) FindNode(nid types.NID) (format.NBTEntry, error) {
	if err := r.ensureOpen(); err != nil {
		return format.NBTEntry{}, err
	}
	rec, err := r.btreeFind(r.head.NBTRoot, uint64(nid), format.PtypeNBT)
	if err != nil {
		return format.NBTEntry{}, describeErr(err, "nid 0x%X", uint32(nid))
	}
	e, err := format.DecodeNBTEntry(r.head, rec)
	if err != nil {
		return format.NBTEntry{}, wrapFormatErr(err)
	}
	return e, nil
}

// FindBlock locates the BBT entry of a block. The reserved low bit of the
// identifier is ignored; the internal bit participates in the key.
func (r *Reader) FindBlock(bid types.BID) (format.BBTEntry, error) {
	if err := r.ensureOpen(); err != nil {
		return format.BBTEntry{}, err
	}
	key := format.BIDKey(uint64(bid))
	rec, err := r.btreeFind(r.head.BBTRoot, key, format.PtypeBBT)
	if err != nil {
		return format.BBTEntry{}, describeErr(err, "bid 0x%X", uint64(bid))
	}
	e, err := format.DecodeBBTEntry(r.head, rec)
	if err != nil {
		return format.BBTEntry{}, wrapFormatErr(err)
	}
	return e, nil
}

// WalkNodes visits every NBT leaf entry in key order. Returning an error
// from fn stops the walk.
func (r *Reader) WalkNodes(fn func(format.NBTEntry) error) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	return r.walkNBTPage(r.head.NBTRoot, 0, fn)
}

func (r *Reader) walkNBTPage(off uint64, depth int, fn func(format.NBTEntry) error) error {
	if depth > maxBTreeDepth {
		return &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("nbt walk exceeds depth %d", maxBTreeDepth),
			Err:  types.ErrCorrupt,
		}
	}
	page, err := r.loadPage(off, format.PtypeNBT)
	if err != nil {
		return err
	}
	for i := 0; i < page.Count; i++ {
		if page.Level > 0 {
			be, err := format.DecodeBranchEntry(r.head, page.Entry(i))
			if err != nil {
				return wrapFormatErr(err)
			}
			if err := r.walkNBTPage(be.Child, depth+1, fn); err != nil {
				return err
			}
			continue
		}
		e, err := format.DecodeNBTEntry(r.head, page.Entry(i))
		if err != nil {
			return wrapFormatErr(err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// ParentIndex returns the parent-to-children map built from a full NBT walk.
// It is the fallback for folders whose hierarchy table is broken. Duplicate
// entries and self-parenting nodes are skipped. The result is memoized.
func (r *Reader) ParentIndex() (map[types.NID][]types.NID, error) {
	if r.parentIndex != nil {
		return r.parentIndex, nil
	}
	seen := make(map[types.NID]bool)
	index := make(map[types.NID][]types.NID)
	err := r.WalkNodes(func(e format.NBTEntry) error {
		nid := types.NID(e.NID)
		if seen[nid] {
			r.recordDiag(types.Diagnostic{NID: nid, Msg: "duplicate nbt entry skipped"})
			return nil
		}
		seen[nid] = true
		if e.ParentNID == e.NID {
			r.recordDiag(types.Diagnostic{NID: nid, Msg: "self-parenting nbt entry skipped"})
			return nil
		}
		parent := types.NID(e.ParentNID)
		index[parent] = append(index[parent], nid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, children := range index {
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	}
	r.parentIndex = index
	return index, nil
}

func (r *Reader) recordDiag(d types.Diagnostic) {
	if r.opts.CollectDiagnostics {
		r.diags = append(r.diags, d)
	}
}

// NoteDiagnostic records a non-fatal anomaly observed by a higher layer.
func (r *Reader) NoteDiagnostic(d types.Diagnostic) { r.recordDiag(d) }

// Diagnostics returns anomalies recorded since open when
// OpenOptions.CollectDiagnostics is set.
func (r *Reader) Diagnostics() []types.Diagnostic { return r.diags }

// Error helpers --------------------------------------------------------------

func notFound(msg string, args ...any) error {
	return &types.Error{
		Kind: types.ErrKindNotFound,
		Msg:  fmt.Sprintf(msg, args...),
		Err:  types.ErrNotFound,
	}
}

// describeErr prefixes NotFound errors with the identifier being resolved so
// structural failures always carry the offending nid/bid.
func describeErr(err error, msg string, args ...any) error {
	var te *types.Error
	if errors.As(err, &te) && te.Kind == types.ErrKindNotFound {
		return notFound(msg+" not in index", args...)
	}
	return err
}

func wrapIOErr(err error) error {
	return &types.Error{Kind: types.ErrKindIO, Msg: err.Error(), Err: err}
}

func wrapFormatErr(err error) error {
	switch {
	case errors.Is(err, format.ErrSignatureMismatch):
		return types.ErrNotPST
	case errors.Is(err, format.ErrUnsupportedVariant):
		return &types.Error{Kind: types.ErrKindUnsupported, Msg: "unsupported pst format variant", Err: err}
	case errors.Is(err, format.ErrEncrypted):
		return &types.Error{Kind: types.ErrKindCrypt, Msg: "high encryption is not supported", Err: err}
	case errors.Is(err, format.ErrTruncated):
		return &types.Error{Kind: types.ErrKindFormat, Msg: "pst truncated", Err: err}
	case errors.Is(err, format.ErrNotFound):
		return &types.Error{Kind: types.ErrKindNotFound, Msg: err.Error(), Err: err}
	default:
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: err.Error(), Err: err}
	}
}

package reader

import (
	"fmt"
	"io"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// extent is one data leaf of a node's logical stream: a file region plus
// whether the permutation cipher applies on delivery.
type extent struct {
	off    uint64
	n      int
	decode bool
}

// Stream is the logical byte stream of a node: the pre-order concatenation
// of all data leaves under its block tree. The stream owns a plan (the leaf
// regions) and a cursor; bytes are copied and decoded on delivery, never in
// the backing buffer.
type Stream struct {
	r       *Reader
	extents []extent
	length  int
	pos     int
}

// NodeStream opens the logical stream of a block identifier, expanding
// XBLOCK and XXBLOCK trees. A zero identifier yields an empty stream.
func (r *Reader) NodeStream(bid types.BID) (*Stream, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	s := &Stream{r: r}
	if bid == 0 {
		return s, nil
	}
	if err := r.appendExtents(s, uint64(bid), 0); err != nil {
		return nil, err
	}
	for _, e := range s.extents {
		s.length += e.n
	}
	if s.length > r.opts.MaxBlockSize {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("bid 0x%X stream length %d exceeds limit", uint64(bid), s.length),
			Err:  types.ErrCorrupt,
		}
	}
	return s, nil
}

// appendExtents resolves bid and appends its data leaves to the plan.
// Internal blocks carry block-tree metadata and are read without decoding;
// only external data leaves are run through the cipher.
func (r *Reader) appendExtents(s *Stream, bid uint64, depth int) error {
	if depth > 2 {
		return &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("bid 0x%X block tree deeper than xxblock", bid),
			Err:  types.ErrCorrupt,
		}
	}
	be, err := r.FindBlock(types.BID(bid))
	if err != nil {
		return err
	}
	if !format.BIDIsInternal(bid) {
		s.extents = append(s.extents, extent{
			off:    be.FileOffset,
			n:      be.Size,
			decode: r.head.Crypt == format.CryptPermute,
		})
		return nil
	}
	raw, err := r.readAt(be.FileOffset, be.Size)
	if err != nil {
		return err
	}
	tree, err := format.ParseDataTree(r.head, raw)
	if err != nil {
		return wrapFormatErr(err)
	}
	mark := len(s.extents)
	for _, child := range tree.ChildBIDs {
		if tree.Level == 2 {
			// XXBLOCK children are themselves XBLOCKs.
			if err := r.appendExtents(s, child, depth+1); err != nil {
				return err
			}
			continue
		}
		cbe, err := r.FindBlock(types.BID(child))
		if err != nil {
			return err
		}
		s.extents = append(s.extents, extent{
			off:    cbe.FileOffset,
			n:      cbe.Size,
			decode: r.head.Crypt == format.CryptPermute && !format.BIDIsInternal(child),
		})
	}
	if depth == 0 {
		total := 0
		for _, e := range s.extents[mark:] {
			total += e.n
		}
		if uint32(total) != tree.Total && !r.opts.Tolerant {
			return &types.Error{
				Kind: types.ErrKindCorrupt,
				Msg:  fmt.Sprintf("bid 0x%X declares %d bytes, leaves sum to %d", bid, tree.Total, total),
				Err:  types.ErrCorrupt,
			}
		}
	}
	return nil
}

// Length returns the logical stream size in bytes.
func (s *Stream) Length() int { return s.length }

// BlockCount returns the number of data leaves in the plan. Heap-on-node
// pages map one-to-one onto these leaves.
func (s *Stream) BlockCount() int { return len(s.extents) }

// Block returns the decoded payload of the i-th data leaf.
func (s *Stream) Block(i int) ([]byte, error) {
	if i < 0 || i >= len(s.extents) {
		return nil, notFound("stream block %d of %d", i, len(s.extents))
	}
	e := s.extents[i]
	raw, err := s.r.readAt(e.off, e.n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, e.n)
	copy(out, raw)
	if e.decode {
		format.PermuteDecode(out)
	}
	return out, nil
}

// Seek repositions the cursor, following the io.Seeker contract.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(s.length) + offset
	default:
		return 0, fmt.Errorf("stream: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("stream: negative position %d", abs)
	}
	s.pos = int(abs)
	return abs, nil
}

// Read copies decoded bytes from the cursor into p.
func (s *Stream) Read(p []byte) (int, error) {
	if s.pos >= s.length {
		return 0, io.EOF
	}
	n, err := s.ReadAt(p, int64(s.pos))
	s.pos += n
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt copies decoded bytes at an absolute stream position into p.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("stream: negative offset %d", off)
	}
	if off >= int64(s.length) {
		return 0, io.EOF
	}
	want := len(p)
	if rest := int(int64(s.length) - off); want > rest {
		want = rest
	}
	copied := 0
	skip := int(off)
	for _, e := range s.extents {
		if copied == want {
			break
		}
		if skip >= e.n {
			skip -= e.n
			continue
		}
		take := e.n - skip
		if take > want-copied {
			take = want - copied
		}
		raw, err := s.r.readAt(e.off+uint64(skip), take)
		if err != nil {
			return copied, err
		}
		dst := p[copied : copied+take]
		copy(dst, raw)
		if e.decode {
			format.PermuteDecode(dst)
		}
		copied += take
		skip = 0
	}
	if copied < len(p) {
		return copied, io.EOF
	}
	return copied, nil
}

// Bytes materializes the whole stream.
func (s *Stream) Bytes() ([]byte, error) {
	out := make([]byte, s.length)
	if s.length == 0 {
		return out, nil
	}
	if _, err := s.ReadAt(out, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

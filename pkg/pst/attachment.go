package pst

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/joshuapare/pstkit/internal/reader"
	"github.com/joshuapare/pstkit/pkg/types"
)

// AttachMethod enumerates how an attachment stores its payload.
type AttachMethod int32

const (
	AttachNone          AttachMethod = 0
	AttachByValue       AttachMethod = 1
	AttachByReference   AttachMethod = 2
	AttachEmbeddedMsg   AttachMethod = 5
	AttachOLE           AttachMethod = 6
)

// Attachment is the typed view over one attachment object: a PC stored in
// the owning message's sub-node map.
type Attachment struct {
	f     *File
	owner *Message
	pc    *reader.PropertyContext
}

// Filename returns the 8.3 filename.
func (a *Attachment) Filename() (string, error) {
	s, _, err := a.pc.GetString(types.PropAttachFilename)
	return s, err
}

// LongFilename returns the long filename, falling back to the short one.
func (a *Attachment) LongFilename() (string, error) {
	s, ok, err := a.pc.GetString(types.PropAttachLongFilename)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return a.Filename()
	}
	return s, nil
}

// MimeTag returns the declared MIME type.
func (a *Attachment) MimeTag() (string, error) {
	s, _, err := a.pc.GetString(types.PropAttachMimeTag)
	return s, err
}

// Size returns the declared attachment size in bytes.
func (a *Attachment) Size() (int, error) {
	p, _, err := a.pc.Get(types.PropAttachSize)
	return int(p.Int32()), err
}

// Method returns how the payload is stored.
func (a *Attachment) Method() (AttachMethod, error) {
	p, _, err := a.pc.Get(types.PropAttachMethod)
	return AttachMethod(p.Int32()), err
}

// Bytes materializes the attachment payload. Embedded messages have no
// byte payload; use EmbeddedMessage instead.
func (a *Attachment) Bytes() ([]byte, error) {
	p, ok, err := a.pc.Get(types.PropAttachDataObject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if p.Type == types.PtObject {
		return nil, &types.Error{
			Kind: types.ErrKindType,
			Msg:  "attachment payload is an embedded object",
			Err:  types.ErrTypeMismatch,
		}
	}
	return p.Raw, nil
}

// Reader streams the attachment payload.
func (a *Attachment) Reader() (io.Reader, error) {
	b, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// Save copies the attachment payload into w.
func (a *Attachment) Save(w io.Writer) (int64, error) {
	b, err := a.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// EmbeddedMessage opens the message stored inside an embedded-message
// attachment (attach method 5). The attach-data object value is an
// {nid, size} pair whose NID indexes the attachment's own sub-node map.
func (a *Attachment) EmbeddedMessage() (*Message, error) {
	p, ok, err := a.pc.Get(types.PropAttachDataObject)
	if err != nil {
		return nil, err
	}
	if !ok || p.Type != types.PtObject {
		return nil, notEmbedded()
	}
	if len(p.Raw) < 4 {
		return nil, &types.Error{
			Kind: types.ErrKindCorrupt,
			Msg:  fmt.Sprintf("embedded object value is %d bytes", len(p.Raw)),
			Err:  types.ErrCorrupt,
		}
	}
	local := binary.LittleEndian.Uint32(p.Raw)
	pc, err := a.f.r.OpenPCInSubnode(a.pc.Subnodes(), local)
	if err != nil {
		return nil, err
	}
	class, _, err := pc.GetString(types.PropMessageClass)
	if err != nil {
		return nil, err
	}
	return &Message{f: a.f, nid: types.NID(local), class: class, pc: pc}, nil
}

func notEmbedded() error {
	return &types.Error{
		Kind: types.ErrKindNotFound,
		Msg:  "attachment carries no embedded message",
		Err:  types.ErrNotFound,
	}
}

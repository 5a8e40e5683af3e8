package pst

import (
	"errors"
	"time"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/reader"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Message is the generic mail item view: a PC plus the node's sub-node map,
// from which the recipient and attachment tables hang.
type Message struct {
	f     *File
	nid   types.NID
	class string
	pc    *reader.PropertyContext
}

// Kind implements Entity.
func (m *Message) Kind() Kind { return KindMessage }

// Class returns the raw message class ("IPM.Note", ...).
func (m *Message) Class() string { return m.class }

// NID returns the message's node identifier.
func (m *Message) NID() types.NID { return m.nid }

// MessageClass is an alias of Class matching the property name.
func (m *Message) MessageClass() string { return m.class }

// Subject returns the message subject. Outlook prefixes some subjects with
// a two-byte thread marker (0x01 followed by the prefix length); it is
// stripped here.
func (m *Message) Subject() (string, error) {
	s, _, err := m.pc.GetString(types.PropSubject)
	if err != nil {
		return "", err
	}
	if len(s) >= 2 && s[0] == 0x01 {
		s = s[2:]
	}
	return s, nil
}

// Body returns the plain-text body.
func (m *Message) Body() (string, error) {
	s, _, err := m.pc.GetString(types.PropBody)
	return s, err
}

// BodyHTML returns the HTML body. On disk it may be a binary blob in the
// message codepage or a Unicode string; both are normalized to a string.
func (m *Message) BodyHTML() (string, error) {
	p, ok, err := m.pc.Get(types.PropBodyHTML)
	if err != nil || !ok {
		return "", err
	}
	return m.pc.DecodeString(p)
}

// RTFBody returns the compressed-RTF body bytes verbatim; callers bring
// their own RTF decompressor.
func (m *Message) RTFBody() ([]byte, error) {
	p, _, err := m.pc.Get(types.PropRtfCompressed)
	if err != nil {
		return nil, err
	}
	return p.Raw, nil
}

// SenderName returns the sender display name.
func (m *Message) SenderName() (string, error) {
	s, _, err := m.pc.GetString(types.PropSenderName)
	return s, err
}

// TransportMessageHeaders returns the raw SMTP headers when present.
func (m *Message) TransportMessageHeaders() (string, error) {
	s, _, err := m.pc.GetString(types.PropTransportHeaders)
	return s, err
}

// CreationTime returns the item's creation instant.
func (m *Message) CreationTime() (time.Time, error) {
	p, _, err := m.pc.Get(types.PropCreationTime)
	return p.Time(), err
}

// ClientSubmitTime returns the submit instant.
func (m *Message) ClientSubmitTime() (time.Time, error) {
	p, _, err := m.pc.Get(types.PropClientSubmitTime)
	return p.Time(), err
}

// MessageDeliveryTime returns the delivery instant.
func (m *Message) MessageDeliveryTime() (time.Time, error) {
	p, _, err := m.pc.Get(types.PropMessageDeliveryTime)
	return p.Time(), err
}

// MessageSize returns the item's declared size in bytes.
func (m *Message) MessageSize() (int, error) {
	p, _, err := m.pc.Get(types.PropMessageSize)
	return int(p.Int32()), err
}

// Property exposes an arbitrary tag for callers that outgrow the typed
// accessors.
func (m *Message) Property(id types.PropID) (types.Property, bool, error) {
	return m.pc.Get(id)
}

// Recipients decodes the message's recipient table.
func (m *Message) Recipients() ([]Recipient, error) {
	tc, err := m.f.r.OpenTCInSubnode(m.pc.Subnodes(), format.NIDRecipientTable)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) && te.Kind == types.ErrKindNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Recipient, 0, tc.RowCount())
	for i := 0; i < tc.RowCount(); i++ {
		rec := Recipient{}
		if s, ok, err := tc.GetString(i, types.PropDisplayName); err == nil && ok {
			rec.DisplayName = s
		}
		if s, ok, err := tc.GetString(i, types.PropSmtpAddress); err == nil && ok {
			rec.SmtpAddress = s
		}
		if s, ok, err := tc.GetString(i, types.PropEmailAddress); err == nil && ok && rec.SmtpAddress == "" {
			rec.SmtpAddress = s
		}
		if p, ok, err := tc.Get(i, types.PropRecipientType); err == nil && ok {
			rec.Type = RecipientType(p.Int32())
		}
		out = append(out, rec)
	}
	return out, nil
}

// Attachments opens the message's attachment table and wraps each row.
func (m *Message) Attachments() ([]*Attachment, error) {
	sub := m.pc.Subnodes()
	tc, err := m.f.r.OpenTCInSubnode(sub, format.NIDAttachmentTable)
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) && te.Kind == types.ErrKindNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]*Attachment, 0, tc.RowCount())
	for i := 0; i < tc.RowCount(); i++ {
		local, err := tc.RowID(i)
		if err != nil {
			return nil, err
		}
		pc, err := m.f.r.OpenPCInSubnode(sub, local)
		if err != nil {
			return nil, err
		}
		out = append(out, &Attachment{f: m.f, owner: m, pc: pc})
	}
	return out, nil
}

// namedString resolves a named property under the given set and decodes it
// as a string. Missing names or properties yield "".
func (m *Message) namedString(guid format.GUID, numeric uint32) (string, error) {
	id, ok := m.f.r.NameID().PropertyIDByNumeric(guid, numeric)
	if !ok {
		return "", nil
	}
	s, _, err := m.pc.GetString(id)
	return s, err
}

// namedTime resolves a named time property. Missing names yield zero.
func (m *Message) namedTime(guid format.GUID, numeric uint32) (time.Time, error) {
	id, ok := m.f.r.NameID().PropertyIDByNumeric(guid, numeric)
	if !ok {
		return time.Time{}, nil
	}
	p, _, err := m.pc.Get(id)
	return p.Time(), err
}

// namedBool resolves a named boolean property. Missing names yield false.
func (m *Message) namedBool(guid format.GUID, numeric uint32) (bool, error) {
	id, ok := m.f.r.NameID().PropertyIDByNumeric(guid, numeric)
	if !ok {
		return false, nil
	}
	p, _, err := m.pc.Get(id)
	return p.Bool(), err
}

package pst

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/testutil"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Fixture node identifiers.
const (
	nidInbox      = 0x8022
	nidMessage    = 0x200004
	nidContact    = 0x200024
	localAttach   = 0x8025
	localEmbedded = 0x8045
)

func utf16Bytes(s string) []byte {
	out := make([]byte, 2*len(s))
	for i := 0; i < len(s); i++ {
		out[2*i] = s[i]
	}
	return out
}

func filetimeBytes(t time.Time) []byte {
	const filetimeOffset = 116444736000000000
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, uint64(t.UnixNano()/100)+filetimeOffset)
	return out
}

func u32row(id uint32) []byte {
	row := make([]byte, 5)
	binary.LittleEndian.PutUint32(row, id)
	row[4] = 0b1000_0000
	return row
}

// addNameIDNode installs a name-to-id map defining the PSETID_Address named
// properties the Contact accessors rely on.
func addNameIDNode(im *testutil.Image) {
	guidStream := append([]byte(nil), format.PSETIDAddress[:]...)
	var entries []byte
	for i, numeric := range []uint32{
		types.NamedWorkAddressStreet,
		types.NamedWorkAddressCity,
		types.NamedWorkAddressState,
		types.NamedWorkAddressPostalCode,
		types.NamedEmail1EmailAddress,
	} {
		rec := make([]byte, format.NameIDEntrySize)
		binary.LittleEndian.PutUint32(rec, numeric)
		binary.LittleEndian.PutUint16(rec[4:], 3<<1) // guid stream slot 0, numeric
		binary.LittleEndian.PutUint16(rec[6:], uint16(0x11+i))
		entries = append(entries, rec...)
	}
	page := testutil.PCPage([]testutil.PropSpec{
		{ID: format.NameIDPropGuids, Type: format.PtypBinary, Value: guidStream},
		{ID: format.NameIDPropEntries, Type: format.PtypBinary, Value: entries},
		{ID: format.NameIDPropStrings, Type: format.PtypBinary, Value: []byte{}},
	})
	bid := im.AddDataBlock(page)
	im.AddNode(uint32(types.NIDNameIDMap), bid, 0, uint32(types.NIDMessageStore))
}

// addFolderNode installs a folder PC plus hierarchy and contents tables.
func addFolderNode(im *testutil.Image, nid uint32, parent uint32, name string, childFolders, contents []uint32) {
	page := testutil.PCPage([]testutil.PropSpec{
		{ID: uint16(types.PropDisplayName), Type: format.PtypString, Value: utf16Bytes(name)},
		{ID: uint16(types.PropContentCount), Type: format.PtypInteger32, Inline: uint32(len(contents))},
		{ID: uint16(types.PropSubfolders), Type: format.PtypBoolean, Inline: boolInline(len(childFolders) > 0)},
	})
	im.AddNode(nid, im.AddDataBlock(page), 0, parent)

	im.AddNode(format.TableNID(nid, format.NIDTypeHierarchyTable),
		im.AddDataBlock(rowIDTable(childFolders)), 0, nid)
	im.AddNode(format.TableNID(nid, format.NIDTypeContentsTable),
		im.AddDataBlock(rowIDTable(contents)), 0, nid)
}

func boolInline(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// rowIDTable builds a one-column table context whose rows carry only ids.
func rowIDTable(ids []uint32) []byte {
	var rows []byte
	for _, id := range ids {
		rows = append(rows, u32row(id)...)
	}
	return testutil.TCPage(testutil.TCSpec{
		Columns: []format.TCColumn{
			{Type: format.PtypInteger32, PropID: uint16(types.PropRowID), Ib: 0, Cb: 4, IBit: 0},
		},
		Rgib:   [4]uint16{4, 4, 4, 5},
		RowIDs: ids,
		Rows:   rows,
	})
}

// recipientTable builds the message's recipient rowset.
func recipientTable() []byte {
	row := func(nameHnid, addrHnid uint32, rtype uint32) []byte {
		b := make([]byte, 17)
		binary.LittleEndian.PutUint32(b, 1)
		binary.LittleEndian.PutUint32(b[4:], rtype)
		binary.LittleEndian.PutUint32(b[8:], nameHnid)
		binary.LittleEndian.PutUint32(b[12:], addrHnid)
		b[16] = 0b1111_0000
		return b
	}
	return testutil.TCPage(testutil.TCSpec{
		Columns: []format.TCColumn{
			{Type: format.PtypInteger32, PropID: uint16(types.PropRowID), Ib: 0, Cb: 4, IBit: 0},
			{Type: format.PtypInteger32, PropID: uint16(types.PropRecipientType), Ib: 4, Cb: 4, IBit: 1},
			{Type: format.PtypString, PropID: uint16(types.PropDisplayName), Ib: 8, Cb: 4, IBit: 2},
			{Type: format.PtypString, PropID: uint16(types.PropSmtpAddress), Ib: 12, Cb: 4, IBit: 3},
		},
		Rgib:   [4]uint16{16, 16, 16, 17},
		RowIDs: []uint32{1},
		Rows:   row(testutil.HID(0, 5), testutil.HID(0, 6), 1),
		Extra:  [][]byte{utf16Bytes("Ed Pfromer"), utf16Bytes("epfromer@gmail.com")},
	})
}

// buildMailbox assembles the full fixture used across the object tests.
func buildMailbox(t *testing.T) *File {
	t.Helper()
	im := testutil.NewImage(format.VariantUnicode, format.CryptPermute)

	addNameIDNode(im)

	store := testutil.PCPage([]testutil.PropSpec{
		{ID: uint16(types.PropDisplayName), Type: format.PtypString, Value: utf16Bytes("Personal Folders")},
	})
	im.AddNode(uint32(types.NIDMessageStore), im.AddDataBlock(store), 0, 0)

	addFolderNode(im, uint32(types.NIDRootFolder), uint32(types.NIDRootFolder)+1, "Root", []uint32{nidInbox}, nil)
	addFolderNode(im, nidInbox, uint32(types.NIDRootFolder), "Inbox", nil, []uint32{nidMessage, nidContact})

	// Message with one recipient and one by-value attachment.
	attachPC := testutil.PCPage([]testutil.PropSpec{
		{ID: uint16(types.PropAttachMethod), Type: format.PtypInteger32, Inline: uint32(AttachByValue)},
		{ID: uint16(types.PropAttachLongFilename), Type: format.PtypString, Value: utf16Bytes("notes.txt")},
		{ID: uint16(types.PropAttachMimeTag), Type: format.PtypString, Value: utf16Bytes("text/plain")},
		{ID: uint16(types.PropAttachSize), Type: format.PtypInteger32, Inline: 5},
		{ID: uint16(types.PropAttachDataObject), Type: format.PtypBinary, Value: []byte("hello")},
	})
	msgSub := im.AddSubnodeBlock([]format.SubnodeEntry{
		{LocalNID: format.NIDRecipientTable, DataBID: im.AddDataBlock(recipientTable())},
		{LocalNID: format.NIDAttachmentTable, DataBID: im.AddDataBlock(rowIDTable([]uint32{localAttach}))},
		{LocalNID: localAttach, DataBID: im.AddDataBlock(attachPC)},
	})
	created := time.Date(2018, 3, 5, 20, 27, 6, 17_000_000, time.UTC)
	msgPC := testutil.PCPage([]testutil.PropSpec{
		{ID: uint16(types.PropMessageClass), Type: format.PtypString, Value: utf16Bytes("IPM.Note")},
		{ID: uint16(types.PropSubject), Type: format.PtypString, Value: utf16Bytes("\x01\x05Re: Quarterly numbers")},
		{ID: uint16(types.PropBody), Type: format.PtypString, Value: utf16Bytes("See attached.")},
		{ID: uint16(types.PropSenderName), Type: format.PtypString, Value: utf16Bytes("Ed Pfromer")},
		{ID: uint16(types.PropCreationTime), Type: format.PtypTime, Value: filetimeBytes(created)},
	})
	im.AddNode(nidMessage, im.AddDataBlock(msgPC), msgSub, nidInbox)

	// Contact exercising fixed tags and PSETID_Address named properties.
	contactPC := testutil.PCPage([]testutil.PropSpec{
		{ID: uint16(types.PropMessageClass), Type: format.PtypString, Value: utf16Bytes("IPM.Contact")},
		{ID: uint16(types.PropSubject), Type: format.PtypString, Value: utf16Bytes("Ed Pfromer")},
		{ID: uint16(types.PropGivenName), Type: format.PtypString, Value: utf16Bytes("Ed")},
		{ID: uint16(types.PropSurname), Type: format.PtypString, Value: utf16Bytes("Pfromer")},
		{ID: uint16(types.PropCompanyName), Type: format.PtypString, Value: utf16Bytes("Klonzo, LLC")},
		{ID: uint16(types.PropTitle), Type: format.PtypString, Value: utf16Bytes("President")},
		{ID: uint16(types.PropBusinessTelephoneNumber), Type: format.PtypString, Value: utf16Bytes("(720) 666-9776")},
		{ID: 0x8011, Type: format.PtypString, Value: utf16Bytes("300 Edison Place")},
		{ID: 0x8012, Type: format.PtypString, Value: utf16Bytes("Superior")},
		{ID: 0x8013, Type: format.PtypString, Value: utf16Bytes("CO")},
		{ID: 0x8014, Type: format.PtypString, Value: utf16Bytes("80027")},
		{ID: 0x8015, Type: format.PtypString, Value: utf16Bytes("epfromer@gmail.com")},
		{ID: uint16(types.PropCreationTime), Type: format.PtypTime, Value: filetimeBytes(created)},
	})
	im.AddNode(nidContact, im.AddDataBlock(contactPC), 0, nidInbox)

	f, err := OpenBytes(im.Bytes(), types.OpenOptions{CollectDiagnostics: true})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestMessageStore(t *testing.T) {
	f := buildMailbox(t)
	store, err := f.MessageStore()
	require.NoError(t, err)
	name, err := store.DisplayName()
	require.NoError(t, err)
	require.Equal(t, "Personal Folders", name)
}

func TestFolderNavigation(t *testing.T) {
	f := buildMailbox(t)
	root, err := f.RootFolder()
	require.NoError(t, err)

	name, err := root.DisplayName()
	require.NoError(t, err)
	require.Equal(t, "Root", name)

	subs, err := root.SubFolders()
	require.NoError(t, err)
	require.Len(t, subs, 1)

	inbox := subs[0]
	name, err = inbox.DisplayName()
	require.NoError(t, err)
	require.Equal(t, "Inbox", name)

	n, err := inbox.ContentCount()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	has, err := root.HasSubfolders()
	require.NoError(t, err)
	require.True(t, has)

	tc, err := inbox.ContentsTable()
	require.NoError(t, err)
	require.Equal(t, 2, tc.RowCount())
}

func TestFolderCursorAndDispatch(t *testing.T) {
	f := buildMailbox(t)
	root, err := f.RootFolder()
	require.NoError(t, err)
	subs, err := root.SubFolders()
	require.NoError(t, err)
	inbox := subs[0]

	first, err := inbox.NextChild()
	require.NoError(t, err)
	require.IsType(t, &Message{}, first)
	require.Equal(t, KindMessage, first.Kind())
	require.Equal(t, "IPM.Note", first.Class())

	second, err := inbox.NextChild()
	require.NoError(t, err)
	require.IsType(t, &Contact{}, second)
	require.Equal(t, KindContact, second.Kind())

	third, err := inbox.NextChild()
	require.NoError(t, err)
	require.Nil(t, third, "cursor past the last row yields nil")

	inbox.ResetChildCursor()
	again, err := inbox.NextChild()
	require.NoError(t, err)
	require.Equal(t, first.NID(), again.NID())
}

func TestMessageAccessors(t *testing.T) {
	f := buildMailbox(t)
	e, err := f.EntityByNID(nidMessage)
	require.NoError(t, err)
	msg := e.(*Message)

	subject, err := msg.Subject()
	require.NoError(t, err)
	require.Equal(t, "Re: Quarterly numbers", subject, "thread-marker prefix must be stripped")

	body, err := msg.Body()
	require.NoError(t, err)
	require.Equal(t, "See attached.", body)

	sender, err := msg.SenderName()
	require.NoError(t, err)
	require.Equal(t, "Ed Pfromer", sender)

	created, err := msg.CreationTime()
	require.NoError(t, err)
	want := time.Date(2018, 3, 5, 20, 27, 6, 17_000_000, time.UTC)
	require.WithinDuration(t, want, created, time.Millisecond)
}

func TestMessageRecipients(t *testing.T) {
	f := buildMailbox(t)
	e, err := f.EntityByNID(nidMessage)
	require.NoError(t, err)
	msg := e.(*Message)

	recips, err := msg.Recipients()
	require.NoError(t, err)
	require.Len(t, recips, 1)
	require.Equal(t, "Ed Pfromer", recips[0].DisplayName)
	require.Equal(t, "epfromer@gmail.com", recips[0].SmtpAddress)
	require.Equal(t, RecipientTo, recips[0].Type)
}

func TestMessageAttachments(t *testing.T) {
	f := buildMailbox(t)
	e, err := f.EntityByNID(nidMessage)
	require.NoError(t, err)
	msg := e.(*Message)

	atts, err := msg.Attachments()
	require.NoError(t, err)
	require.Len(t, atts, 1)

	att := atts[0]
	name, err := att.LongFilename()
	require.NoError(t, err)
	require.Equal(t, "notes.txt", name)

	mime, err := att.MimeTag()
	require.NoError(t, err)
	require.Equal(t, "text/plain", mime)

	method, err := att.Method()
	require.NoError(t, err)
	require.Equal(t, AttachByValue, method)

	size, err := att.Size()
	require.NoError(t, err)
	require.Equal(t, 5, size)

	data, err := att.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestContactAccessors(t *testing.T) {
	f := buildMailbox(t)
	e, err := f.EntityByNID(nidContact)
	require.NoError(t, err)
	c, ok := e.(*Contact)
	require.True(t, ok)
	require.Equal(t, "IPM.Contact", c.MessageClass())

	check := func(got string, err error, want string) {
		t.Helper()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	s, err := c.Subject()
	check(s, err, "Ed Pfromer")
	s, err = c.GivenName()
	check(s, err, "Ed")
	s, err = c.Surname()
	check(s, err, "Pfromer")
	s, err = c.CompanyName()
	check(s, err, "Klonzo, LLC")
	s, err = c.Title()
	check(s, err, "President")
	s, err = c.BusinessTelephoneNumber()
	check(s, err, "(720) 666-9776")
	s, err = c.WorkAddressStreet()
	check(s, err, "300 Edison Place")
	s, err = c.WorkAddressCity()
	check(s, err, "Superior")
	s, err = c.WorkAddressState()
	check(s, err, "CO")
	s, err = c.WorkAddressPostalCode()
	check(s, err, "80027")
	s, err = c.Email1EmailAddress()
	check(s, err, "epfromer@gmail.com")

	created, err := c.CreationTime()
	require.NoError(t, err)
	require.WithinDuration(t, time.Date(2018, 3, 5, 20, 27, 6, 17_000_000, time.UTC), created, time.Millisecond)
}

func TestFolderFallbackMatchesHierarchy(t *testing.T) {
	f := buildMailbox(t)
	root, err := f.RootFolder()
	require.NoError(t, err)

	viaTable, err := root.childNIDsFromHierarchy()
	require.NoError(t, err)
	viaIndex, err := root.childNIDsFromIndex()
	require.NoError(t, err)
	require.Equal(t, viaTable, viaIndex, "fallback must yield the hierarchy table's set")
}

package pst

import (
	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/reader"
	"github.com/joshuapare/pstkit/pkg/types"
)

// File is an open PST/OST file. It owns the byte source and the name-to-id
// map; folders, messages and attachments constructed from it stay valid
// until Close.
type File struct {
	r *reader.Reader
}

// Open maps the file at path.
func Open(path string, opts types.OpenOptions) (*File, error) {
	r, err := reader.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &File{r: r}, nil
}

// OpenBytes opens an in-memory image.
func OpenBytes(buf []byte, opts types.OpenOptions) (*File, error) {
	r, err := reader.OpenBytes(buf, opts)
	if err != nil {
		return nil, err
	}
	return &File{r: r}, nil
}

// Close releases the byte source. Objects derived from the file must not be
// used afterwards.
func (f *File) Close() error { return f.r.Close() }

// Info returns file header metadata.
func (f *File) Info() types.FileInfo { return f.r.Info() }

// Diagnostics returns anomalies recorded since open when
// OpenOptions.CollectDiagnostics was set.
func (f *File) Diagnostics() []types.Diagnostic { return f.r.Diagnostics() }

// WalkNodeInfos visits every descriptor-index entry. Returning an error
// from fn stops the walk.
func (f *File) WalkNodeInfos(fn func(types.NodeInfo) error) error {
	return f.r.WalkNodes(func(e format.NBTEntry) error {
		return fn(types.NodeInfo{
			NID:    types.NID(e.NID),
			Parent: types.NID(e.ParentNID),
			HasSub: e.SubBID != 0,
		})
	})
}

// MessageStore returns the store object (the PC at node 33).
func (f *File) MessageStore() (*MessageStore, error) {
	e, err := f.r.FindNode(types.NIDMessageStore)
	if err != nil {
		return nil, err
	}
	pc, err := f.r.OpenPC(e)
	if err != nil {
		return nil, err
	}
	return &MessageStore{f: f, pc: pc}, nil
}

// RootFolder returns the mailbox root (node 290).
func (f *File) RootFolder() (*Folder, error) {
	return f.FolderByNID(types.NIDRootFolder)
}

// FolderByNID opens a folder by node identifier.
func (f *File) FolderByNID(nid types.NID) (*Folder, error) {
	e, err := f.r.FindNode(nid)
	if err != nil {
		return nil, err
	}
	pc, err := f.r.OpenPC(e)
	if err != nil {
		return nil, err
	}
	return &Folder{f: f, nid: nid, pc: pc}, nil
}

// MessageStore is the thin typed view over the store PC.
type MessageStore struct {
	f  *File
	pc *reader.PropertyContext
}

// DisplayName returns the store's display name.
func (s *MessageStore) DisplayName() (string, error) {
	name, _, err := s.pc.GetString(types.PropDisplayName)
	return name, err
}

// RecordKey returns the store's record key bytes.
func (s *MessageStore) RecordKey() ([]byte, error) {
	p, _, err := s.pc.Get(types.PropRecordKey)
	if err != nil {
		return nil, err
	}
	return p.Raw, nil
}

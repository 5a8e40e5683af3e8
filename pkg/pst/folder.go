package pst

import (
	"errors"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/internal/reader"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Folder is a thin typed view over a folder node: its PC plus the derived
// hierarchy and contents tables. Folders hold no parent pointer; callers
// carry whatever context they need.
type Folder struct {
	f   *File
	nid types.NID
	pc  *reader.PropertyContext

	contents *reader.TableContext
	cursor   int
}

// NID returns the folder's node identifier.
func (fo *Folder) NID() types.NID { return fo.nid }

// DisplayName returns the folder's display name.
func (fo *Folder) DisplayName() (string, error) {
	name, _, err := fo.pc.GetString(types.PropDisplayName)
	return name, err
}

// ContainerClass returns the folder's container class ("IPF.Note", ...).
func (fo *Folder) ContainerClass() (string, error) {
	class, _, err := fo.pc.GetString(types.PropContainerClass)
	return class, err
}

// ContentCount returns the folder's item count.
func (fo *Folder) ContentCount() (int, error) {
	p, _, err := fo.pc.Get(types.PropContentCount)
	return int(p.Int32()), err
}

// UnreadCount returns the folder's unread item count.
func (fo *Folder) UnreadCount() (int, error) {
	p, _, err := fo.pc.Get(types.PropContentUnreadCount)
	return int(p.Int32()), err
}

// HasSubfolders reports the folder's subfolder flag.
func (fo *Folder) HasSubfolders() (bool, error) {
	p, _, err := fo.pc.Get(types.PropSubfolders)
	return p.Bool(), err
}

// SubFolders lists the folder's direct children. The hierarchy table drives
// the listing; when it is missing or broken, the NBT-walk parent index
// serves as the fallback so damaged mailboxes still enumerate.
func (fo *Folder) SubFolders() ([]*Folder, error) {
	nids, err := fo.childNIDsFromHierarchy()
	if err != nil {
		nids, err = fo.childNIDsFromIndex()
		if err != nil {
			return nil, err
		}
	}
	out := make([]*Folder, 0, len(nids))
	for _, nid := range nids {
		child, err := fo.f.FolderByNID(nid)
		if err != nil {
			continue // skip unreadable children
		}
		out = append(out, child)
	}
	return out, nil
}

func (fo *Folder) childNIDsFromHierarchy() ([]types.NID, error) {
	nid := types.NID(format.TableNID(uint32(fo.nid), format.NIDTypeHierarchyTable))
	e, err := fo.f.r.FindNode(nid)
	if err != nil {
		return nil, err
	}
	tc, err := fo.f.r.OpenTC(e)
	if err != nil {
		return nil, err
	}
	nids := make([]types.NID, 0, tc.RowCount())
	for i := 0; i < tc.RowCount(); i++ {
		id, err := tc.RowID(i)
		if err != nil {
			return nil, err
		}
		if isFolderNID(id) {
			nids = append(nids, types.NID(id))
		}
	}
	return nids, nil
}

func (fo *Folder) childNIDsFromIndex() ([]types.NID, error) {
	index, err := fo.f.r.ParentIndex()
	if err != nil {
		return nil, err
	}
	var nids []types.NID
	for _, id := range index[fo.nid] {
		if isFolderNID(uint32(id)) {
			nids = append(nids, id)
		}
	}
	return nids, nil
}

func isFolderNID(nid uint32) bool {
	t := format.NIDType(nid)
	return t == format.NIDTypeNormalFolder || t == format.NIDTypeSearchFolder
}

// ContentsTable opens the folder's contents rowset.
func (fo *Folder) ContentsTable() (*reader.TableContext, error) {
	if fo.contents != nil {
		return fo.contents, nil
	}
	nid := types.NID(format.TableNID(uint32(fo.nid), format.NIDTypeContentsTable))
	e, err := fo.f.r.FindNode(nid)
	if err != nil {
		return nil, err
	}
	tc, err := fo.f.r.OpenTC(e)
	if err != nil {
		return nil, err
	}
	fo.contents = tc
	return tc, nil
}

// NextChild advances the folder's cursor through the contents table,
// instantiating each row's node through the message-class factory. A nil
// entity with a nil error marks the end of the folder.
func (fo *Folder) NextChild() (Entity, error) {
	tc, err := fo.ContentsTable()
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) && te.Kind == types.ErrKindNotFound {
			return nil, nil // empty folder: no contents table at all
		}
		return nil, err
	}
	if fo.cursor >= tc.RowCount() {
		return nil, nil
	}
	id, err := tc.RowID(fo.cursor)
	if err != nil {
		return nil, err
	}
	fo.cursor++
	return fo.f.EntityByNID(types.NID(id))
}

// ResetChildCursor rewinds the NextChild cursor to the first row.
func (fo *Folder) ResetChildCursor() { fo.cursor = 0 }

// Package walker provides whole-tree traversal over an open PST file: a
// pre-order folder walk and a node census over the descriptor index. Both
// are read-only conveniences layered on the public pst API.
package walker

import (
	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/pst"
	"github.com/joshuapare/pstkit/pkg/types"
)

// FolderVisit receives each folder with its depth below the walk root.
// Returning an error stops the walk.
type FolderVisit func(f *pst.Folder, depth int) error

// WalkFolders traverses the folder tree in pre-order starting at root.
func WalkFolders(root *pst.Folder, fn FolderVisit) error {
	return walk(root, 0, fn)
}

func walk(f *pst.Folder, depth int, fn FolderVisit) error {
	if err := fn(f, depth); err != nil {
		return err
	}
	subs, err := f.SubFolders()
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := walk(sub, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Census summarizes the descriptor index of a file.
type Census struct {
	Nodes    int
	Folders  int
	Messages int
	ByType   map[uint32]int // node-type bits -> count
}

// TakeCensus walks every descriptor-index entry and tallies node types.
func TakeCensus(f *pst.File) (Census, error) {
	c := Census{ByType: make(map[uint32]int)}
	err := f.WalkNodeInfos(func(info types.NodeInfo) error {
		c.Nodes++
		t := format.NIDType(uint32(info.NID))
		c.ByType[t]++
		switch t {
		case format.NIDTypeNormalFolder, format.NIDTypeSearchFolder:
			c.Folders++
		case format.NIDTypeNormalMessage:
			c.Messages++
		}
		return nil
	})
	if err != nil {
		return Census{}, err
	}
	return c, nil
}

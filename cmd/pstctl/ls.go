package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pstkit/pkg/pst"
	"github.com/joshuapare/pstkit/pkg/pst/walker"
	"github.com/joshuapare/pstkit/pkg/types"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <file>",
		Short: "List the folder tree",
		Long: `The ls command prints the mailbox folder tree with item counts.

Example:
  pstctl ls mailbox.ost`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(args[0])
		},
	}
}

func runLs(path string) error {
	f, err := pst.Open(path, types.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open pst: %w", err)
	}
	defer f.Close()

	root, err := f.RootFolder()
	if err != nil {
		return fmt.Errorf("failed to open root folder: %w", err)
	}
	return walker.WalkFolders(root, func(fo *pst.Folder, depth int) error {
		name, err := fo.DisplayName()
		if err != nil {
			name = fmt.Sprintf("<nid 0x%X>", uint32(fo.NID()))
		}
		count, _ := fo.ContentCount()
		printInfo("%s%s (%d)\n", strings.Repeat("  ", depth), name, count)
		return nil
	})
}

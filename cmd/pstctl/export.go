package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pstkit/pkg/pst"
	"github.com/joshuapare/pstkit/pkg/types"
)

func init() {
	rootCmd.AddCommand(newExportCmd())
}

func newExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <file> <nid> <attachment-index>",
		Short: "Export an attachment payload",
		Long: `The export command saves one attachment of a message to disk.
The attachment index is zero-based in table order.

Example:
  pstctl export mailbox.ost 0x200004 0 -o notes.txt`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nid, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid nid %q: %w", args[1], err)
			}
			idx, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid attachment index %q: %w", args[2], err)
			}
			return runExport(args[0], types.NID(nid), idx, outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (defaults to the attachment filename)")
	return cmd
}

func runExport(path string, nid types.NID, idx int, outPath string) error {
	f, err := pst.Open(path, types.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open pst: %w", err)
	}
	defer f.Close()

	e, err := f.EntityByNID(nid)
	if err != nil {
		return fmt.Errorf("failed to open node 0x%X: %w", uint32(nid), err)
	}
	// Every entity kind embeds *Message and thus carries Attachments.
	msg, ok := e.(interface{ Attachments() ([]*pst.Attachment, error) })
	if !ok {
		return fmt.Errorf("node 0x%X is not a message", uint32(nid))
	}
	atts, err := msg.Attachments()
	if err != nil {
		return err
	}
	return saveAttachment(atts, idx, outPath)
}

func saveAttachment(atts []*pst.Attachment, idx int, outPath string) error {
	if idx < 0 || idx >= len(atts) {
		return fmt.Errorf("attachment index %d out of range (message has %d)", idx, len(atts))
	}
	att := atts[idx]
	if outPath == "" {
		name, err := att.LongFilename()
		if err != nil || name == "" {
			name = fmt.Sprintf("attachment-%d.bin", idx)
		}
		outPath = name
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	n, err := att.Save(out)
	if err != nil {
		return err
	}
	printInfo("Wrote %d bytes to %s\n", n, outPath)
	return nil
}

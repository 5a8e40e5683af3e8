package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pstkit/pkg/pst"
	"github.com/joshuapare/pstkit/pkg/pst/walker"
	"github.com/joshuapare/pstkit/pkg/types"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Validate a PST/OST header and report basic metadata",
		Long: `The info command validates a PST/OST file and displays basic
metadata: format variant, encryption mode, store name, and node counts.

Example:
  pstctl info mailbox.ost
  pstctl info mailbox.ost --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

func variantName(v byte) string {
	switch v {
	case 14:
		return "ANSI (32-bit)"
	case 23:
		return "Unicode (64-bit)"
	case 36:
		return "Unicode 2013 (4K pages)"
	default:
		return fmt.Sprintf("unknown (%d)", v)
	}
}

func runInfo(path string) error {
	printVerbose("Opening file: %s\n", path)
	f, err := pst.Open(path, types.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open pst: %w", err)
	}
	defer f.Close()

	info := f.Info()
	census, err := walker.TakeCensus(f)
	if err != nil {
		return fmt.Errorf("failed to walk descriptor index: %w", err)
	}

	storeName := ""
	if store, err := f.MessageStore(); err == nil {
		storeName, _ = store.DisplayName()
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"variant":   variantName(info.Variant),
			"encrypted": info.Encrypted,
			"store":     storeName,
			"nodes":     census.Nodes,
			"folders":   census.Folders,
			"messages":  census.Messages,
		})
	}

	printInfo("\nFile Information:\n")
	printInfo("  File: %s\n", path)
	if stat, err := os.Stat(path); err == nil {
		printInfo("  Size: %d bytes\n", stat.Size())
	}
	printInfo("  Variant: %s\n", variantName(info.Variant))
	printInfo("  Encrypted: %v\n", info.Encrypted)
	if storeName != "" {
		printInfo("  Store: %s\n", storeName)
	}
	printInfo("  Nodes: %d (%d folders, %d messages)\n",
		census.Nodes, census.Folders, census.Messages)
	return nil
}

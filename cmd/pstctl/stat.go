package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pstkit/pkg/pst"
	"github.com/joshuapare/pstkit/pkg/types"
)

func init() {
	rootCmd.AddCommand(newStatCmd())
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <file> <nid>",
		Short: "Print the properties of a message node",
		Long: `The stat command opens a message by node identifier (decimal or
0x-prefixed hex) and prints its common properties.

Example:
  pstctl stat mailbox.ost 0x200024`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nid, err := strconv.ParseUint(args[1], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid nid %q: %w", args[1], err)
			}
			return runStat(args[0], types.NID(nid))
		},
	}
}

func runStat(path string, nid types.NID) error {
	f, err := pst.Open(path, types.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open pst: %w", err)
	}
	defer f.Close()

	e, err := f.EntityByNID(nid)
	if err != nil {
		return fmt.Errorf("failed to open node 0x%X: %w", uint32(nid), err)
	}

	out := map[string]interface{}{
		"nid":   fmt.Sprintf("0x%X", uint32(nid)),
		"kind":  e.Kind().String(),
		"class": e.Class(),
	}
	if msg, ok := e.(interface{ Subject() (string, error) }); ok {
		if s, err := msg.Subject(); err == nil {
			out["subject"] = s
		}
	}
	if c, ok := e.(*pst.Contact); ok {
		if s, err := c.GivenName(); err == nil && s != "" {
			out["givenName"] = s
		}
		if s, err := c.Surname(); err == nil && s != "" {
			out["surname"] = s
		}
		if s, err := c.Email1EmailAddress(); err == nil && s != "" {
			out["email1"] = s
		}
	}
	// Every entity kind embeds *pst.Message, so reach the common accessors
	// through an interface rather than the concrete type.
	type messager interface {
		SenderName() (string, error)
		CreationTime() (time.Time, error)
		Recipients() ([]pst.Recipient, error)
		Attachments() ([]*pst.Attachment, error)
	}
	if m, ok := e.(messager); ok {
		if s, err := m.SenderName(); err == nil && s != "" {
			out["sender"] = s
		}
		if when, err := m.CreationTime(); err == nil && !when.IsZero() {
			out["created"] = when.UTC().String()
		}
		if recips, err := m.Recipients(); err == nil && len(recips) > 0 {
			out["recipients"] = len(recips)
		}
		if atts, err := m.Attachments(); err == nil && len(atts) > 0 {
			out["attachments"] = len(atts)
		}
	}

	if jsonOut {
		return printJSON(out)
	}
	for k, v := range out {
		printInfo("%s: %v\n", k, v)
	}
	return nil
}

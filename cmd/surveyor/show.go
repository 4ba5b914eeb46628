package main

import (
	"github.com/spf13/cobra"

	"surveyor/internal/tree"
	"surveyor/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <configuration> [hint-id]",
	Short: "Show details of a configuration or one of its issues",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	defer sess.close(cmd, false)

	var id tree.NodeID
	if len(args) == 2 {
		if id, err = sess.ws.FindHint(args[0], args[1]); err != nil {
			return err
		}
	} else {
		c, err := sess.ws.Configuration(args[0])
		if err != nil {
			return err
		}
		for _, root := range sess.ws.Tree.Roots() {
			if sess.ws.Tree.ConfigID(root) == c.ID {
				id = root
				break
			}
		}
	}
	tgt, err := sess.ws.Tree.Open(id)
	if err != nil {
		return err
	}
	return ui.RenderDetails(cmd.OutOrStdout(), tgt)
}

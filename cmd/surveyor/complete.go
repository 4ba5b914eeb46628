package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <configuration> <hint-id>...",
	Short: "Mark issues complete",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	for _, hintID := range args[1:] {
		if err := sess.ws.CompleteHint(args[0], hintID); err != nil {
			_ = sess.close(cmd, false)
			return err
		}
	}
	if err := sess.close(cmd, true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "marked %d issue(s) complete\n", len(args)-1)
	return nil
}

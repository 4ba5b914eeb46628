package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <configuration>",
	Aliases: []string{"rm"},
	Short:   "Delete a configuration and its results",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, "")
		if err != nil {
			return err
		}
		if err := sess.ws.DeleteConfiguration(args[0]); err != nil {
			_ = sess.close(cmd, false)
			return err
		}
		if err := sess.close(cmd, true); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

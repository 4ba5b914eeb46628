package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Show the analyzer CLI metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := openSession(cmd, "")
		if err != nil {
			return err
		}
		defer sess.close(cmd, false)

		meta := sess.ws.Service.Meta()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "name:    %s\n", meta.Name)
		fmt.Fprintf(out, "version: %s\n", meta.Version)
		if meta.Home != "" {
			fmt.Fprintf(out, "home:    %s\n", meta.Home)
		}
		if meta.Known() {
			fmt.Fprintf(out, "source:  %s\n", meta.Source)
		}
		return nil
	},
}

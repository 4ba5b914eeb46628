package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <configuration> <results-file>",
	Short: "Install analysis results into a configuration",
	Long: `Read an analysis results file (.json or .mp) and make it the result set of
the configuration, replacing earlier results. Issues already marked complete
stay complete when they appear again.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	summary, err := sess.ws.ImportResults(cmd.Context(), args[0], args[1])
	if err != nil {
		_ = sess.close(cmd, false)
		return err
	}
	if err := sess.close(cmd, true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d issues (%d quickfixes) executed at %s\n",
		summary.HintCount, summary.QuickfixCount, summary.ExecutedTimestamp)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"surveyor/internal/ui"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the configuration tree",
	Long: `Print every configuration with its results, issues and quickfixes.
Nodes are materialized the same way the interactive view does it.`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().Int("depth", 0, "expand at most this many levels (0 = everything)")
	treeCmd.Flags().Bool("ids", false, "show hint IDs next to issues")
	treeCmd.Flags().Int("width", 0, "truncate labels to this width (default: terminal width)")
}

func runTree(cmd *cobra.Command, _ []string) error {
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}
	if depth < 0 {
		return fmt.Errorf("--depth must not be negative")
	}
	ids, err := cmd.Flags().GetBool("ids")
	if err != nil {
		return err
	}
	width, err := cmd.Flags().GetInt("width")
	if err != nil {
		return err
	}
	if width == 0 {
		width = terminalWidth()
	}
	return printTree(cmd, ui.PrintOptions{Width: width, Depth: depth, IDs: ids})
}

func printTree(cmd *cobra.Command, opts ui.PrintOptions) error {
	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	printErr := ui.Print(cmd.OutOrStdout(), sess.ws.Tree, opts)
	if err := sess.close(cmd, false); err != nil {
		return err
	}
	return printErr
}

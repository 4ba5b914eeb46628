package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"surveyor/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show surveyor build information",
	Args:  cobra.NoArgs,
	// version needs neither settings nor a tracer
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runVersion,
}

func init() {
	versionCmd.Flags().Bool("full", false, "include commit and build date")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	info := version.Current()
	if !full {
		info.GitCommit, info.BuildDate = "", ""
	}
	switch format {
	case "json":
		return writeVersionJSON(cmd.OutOrStdout(), info)
	case "pretty":
		writeVersion(cmd.OutOrStdout(), info, full)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func writeVersion(out io.Writer, info version.Info, full bool) {
	fmt.Fprintf(out, "surveyor %s\n", version.Colored(info.Version))
	if !full {
		return
	}
	fmt.Fprintf(out, "commit: %s\n", orUnknown(info.GitCommit))
	fmt.Fprintf(out, "built:  %s\n", orUnknown(info.BuildDate))
}

func writeVersionJSON(out io.Writer, info version.Info) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

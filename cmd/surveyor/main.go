package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"surveyor/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "surveyor",
	Short: "Live tree over analysis configurations and their results",
	Long: `surveyor keeps analysis configurations, their issues and quickfixes in one
model file and shows them as a tree that follows edits made to that file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
}

// main registers subcommands and persistent flags, then executes the root command.
// Any error is printed once and the process exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("config", "", "path to surveyor.toml (default: searched upwards from the working directory)")
	rootCmd.PersistentFlags().String("state-dir", "", "state directory holding the model file")
	rootCmd.PersistentFlags().String("store", "", "model file name or absolute path (.json or .mp)")
	rootCmd.PersistentFlags().String("grouping", "", "issue grouping under results (flat|folders)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug details to stderr")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept in ring mode")

	err := rootCmd.Execute()
	finishTracing(err != nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

// prepare runs before every command: color, settings and tracing.
func prepare(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := setupTracing(cmd, s.cfg.Trace); err != nil {
		return err
	}
	cmd.SetContext(withSettings(cmd.Context(), s))
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the stdout width, 0 when it is not a terminal.
func terminalWidth() int {
	if !isTerminal(os.Stdout) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

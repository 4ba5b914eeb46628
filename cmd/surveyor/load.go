package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"surveyor/internal/model"
	"surveyor/internal/service"
)

var loadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Create a configuration, or attach to an existing one",
	Long: `Create a configuration with the given name. When --id names a configuration
that already exists it is attached instead and its options are updated with
the ones given here.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("id", "", "configuration ID (default: generated)")
	loadCmd.Flags().StringSlice("input", nil, "application inputs to analyze")
	loadCmd.Flags().StringSlice("target", nil, "migration targets")
	loadCmd.Flags().StringSlice("source", nil, "migration sources")
	loadCmd.Flags().String("output", "", "analysis output directory")
}

func runLoad(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	id, _ := flags.GetString("id")
	input, _ := flags.GetStringSlice("input")
	target, _ := flags.GetStringSlice("target")
	source, _ := flags.GetStringSlice("source")
	output, _ := flags.GetString("output")

	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	c, created, err := sess.ws.LoadConfiguration(cmd.Context(), service.Descriptor{
		ID:   id,
		Name: args[0],
		Options: model.Options{
			Input:  input,
			Target: target,
			Source: source,
			Output: output,
		},
	})
	if err != nil {
		_ = sess.close(cmd, false)
		return err
	}
	if err := sess.close(cmd, true); err != nil {
		return err
	}

	verb := "attached"
	if created {
		verb = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s configuration %s (%s)\n", verb, c.Name, c.ID)
	return nil
}
